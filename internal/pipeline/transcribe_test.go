package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"slidecoach/internal/ai"
	"slidecoach/internal/model"
	"slidecoach/internal/store"
)

type fakeSTT struct {
	text   string
	err    error
	calls  int
	gotReq ai.TranscribeRequest
}

func (f *fakeSTT) Transcribe(_ context.Context, _ ai.TranscribeConfig, req ai.TranscribeRequest) (string, error) {
	f.calls++
	f.gotReq = req
	return f.text, f.err
}

type fakeGenerator struct {
	responses []string
	err       error
	calls     int
	contents  [][]ai.Content
}

func (f *fakeGenerator) Generate(_ context.Context, _ ai.GenerateConfig, contents []ai.Content) (string, error) {
	f.contents = append(f.contents, contents)
	idx := f.calls
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", nil
}

func fastPoll(attempts int) PollPolicy {
	return PollPolicy{Interval: time.Millisecond, MaxAttempts: attempts, Sleep: func(time.Duration) {}}
}

func newTranscribeFixture(t *testing.T, stt *fakeSTT, gen *fakeGenerator, poll PollPolicy) (*TranscriptionStage, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	if err := st.EnsureSession("sess"); err != nil {
		t.Fatal(err)
	}
	stage := NewTranscriptionStage(
		st,
		stt, ai.TranscribeConfig{Model: "tiny"},
		gen, ai.GenerateConfig{Model: "gemini-2.5-flash"},
		"ru",
		poll,
	)
	return stage, st
}

func writeAudio(t *testing.T, st *store.Store, slide int) string {
	t.Helper()
	path := filepath.Join(st.SessionDir("sess"), "audio", "slide-"+strconv.Itoa(slide)+".mp3")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGetTranscriptCacheHit(t *testing.T) {
	stt := &fakeSTT{text: "should not be called"}
	gen := &fakeGenerator{}
	stage, st := newTranscribeFixture(t, stt, gen, fastPoll(1))

	want := &model.Transcript{Raw: "сырой текст", Polished: "Сырой текст.", Language: "ru"}
	if err := st.WriteTranscript("sess", 1, want); err != nil {
		t.Fatal(err)
	}

	got, err := stage.GetTranscript(context.Background(), "sess", 1)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Fatalf("cache round trip mismatch: got %+v, want %+v", got, want)
	}
	if stt.calls != 0 || gen.calls != 0 {
		t.Fatal("cache hit must not touch collaborators")
	}
}

func TestGetTranscriptComputesAndCaches(t *testing.T) {
	stt := &fakeSTT{text: " raw words "}
	gen := &fakeGenerator{responses: []string{" Raw words. "}}
	stage, st := newTranscribeFixture(t, stt, gen, fastPoll(3))
	audioPath := writeAudio(t, st, 1)

	got, err := stage.GetTranscript(context.Background(), "sess", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Raw != "raw words" || got.Polished != "Raw words." || got.Language != "ru" {
		t.Fatalf("unexpected transcript: %+v", got)
	}
	if stt.gotReq.AudioPath != audioPath {
		t.Fatalf("expected audio path %s, got %s", audioPath, stt.gotReq.AudioPath)
	}
	if stt.gotReq.Language != "ru" {
		t.Fatalf("expected language ru, got %s", stt.gotReq.Language)
	}

	cached, err := st.ReadTranscript("sess", 1)
	if err != nil {
		t.Fatal(err)
	}
	if cached == nil || *cached != *got {
		t.Fatalf("transcript not persisted verbatim: %+v vs %+v", cached, got)
	}

	// Second call must be a pure cache hit.
	if _, err := stage.GetTranscript(context.Background(), "sess", 1); err != nil {
		t.Fatal(err)
	}
	if stt.calls != 1 {
		t.Fatalf("expected 1 STT call, got %d", stt.calls)
	}
}

func TestGetTranscriptWaitsForLateAudio(t *testing.T) {
	stt := &fakeSTT{text: "late words"}
	gen := &fakeGenerator{responses: []string{"Late words."}}
	stage, st := newTranscribeFixture(t, stt, gen, PollPolicy{
		Interval:    time.Millisecond,
		MaxAttempts: 10,
		Sleep:       func(time.Duration) {},
	})

	// Audio shows up only after two failed existence checks.
	checks := 0
	stage.poll.Sleep = func(time.Duration) {
		checks++
		if checks == 2 {
			writeAudio(t, st, 2)
		}
	}

	got, err := stage.GetTranscript(context.Background(), "sess", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Raw != "late words" {
		t.Fatalf("unexpected transcript: %+v", got)
	}
}

func TestGetTranscriptAudioNeverAppears(t *testing.T) {
	stt := &fakeSTT{}
	gen := &fakeGenerator{}
	stage, st := newTranscribeFixture(t, stt, gen, fastPoll(4))

	_, err := stage.GetTranscript(context.Background(), "sess", 3)
	if !errors.Is(err, ErrAudioNotFound) {
		t.Fatalf("expected ErrAudioNotFound, got %v", err)
	}
	if stt.calls != 0 {
		t.Fatal("no STT call expected without audio")
	}
	if st.Exists("sess", 3, store.KindTranscript) {
		t.Fatal("no transcript artifact may be written on failure")
	}
}

func TestGetTranscriptSTTFailure(t *testing.T) {
	stt := &fakeSTT{err: errors.New("server down")}
	gen := &fakeGenerator{}
	stage, st := newTranscribeFixture(t, stt, gen, fastPoll(1))
	writeAudio(t, st, 1)

	_, err := stage.GetTranscript(context.Background(), "sess", 1)
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
	if st.Exists("sess", 1, store.KindTranscript) {
		t.Fatal("no transcript artifact may be written on failure")
	}
}

func TestGetTranscriptPolishFailureSurfaced(t *testing.T) {
	stt := &fakeSTT{text: "raw"}
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	stage, st := newTranscribeFixture(t, stt, gen, fastPoll(1))
	writeAudio(t, st, 1)

	_, err := stage.GetTranscript(context.Background(), "sess", 1)
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator for polish failure, got %v", err)
	}
	if st.Exists("sess", 1, store.KindTranscript) {
		t.Fatal("no transcript artifact may be written on polish failure")
	}
}

func TestGetTranscriptRecomputesOverCorruptCache(t *testing.T) {
	stt := &fakeSTT{text: "fresh"}
	gen := &fakeGenerator{responses: []string{"Fresh."}}
	stage, st := newTranscribeFixture(t, stt, gen, fastPoll(1))
	writeAudio(t, st, 1)

	corrupt := st.Path("sess", 1, store.KindTranscript)
	if err := os.WriteFile(corrupt, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := stage.GetTranscript(context.Background(), "sess", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Raw != "fresh" {
		t.Fatalf("expected recomputed transcript, got %+v", got)
	}
}
