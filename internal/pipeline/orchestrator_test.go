package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"slidecoach/internal/ai"
	"slidecoach/internal/model"
	"slidecoach/internal/store"
)

func writeFile(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, []byte(content), 0o644)
}

type fakeUploader struct {
	handle *ai.FileHandleResult
	err    error
	calls  int
}

func (f *fakeUploader) UploadFile(_ context.Context, _ ai.GenerateConfig, _ string) (*ai.FileHandleResult, error) {
	f.calls++
	return f.handle, f.err
}

type memStatusCache struct {
	status map[string]*model.SessionStatus
	dirty  map[string]bool
}

func newMemStatusCache() *memStatusCache {
	return &memStatusCache{
		status: make(map[string]*model.SessionStatus),
		dirty:  make(map[string]bool),
	}
}

func (c *memStatusCache) GetStatus(_ context.Context, token string) (*model.SessionStatus, bool, error) {
	s, ok := c.status[token]
	return s, ok, nil
}

func (c *memStatusCache) SetStatus(_ context.Context, token string, status *model.SessionStatus) error {
	c.status[token] = status
	return nil
}

func (c *memStatusCache) DeleteStatus(_ context.Context, token string) error {
	delete(c.status, token)
	return nil
}

func (c *memStatusCache) MarkDirty(_ context.Context, token string) error {
	c.dirty[token] = true
	return nil
}

func (c *memStatusCache) IsDirty(_ context.Context, token string) (bool, error) {
	return c.dirty[token], nil
}

func newOrchestratorFixture(t *testing.T, gen *fakeGenerator, uploader FileUploader, attach bool, cache StatusCache) (*Orchestrator, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	if err := st.EnsureSession("sess"); err != nil {
		t.Fatal(err)
	}
	genCfg := ai.GenerateConfig{Model: "gemini-2.5-flash"}
	transcripts := NewTranscriptionStage(st, &fakeSTT{}, ai.TranscribeConfig{Model: "tiny"}, gen, genCfg, "en", fastPoll(1))
	reviews := NewReviewStage(st, transcripts, gen, genCfg, 3)
	summaries := NewSummaryStage(st, gen, genCfg, 5, 500)
	return NewOrchestrator(st, transcripts, reviews, summaries, uploader, genCfg, attach, cache), st
}

func TestOrchestratorUnknownSession(t *testing.T) {
	orch, _ := newOrchestratorFixture(t, &fakeGenerator{}, nil, false, nil)
	ctx := context.Background()

	if _, err := orch.GetTranscript(ctx, "ghost", 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := orch.ReviewSlide(ctx, "ghost", 1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := orch.Summarize(ctx, "ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := orch.StartReview(ctx, "ghost", "", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOrchestratorSlideIndexValidation(t *testing.T) {
	orch, _ := newOrchestratorFixture(t, &fakeGenerator{}, nil, false, nil)

	if _, err := orch.GetTranscript(context.Background(), "sess", 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := orch.ReviewSlide(context.Background(), "sess", -2); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStartReviewWritesConfig(t *testing.T) {
	orch, st := newOrchestratorFixture(t, &fakeGenerator{}, nil, false, nil)

	if err := orch.StartReview(context.Background(), "sess", "", "  notes  "); err != nil {
		t.Fatal(err)
	}
	cfg, err := st.ReadConfig("sess")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "per-slide" {
		t.Fatalf("expected default mode, got %q", cfg.Mode)
	}
	if cfg.ExtraInfo != "notes" {
		t.Fatalf("expected trimmed extra info, got %q", cfg.ExtraInfo)
	}
	if cfg.Reference != nil {
		t.Fatal("no reference expected when attachment disabled")
	}
}

func TestStartReviewAttachesUploadedDeck(t *testing.T) {
	uploader := &fakeUploader{handle: &ai.FileHandleResult{URI: "files/xyz", MIMEType: "application/pdf"}}
	orch, st := newOrchestratorFixture(t, &fakeGenerator{}, uploader, true, nil)

	if _, err := writeFile(st.UploadDir("sess"), "deck.pdf", "%PDF-fake"); err != nil {
		t.Fatal(err)
	}

	if err := orch.StartReview(context.Background(), "sess", "per-slide", "ctx"); err != nil {
		t.Fatal(err)
	}
	if uploader.calls != 1 {
		t.Fatalf("expected 1 upload call, got %d", uploader.calls)
	}
	cfg, err := st.ReadConfig("sess")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Reference == nil || cfg.Reference.URI != "files/xyz" || cfg.Reference.Name != "deck.pdf" {
		t.Fatalf("reference not recorded: %+v", cfg.Reference)
	}
}

func TestStartReviewUploadFailureStillWritesConfig(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("file api down")}
	orch, st := newOrchestratorFixture(t, &fakeGenerator{}, uploader, true, nil)

	if _, err := writeFile(st.UploadDir("sess"), "deck.pdf", "not a real pdf"); err != nil {
		t.Fatal(err)
	}

	if err := orch.StartReview(context.Background(), "sess", "", ""); err != nil {
		t.Fatal(err)
	}
	cfg, err := st.ReadConfig("sess")
	if err != nil {
		t.Fatal(err)
	}
	// Upload failed and local extraction of a fake PDF fails too: the config
	// is written without any reference material.
	if cfg.Reference != nil {
		t.Fatalf("expected no reference, got %+v", cfg.Reference)
	}
}

func TestStatusSnapshotAndCache(t *testing.T) {
	cache := newMemStatusCache()
	gen := &fakeGenerator{responses: []string{`{"feedback": "f", "tips": []}`}}
	orch, st := newOrchestratorFixture(t, gen, nil, false, cache)

	for slide := 1; slide <= 2; slide++ {
		if _, err := writeFile(filepath.Join(st.SessionDir("sess"), "slides"), "slide-"+strconv.Itoa(slide)+".png", "png"); err != nil {
			t.Fatal(err)
		}
	}
	seedTranscript(t, st, 1, "Hello.")

	status, err := orch.Status(context.Background(), "sess")
	if err != nil {
		t.Fatal(err)
	}
	if status.SlideCount != 2 || len(status.Slides) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if !status.Slides[0].Transcribed || status.Slides[1].Transcribed {
		t.Fatalf("transcription flags wrong: %+v", status.Slides)
	}
	if status.Summarized {
		t.Fatal("no summary yet")
	}
	if _, hit, _ := cache.GetStatus(context.Background(), "sess"); !hit {
		t.Fatal("status should be cached")
	}

	// A new artifact invalidates the snapshot.
	if _, err := orch.Summarize(context.Background(), "sess"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := cache.GetStatus(context.Background(), "sess"); hit {
		t.Fatal("cache must be invalidated after a write")
	}
}
