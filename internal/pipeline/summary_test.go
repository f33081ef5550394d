package pipeline

import (
	"context"
	"strings"
	"testing"

	"slidecoach/internal/ai"
	"slidecoach/internal/model"
	"slidecoach/internal/store"
)

func newSummaryFixture(t *testing.T, gen *fakeGenerator) (*SummaryStage, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	if err := st.EnsureSession("sess"); err != nil {
		t.Fatal(err)
	}
	return NewSummaryStage(st, gen, ai.GenerateConfig{Model: "gemini-2.5-flash"}, 5, 500), st
}

func TestSummarizeEmptySessionIsValid(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"feedback": "", "tips": []}`}}
	stage, st := newSummaryFixture(t, gen)

	summary, err := stage.Summarize(context.Background(), "sess")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Feedback != "" || len(summary.Tips) != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
	if !st.SummaryExists("sess") {
		t.Fatal("summary must be persisted")
	}

	texts := partTexts(gen.contents[0])
	for _, text := range texts {
		if strings.HasPrefix(text, "TRANSCRIPTS:") {
			t.Fatal("transcripts block must be omitted when empty")
		}
	}
}

func TestSummarizeSnippetFormat(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"feedback": "good deck", "tips": ["t"]}`}}
	stage, st := newSummaryFixture(t, gen)

	reviews := map[int]*model.Review{
		1: {Feedback: "Clear intro", Tips: []string{"Slow down", " Add numbers "}},
		2: {Feedback: "", Tips: []string{}}, // empty: omitted from snippets
		3: {Feedback: "Rushed ending", Tips: nil},
	}
	for slide, r := range reviews {
		if err := st.WriteReview("sess", slide, r); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := stage.Summarize(context.Background(), "sess"); err != nil {
		t.Fatal(err)
	}

	var perSlide string
	for _, text := range partTexts(gen.contents[0]) {
		if strings.HasPrefix(text, "[PER_SLIDE]") {
			perSlide = text
		}
	}
	lines := strings.Split(strings.TrimPrefix(perSlide, "[PER_SLIDE]\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 snippet lines, got %d: %q", len(lines), perSlide)
	}
	if lines[0] != "Slide 1: Clear intro Tips: Slow down; Add numbers" {
		t.Fatalf("unexpected snippet: %q", lines[0])
	}
	if lines[1] != "Slide 3: Rushed ending Tips: " {
		t.Fatalf("unexpected snippet: %q", lines[1])
	}
}

func TestSummarizeTranscriptsClipped(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"feedback": "f", "tips": []}`}}
	stage, st := newSummaryFixture(t, gen)

	long := strings.Repeat("ы", 800) // multi-byte on purpose
	if err := st.WriteTranscript("sess", 1, &model.Transcript{Polished: long, Language: "ru"}); err != nil {
		t.Fatal(err)
	}

	if _, err := stage.Summarize(context.Background(), "sess"); err != nil {
		t.Fatal(err)
	}

	var block string
	for _, text := range partTexts(gen.contents[0]) {
		if strings.HasPrefix(text, "TRANSCRIPTS:") {
			block = text
		}
	}
	if block == "" {
		t.Fatal("expected transcripts block")
	}
	clipped := strings.TrimPrefix(block, "TRANSCRIPTS:\n")
	if got := len([]rune(clipped)); got != 500 {
		t.Fatalf("expected 500 runes, got %d", got)
	}
}

func TestSummarizeTipCap(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"feedback": "f", "tips": ["1", "2", "3", "4", "5", "6", "7", "8"]}`,
	}}
	stage, _ := newSummaryFixture(t, gen)

	summary, err := stage.Summarize(context.Background(), "sess")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Tips) != 5 {
		t.Fatalf("expected 5 tips, got %d", len(summary.Tips))
	}
}

func TestSummarizeIdempotentOverwrite(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"feedback": "first", "tips": []}`,
		`{"feedback": "second", "tips": []}`,
	}}
	stage, st := newSummaryFixture(t, gen)

	if _, err := stage.Summarize(context.Background(), "sess"); err != nil {
		t.Fatal(err)
	}
	if _, err := stage.Summarize(context.Background(), "sess"); err != nil {
		t.Fatal(err)
	}

	stored, err := st.ReadSummary("sess")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Feedback != "second" {
		t.Fatalf("expected overwrite, got %+v", stored)
	}
}
