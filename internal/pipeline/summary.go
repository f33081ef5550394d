package pipeline

import (
	"context"
	"fmt"
	"strings"

	"slidecoach/internal/ai"
	"slidecoach/internal/model"
	"slidecoach/internal/store"
)

// SummaryStage aggregates every persisted per-slide review plus all
// available transcripts into one deck-level critique. It is a snapshot read:
// it never waits for in-flight reviews, and zero inputs are legal.
type SummaryStage struct {
	store          *store.Store
	gen            TextGenerator
	genCfg         ai.GenerateConfig
	tipLimit       int
	transcriptClip int
}

func NewSummaryStage(
	st *store.Store,
	gen TextGenerator,
	genCfg ai.GenerateConfig,
	tipLimit int,
	transcriptClip int,
) *SummaryStage {
	if transcriptClip <= 0 {
		transcriptClip = 500
	}
	return &SummaryStage{
		store:          st,
		gen:            gen,
		genCfg:         genCfg,
		tipLimit:       tipLimit,
		transcriptClip: transcriptClip,
	}
}

// Summarize recomputes and overwrites the session summary.
func (s *SummaryStage) Summarize(ctx context.Context, session string) (*model.Review, error) {
	reviews, err := s.store.ListReviews(session)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, 0, len(reviews))
	for _, sr := range reviews {
		feedback := strings.TrimSpace(sr.Review.Feedback)
		tips := make([]string, 0, len(sr.Review.Tips))
		for _, tip := range sr.Review.Tips {
			if tip = strings.TrimSpace(tip); tip != "" {
				tips = append(tips, tip)
			}
		}
		joined := strings.Join(tips, "; ")
		if feedback == "" && joined == "" {
			continue
		}
		snippets = append(snippets, fmt.Sprintf("Slide %d: %s Tips: %s", sr.Slide, feedback, joined))
	}

	transcripts, err := s.store.ListTranscripts(session)
	if err != nil {
		return nil, err
	}
	clips := make([]string, 0, len(transcripts))
	for _, st := range transcripts {
		text := st.Transcript.Polished
		if text == "" {
			text = st.Transcript.Raw
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		clips = append(clips, clipRunes(text, s.transcriptClip))
	}

	extra, refParts := loadReviewContext(s.store, session)
	parts := append(refParts,
		ai.TextPart("[SYSTEM]\n"+summarySystemPrompt),
		ai.TextPart("[CONTEXT]\n"+extra),
		ai.TextPart("[PER_SLIDE]\n"+strings.Join(snippets, "\n")),
	)
	if len(clips) > 0 {
		parts = append(parts, ai.TextPart("TRANSCRIPTS:\n"+strings.Join(clips, "\n")))
	}
	parts = append(parts, ai.TextPart("[REQUIREMENTS]\n"+summaryRequirements(s.tipLimit)))

	response, err := s.gen.Generate(ctx, s.genCfg, []ai.Content{{Role: "user", Parts: parts}})
	if err != nil {
		return nil, fmt.Errorf("%w: summarize session %s: %v", ErrCollaborator, session, err)
	}

	summary := ParseStructured(response, model.Review{Feedback: "", Tips: []string{}}, s.tipLimit)
	if err := s.store.WriteSummary(session, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// clipRunes bounds text by rune count so multi-byte scripts never get split
// mid-character.
func clipRunes(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
