package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"slidecoach/internal/ai"
	"slidecoach/internal/model"
	"slidecoach/internal/store"
)

// ReviewStage produces the per-slide critique. It composes the stored review
// config, the slide's polished transcript and the fixed critique instruction
// into one generative call, then normalizes the untrusted response.
type ReviewStage struct {
	store       *store.Store
	transcripts *TranscriptionStage
	gen         TextGenerator
	genCfg      ai.GenerateConfig
	tipLimit    int
}

func NewReviewStage(
	st *store.Store,
	transcripts *TranscriptionStage,
	gen TextGenerator,
	genCfg ai.GenerateConfig,
	tipLimit int,
) *ReviewStage {
	return &ReviewStage{
		store:       st,
		transcripts: transcripts,
		gen:         gen,
		genCfg:      genCfg,
		tipLimit:    tipLimit,
	}
}

// ReviewSlide recomputes and overwrites the slide's review. Transcript
// failures propagate unchanged so the caller can distinguish missing audio
// from collaborator trouble.
func (r *ReviewStage) ReviewSlide(ctx context.Context, session string, slide int) (*model.Review, error) {
	transcript, err := r.transcripts.GetTranscript(ctx, session, slide)
	if err != nil {
		return nil, err
	}
	text := transcript.Polished
	if text == "" {
		text = transcript.Raw
	}

	extra, refParts := loadReviewContext(r.store, session)
	parts := append(refParts,
		ai.TextPart("[SYSTEM]\n"+slideSystemPrompt),
		ai.TextPart("[CONTEXT]\n"+extra),
		ai.TextPart(fmt.Sprintf("[SLIDE %d]\n%s", slide, text)),
		ai.TextPart("[REQUIREMENTS]\n"+slideRequirements(r.tipLimit)),
	)

	response, err := r.gen.Generate(ctx, r.genCfg, []ai.Content{{Role: "user", Parts: parts}})
	if err != nil {
		return nil, fmt.Errorf("%w: review session %s slide %d: %v", ErrCollaborator, session, slide, err)
	}

	review := ParseStructured(response, model.Review{Feedback: "", Tips: []string{}}, r.tipLimit)
	if err := r.store.WriteReview(session, slide, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// loadReviewContext reads the session's review config. A missing or broken
// config is not fatal: reviewing without extra context is valid.
func loadReviewContext(st *store.Store, session string) (string, []ai.Part) {
	cfg, err := st.ReadConfig(session)
	if err != nil {
		log.Printf("read review config failed for session %s: %v", session, err)
		return "", nil
	}
	if cfg == nil {
		return "", nil
	}

	var parts []ai.Part
	if cfg.Reference != nil && cfg.Reference.URI != "" && cfg.Reference.MIMEType != "" {
		parts = append(parts, ai.FilePart(cfg.Reference.URI, cfg.Reference.MIMEType))
	}
	if cfg.DeckText != "" {
		parts = append(parts, ai.TextPart("[REFERENCE]\n"+cfg.DeckText))
	}
	return strings.TrimSpace(cfg.ExtraInfo), parts
}
