package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"slidecoach/internal/ai"
	"slidecoach/internal/model"
	"slidecoach/internal/pkg/pdfextract"
	"slidecoach/internal/store"
)

// FileUploader pushes a local document to the generative collaborator's file
// store for later attachment by URI.
type FileUploader interface {
	UploadFile(ctx context.Context, cfg ai.GenerateConfig, path string) (*ai.FileHandleResult, error)
}

// StatusCache keeps the session progress snapshot close to the client.
// Implementations may be nil-safe absent; the orchestrator treats a nil
// cache as a permanent miss.
type StatusCache interface {
	GetStatus(ctx context.Context, token string) (*model.SessionStatus, bool, error)
	SetStatus(ctx context.Context, token string, status *model.SessionStatus) error
	DeleteStatus(ctx context.Context, token string) error
	MarkDirty(ctx context.Context, token string) error
	IsDirty(ctx context.Context, token string) (bool, error)
}

// Deck text attached as local context is bounded to keep prompts sane.
const maxDeckTextRunes = 8000

const defaultReviewMode = "per-slide"

// Orchestrator is the request-driven session state machine. It owns no state
// of its own: every decision delegates to the artifact store, so each
// operation is idempotent and safe to repeat.
type Orchestrator struct {
	store       *store.Store
	transcripts *TranscriptionStage
	reviews     *ReviewStage
	summaries   *SummaryStage

	uploader        FileUploader
	genCfg          ai.GenerateConfig
	attachReference bool

	statusCache StatusCache
}

func NewOrchestrator(
	st *store.Store,
	transcripts *TranscriptionStage,
	reviews *ReviewStage,
	summaries *SummaryStage,
	uploader FileUploader,
	genCfg ai.GenerateConfig,
	attachReference bool,
	statusCache StatusCache,
) *Orchestrator {
	return &Orchestrator{
		store:           st,
		transcripts:     transcripts,
		reviews:         reviews,
		summaries:       summaries,
		uploader:        uploader,
		genCfg:          genCfg,
		attachReference: attachReference,
		statusCache:     statusCache,
	}
}

func (o *Orchestrator) GetTranscript(ctx context.Context, session string, slide int) (*model.Transcript, error) {
	if err := o.requireSession(session); err != nil {
		return nil, err
	}
	if err := validSlide(slide); err != nil {
		return nil, err
	}
	transcript, err := o.transcripts.GetTranscript(ctx, session, slide)
	if err != nil {
		return nil, err
	}
	o.InvalidateStatus(ctx, session)
	return transcript, nil
}

// StartReview persists the review config for the session, optionally
// attaching the uploaded deck as reference material. Attachment is
// best-effort: a failed upload falls back to locally extracted deck text,
// and a failure there just means reviewing without a reference.
func (o *Orchestrator) StartReview(ctx context.Context, session, mode, extraInfo string) error {
	if err := o.requireSession(session); err != nil {
		return err
	}
	mode = strings.TrimSpace(mode)
	if mode == "" {
		mode = defaultReviewMode
	}

	cfg := &model.ReviewConfig{
		Mode:      mode,
		ExtraInfo: strings.TrimSpace(extraInfo),
	}
	if o.attachReference {
		o.attachDeck(ctx, session, cfg)
	}
	if err := o.store.WriteConfig(session, cfg); err != nil {
		return err
	}
	o.InvalidateStatus(ctx, session)
	return nil
}

func (o *Orchestrator) ReviewSlide(ctx context.Context, session string, slide int) (*model.Review, error) {
	if err := o.requireSession(session); err != nil {
		return nil, err
	}
	if err := validSlide(slide); err != nil {
		return nil, err
	}
	review, err := o.reviews.ReviewSlide(ctx, session, slide)
	if err != nil {
		return nil, err
	}
	o.InvalidateStatus(ctx, session)
	return review, nil
}

func (o *Orchestrator) Summarize(ctx context.Context, session string) (*model.Review, error) {
	if err := o.requireSession(session); err != nil {
		return nil, err
	}
	summary, err := o.summaries.Summarize(ctx, session)
	if err != nil {
		return nil, err
	}
	o.InvalidateStatus(ctx, session)
	return summary, nil
}

// Status reports which artifacts exist per slide. The snapshot is cached;
// any artifact write invalidates it.
func (o *Orchestrator) Status(ctx context.Context, session string) (*model.SessionStatus, error) {
	if err := o.requireSession(session); err != nil {
		return nil, err
	}

	if o.statusCache != nil {
		if dirty, err := o.statusCache.IsDirty(ctx, session); err == nil && !dirty {
			if cached, hit, err := o.statusCache.GetStatus(ctx, session); err == nil && hit {
				return cached, nil
			}
		}
	}

	count := o.store.CountSlides(session)
	status := &model.SessionStatus{
		Token:      session,
		SlideCount: count,
		Slides:     make([]model.SlideStatus, 0, count),
		Summarized: o.store.SummaryExists(session),
	}
	for slide := 1; slide <= count; slide++ {
		status.Slides = append(status.Slides, model.SlideStatus{
			Slide:       slide,
			HasAudio:    o.store.Exists(session, slide, store.KindAudio),
			Transcribed: o.store.Exists(session, slide, store.KindTranscript),
			Reviewed:    o.store.Exists(session, slide, store.KindReview),
		})
	}

	if o.statusCache != nil {
		if dirty, err := o.statusCache.IsDirty(ctx, session); err == nil && !dirty {
			if err := o.statusCache.SetStatus(ctx, session, status); err != nil {
				log.Printf("cache session status failed for %s: %v", session, err)
			}
		}
	}
	return status, nil
}

// InvalidateStatus drops the cached progress snapshot after an artifact
// write. Cache trouble is logged, never surfaced.
func (o *Orchestrator) InvalidateStatus(ctx context.Context, session string) {
	if o.statusCache == nil {
		return
	}
	if err := o.statusCache.MarkDirty(ctx, session); err != nil {
		log.Printf("mark session status dirty failed for %s: %v", session, err)
	}
	if err := o.statusCache.DeleteStatus(ctx, session); err != nil {
		log.Printf("drop session status failed for %s: %v", session, err)
	}
}

func (o *Orchestrator) attachDeck(ctx context.Context, session string, cfg *model.ReviewConfig) {
	pdfPath, ok := o.store.FindDeckPDF(session)
	if !ok {
		return
	}
	if o.uploader != nil {
		handle, err := o.uploader.UploadFile(ctx, o.genCfg, pdfPath)
		if err == nil {
			cfg.Reference = &model.FileHandle{
				URI:      handle.URI,
				MIMEType: handle.MIMEType,
				Name:     filepath.Base(pdfPath),
			}
			return
		}
		log.Printf("upload deck reference failed for session %s: %v", session, err)
	}
	text, err := pdfextract.ExtractFile(pdfPath)
	if err != nil {
		log.Printf("extract deck text failed for session %s: %v", session, err)
		return
	}
	cfg.DeckText = clipRunes(strings.TrimSpace(text), maxDeckTextRunes)
}

func (o *Orchestrator) requireSession(session string) error {
	if strings.TrimSpace(session) == "" {
		return fmt.Errorf("%w: session token is empty", ErrValidation)
	}
	if !o.store.SessionExists(session) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, session)
	}
	return nil
}

func validSlide(slide int) error {
	if slide < 1 {
		return fmt.Errorf("%w: slide index %d must be 1-based", ErrValidation, slide)
	}
	return nil
}
