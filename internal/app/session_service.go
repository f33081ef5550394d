package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"slidecoach/internal/convert"
	"slidecoach/internal/model"
	"slidecoach/internal/pipeline"
	"slidecoach/internal/repository"
	"slidecoach/internal/store"
)

var ErrJobEnqueue = errors.New("transcribe job enqueue failed")

type TranscribeJobPublisher interface {
	Publish(ctx context.Context, job model.TranscribeJob) error
}

type StatusInvalidator interface {
	InvalidateStatus(ctx context.Context, session string)
}

// SessionRegistry is the session lookup surface the service needs.
// *repository.SessionRepository satisfies it.
type SessionRegistry interface {
	Create(session *model.Session) error
	GetByToken(token string) (*model.Session, error)
	List() ([]model.Session, error)
	UpdateSlideCount(token string, slideCount int) error
}

var _ SessionRegistry = (*repository.SessionRepository)(nil)

// SessionService owns deck and narration ingestion. Review and transcript
// reads go through the pipeline orchestrator instead.
type SessionService struct {
	sessions  SessionRegistry
	store     *store.Store
	publisher TranscribeJobPublisher
	statuses  StatusInvalidator
}

type DeckUpload struct {
	Token      string   `json:"session_token"`
	DeckName   string   `json:"deck_name"`
	SlideCount int      `json:"slide_count"`
	Slides     []string `json:"slides"`
}

func NewSessionService(
	sessions SessionRegistry,
	artifactStore *store.Store,
	publisher TranscribeJobPublisher,
	statuses StatusInvalidator,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		store:     artifactStore,
		publisher: publisher,
		statuses:  statuses,
	}
}

func (s *SessionService) UploadDeck(ctx context.Context, fileName string, src io.Reader) (*DeckUpload, error) {
	if err := pipeline.ValidateDeckExtension(fileName); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(fileName))

	token := uuid.NewString()
	if err := s.store.EnsureSession(token); err != nil {
		return nil, err
	}

	deckPath := filepath.Join(s.store.UploadDir(token), "deck"+ext)
	if err := saveStream(deckPath, src); err != nil {
		return nil, err
	}

	pdfPath := deckPath
	if ext == ".pptx" {
		converted, err := convert.ConvertDeckToPDF(ctx, deckPath, s.store.UploadDir(token))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrValidation, err)
		}
		pdfPath = converted
	}

	slideCount, err := convert.RasterizeDeck(ctx, pdfPath, s.store.SlidesDir(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrValidation, err)
	}

	session := &model.Session{
		Token:      token,
		DeckName:   fileName,
		SlideCount: slideCount,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	return deckUpload(token, fileName, slideCount), nil
}

func (s *SessionService) ListSlides(token string) (*DeckUpload, error) {
	session, err := s.requireSession(token)
	if err != nil {
		return nil, err
	}

	slideCount := session.SlideCount
	if slideCount == 0 {
		// The artifact tree is the source of truth; repair a stale row.
		if slideCount = s.store.CountSlides(token); slideCount > 0 {
			if err := s.sessions.UpdateSlideCount(token, slideCount); err != nil {
				log.Printf("repair session slide count for %s failed: %v", token, err)
			}
		}
	}
	return deckUpload(token, session.DeckName, slideCount), nil
}

func (s *SessionService) Sessions() ([]model.Session, error) {
	return s.sessions.List()
}

func (s *SessionService) SaveAudio(ctx context.Context, token string, slide int, fileName string, src io.Reader) error {
	if _, err := s.requireSession(token); err != nil {
		return err
	}
	if slide < 1 {
		return fmt.Errorf("%w: slide index must be positive", pipeline.ErrValidation)
	}

	ext := pipeline.AudioExtension(fileName)
	savedPath, err := s.store.SaveAudio(token, slide, ext, src)
	if err != nil {
		return err
	}

	if ext != ".mp3" {
		mp3Path := s.store.Path(token, slide, store.KindAudio)
		if err := convert.TranscodeToMP3(ctx, savedPath, mp3Path); err != nil {
			// Transcription falls back to the original upload.
			log.Printf("transcode audio session=%s slide=%d failed: %v", token, slide, err)
		} else if err := os.Remove(savedPath); err != nil {
			log.Printf("remove raw audio upload failed: %v", err)
		}
	}

	if s.publisher != nil {
		job := model.TranscribeJob{SessionToken: token, Slide: slide}
		if err := s.publisher.Publish(ctx, job); err != nil {
			return fmt.Errorf("%w: %v", ErrJobEnqueue, err)
		}
	}
	if s.statuses != nil {
		s.statuses.InvalidateStatus(ctx, token)
	}
	return nil
}

func (s *SessionService) requireSession(token string) (*model.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: session token is empty", pipeline.ErrValidation)
	}
	session, err := s.sessions.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrSessionNotFound, token)
	}
	return session, nil
}

func deckUpload(token, deckName string, slideCount int) *DeckUpload {
	slides := make([]string, 0, slideCount)
	for i := 1; i <= slideCount; i++ {
		slides = append(slides, fmt.Sprintf("/images/%s/slides/slide-%d.png", token, i))
	}
	return &DeckUpload{
		Token:      token,
		DeckName:   deckName,
		SlideCount: slideCount,
		Slides:     slides,
	}
}

func saveStream(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: save upload: %v", store.ErrStorage, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("%w: save upload: %v", store.ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: save upload: %v", store.ErrStorage, err)
	}
	return nil
}
