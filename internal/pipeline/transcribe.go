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

// SpeechToText is the speech recognition collaborator.
type SpeechToText interface {
	Transcribe(ctx context.Context, cfg ai.TranscribeConfig, req ai.TranscribeRequest) (string, error)
}

// TextGenerator is the generative-text collaborator.
type TextGenerator interface {
	Generate(ctx context.Context, cfg ai.GenerateConfig, contents []ai.Content) (string, error)
}

// TranscriptionStage produces per-slide transcripts, using the artifact
// store as a cache and waiting a bounded time for audio that is still being
// uploaded.
type TranscriptionStage struct {
	store    *store.Store
	stt      SpeechToText
	sttCfg   ai.TranscribeConfig
	gen      TextGenerator
	genCfg   ai.GenerateConfig
	language string
	poll     PollPolicy
}

func NewTranscriptionStage(
	st *store.Store,
	stt SpeechToText,
	sttCfg ai.TranscribeConfig,
	gen TextGenerator,
	genCfg ai.GenerateConfig,
	language string,
	poll PollPolicy,
) *TranscriptionStage {
	return &TranscriptionStage{
		store:    st,
		stt:      stt,
		sttCfg:   sttCfg,
		gen:      gen,
		genCfg:   genCfg,
		language: language,
		poll:     poll,
	}
}

// GetTranscript returns the slide's transcript, computing and caching it on
// a miss. A cached transcript is returned as-is even if the audio changed
// since; recomputation is explicit, not implicit. Failure to persist the
// freshly computed transcript is logged, not fatal: the value is still
// returned.
func (t *TranscriptionStage) GetTranscript(ctx context.Context, session string, slide int) (*model.Transcript, error) {
	cached, err := t.store.ReadTranscript(session, slide)
	if err != nil {
		// Corrupt cache document: recompute instead of failing the request.
		log.Printf("transcript cache read failed for session %s slide %d: %v", session, slide, err)
	}
	if cached != nil {
		return cached, nil
	}

	var audioPath string
	found := t.poll.Wait(func() bool {
		path, ok := t.store.FindAudio(session, slide)
		if ok {
			audioPath = path
		}
		return ok
	})
	if !found {
		return nil, fmt.Errorf("%w: session %s slide %d", ErrAudioNotFound, session, slide)
	}

	rawText, err := t.stt.Transcribe(ctx, t.sttCfg, ai.TranscribeRequest{
		AudioPath: audioPath,
		Language:  t.language,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: transcribe session %s slide %d: %v", ErrCollaborator, session, slide, err)
	}

	polished, err := t.restore(ctx, rawText)
	if err != nil {
		// Raw text without polish is a materially worse product; surface it.
		return nil, fmt.Errorf("%w: restore transcript session %s slide %d: %v", ErrCollaborator, session, slide, err)
	}

	transcript := &model.Transcript{
		Raw:      strings.TrimSpace(rawText),
		Polished: polished,
		Language: t.language,
	}
	if err := t.store.WriteTranscript(session, slide, transcript); err != nil {
		log.Printf("cache transcript failed for session %s slide %d: %v", session, slide, err)
	}
	return transcript, nil
}

// restore asks the generative collaborator to fix punctuation, casing and
// paragraphing without adding or dropping information. Empty raw text is
// returned as-is; there is nothing to restore.
func (t *TranscriptionStage) restore(ctx context.Context, rawText string) (string, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return "", nil
	}
	contents := []ai.Content{
		{Role: "user", Parts: []ai.Part{ai.TextPart(restoreInstruction(t.language))}},
		{Role: "user", Parts: []ai.Part{ai.TextPart(rawText)}},
	}
	polished, err := t.gen.Generate(ctx, t.genCfg, contents)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(polished), nil
}
