package pipeline

import "errors"

var (
	// ErrValidation covers unsupported languages, model identifiers,
	// extensions, tip ceilings, and missing required input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrSessionNotFound means the session token has no data directory.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAudioNotFound means the bounded existence poll was exhausted. The
	// caller may retry once the recording has been uploaded.
	ErrAudioNotFound = errors.New("audio not found")

	// ErrCollaborator marks a failed or unusable speech-to-text or
	// generative-text call at a step that is not tolerant of bad output.
	ErrCollaborator = errors.New("collaborator call failed")
)
