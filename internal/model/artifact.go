package model

// Transcript is the per-slide speech-to-text artifact. Raw is the model
// output verbatim; Polished is the same text after punctuation and casing
// restoration. The JSON field names match the on-disk documents.
type Transcript struct {
	Raw      string `json:"raw"`
	Polished string `json:"polished"`
	Language string `json:"lang"`
}

// Review is the structured critique for one slide, and doubles as the
// deck-level summary document (only the tip ceiling differs).
type Review struct {
	Feedback string   `json:"feedback"`
	Tips     []string `json:"tips"`
}

// FileHandle references a document previously uploaded to the generative
// collaborator's file store.
type FileHandle struct {
	URI      string `json:"file_uri"`
	MIMEType string `json:"mime_type"`
	Name     string `json:"name,omitempty"`
}

// ReviewConfig is written once per review session. Reference is set when the
// deck was uploaded to the collaborator; DeckText carries locally extracted
// deck text when remote upload is unavailable. Both may be empty.
type ReviewConfig struct {
	Mode      string      `json:"mode"`
	ExtraInfo string      `json:"extraInfo"`
	Reference *FileHandle `json:"reference,omitempty"`
	DeckText  string      `json:"deck_text,omitempty"`
}

// SlideStatus reports which artifacts exist for one slide.
type SlideStatus struct {
	Slide       int  `json:"slide"`
	HasAudio    bool `json:"has_audio"`
	Transcribed bool `json:"transcribed"`
	Reviewed    bool `json:"reviewed"`
}

// SessionStatus is the progress snapshot served by the status endpoint.
type SessionStatus struct {
	Token      string        `json:"token"`
	SlideCount int           `json:"slide_count"`
	Slides     []SlideStatus `json:"slides"`
	Summarized bool          `json:"summarized"`
}

// TranscribeJob is the queue payload asking the worker to produce a
// transcript for one slide.
type TranscribeJob struct {
	SessionToken string `json:"session_token"`
	Slide        int    `json:"slide"`
}
