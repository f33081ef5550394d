package pipeline

// Settings carries the validated pipeline knobs. Construct via NewSettings;
// an invalid combination is an ErrValidation, reported once at startup
// instead of surfacing mid-request.
type Settings struct {
	Language        string
	WhisperTier     string
	SlideTipLimit   int
	SummaryTipLimit int
	TranscriptClip  int
	AttachReference bool
}

func NewSettings(language, whisperTier string, slideTips, summaryTips, transcriptClip int, attachReference bool) (Settings, error) {
	if err := ValidateLanguage(language); err != nil {
		return Settings{}, err
	}
	if err := ValidateWhisperTier(whisperTier); err != nil {
		return Settings{}, err
	}
	if err := ValidateTipLimit(slideTips); err != nil {
		return Settings{}, err
	}
	if err := ValidateTipLimit(summaryTips); err != nil {
		return Settings{}, err
	}
	if transcriptClip <= 0 {
		transcriptClip = 500
	}
	return Settings{
		Language:        language,
		WhisperTier:     whisperTier,
		SlideTipLimit:   slideTips,
		SummaryTipLimit: summaryTips,
		TranscriptClip:  transcriptClip,
		AttachReference: attachReference,
	}, nil
}
