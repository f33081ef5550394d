package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var supportedLanguages = map[string]struct{}{
	"en": {},
	"ru": {},
}

var whisperTiers = map[string]struct{}{
	"tiny":   {},
	"base":   {},
	"small":  {},
	"medium": {},
	"large":  {},
}

var deckExtensions = map[string]struct{}{
	".pdf":  {},
	".pptx": {},
}

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".mp4":  {},
	".m4a":  {},
	".wav":  {},
	".webm": {},
	".ogg":  {},
}

func ValidateLanguage(lang string) error {
	if _, ok := supportedLanguages[lang]; !ok {
		return fmt.Errorf("%w: language %q is not supported (supported: %s)",
			ErrValidation, lang, keysOf(supportedLanguages))
	}
	return nil
}

func ValidateWhisperTier(tier string) error {
	if _, ok := whisperTiers[tier]; !ok {
		return fmt.Errorf("%w: whisper tier %q is not supported (supported: %s)",
			ErrValidation, tier, keysOf(whisperTiers))
	}
	return nil
}

// ValidateTipLimit checks a tip ceiling; both stage ceilings are
// independently configurable within 0..5.
func ValidateTipLimit(n int) error {
	if n < 0 || n > 5 {
		return fmt.Errorf("%w: tip limit %d out of range 0..5", ErrValidation, n)
	}
	return nil
}

func ValidateDeckExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := deckExtensions[ext]; !ok {
		return fmt.Errorf("%w: deck extension %q is not supported (supported: %s)",
			ErrValidation, ext, keysOf(deckExtensions))
	}
	return nil
}

// AudioExtension returns a safe extension for an uploaded recording,
// defaulting to .webm when the client sent none or something implausible.
func AudioExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := audioExtensions[ext]; ok {
		return ext
	}
	return ".webm"
}

func keysOf(set map[string]struct{}) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
