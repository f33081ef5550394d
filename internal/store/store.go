package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"slidecoach/internal/model"
)

// ErrStorage marks artifact read/write failures. Callers treat it as fatal
// for required reads and log-and-continue for best-effort cache writes.
var ErrStorage = errors.New("artifact storage failure")

// Kind selects which per-slide artifact a key addresses.
type Kind string

const (
	KindImage      Kind = "image"
	KindAudio      Kind = "audio"
	KindTranscript Kind = "transcript"
	KindReview     Kind = "review"
)

const (
	uploadDir = "upload"
	slidesDir = "slides"
	audioDir  = "audio"
	reviewDir = "review"

	configName  = "config.json"
	summaryName = "summary.json"
)

// Store maps (session, slide, kind) keys to files under a root data
// directory. Writes are temp-then-rename atomic so a concurrent reader only
// ever observes a complete document.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) SessionDir(session string) string {
	return filepath.Join(s.root, session)
}

func (s *Store) UploadDir(session string) string {
	return filepath.Join(s.root, session, uploadDir)
}

func (s *Store) SlidesDir(session string) string {
	return filepath.Join(s.root, session, slidesDir)
}

// EnsureSession creates the directory skeleton for a new session.
func (s *Store) EnsureSession(session string) error {
	for _, dir := range []string{uploadDir, slidesDir, audioDir, reviewDir} {
		if err := os.MkdirAll(filepath.Join(s.root, session, dir), 0o755); err != nil {
			return fmt.Errorf("%w: create session dir: %v", ErrStorage, err)
		}
	}
	return nil
}

func (s *Store) SessionExists(session string) bool {
	info, err := os.Stat(s.SessionDir(session))
	return err == nil && info.IsDir()
}

// Path returns the canonical file location for an artifact key. Audio has no
// canonical extension until transcoded; Path points at the mp3.
func (s *Store) Path(session string, slide int, kind Kind) string {
	switch kind {
	case KindImage:
		return filepath.Join(s.root, session, slidesDir, fmt.Sprintf("slide-%d.png", slide))
	case KindAudio:
		return filepath.Join(s.root, session, audioDir, fmt.Sprintf("slide-%d.mp3", slide))
	case KindTranscript:
		return filepath.Join(s.root, session, audioDir, fmt.Sprintf("slide-%d.json", slide))
	case KindReview:
		return filepath.Join(s.root, session, reviewDir, fmt.Sprintf("slide-%d-review.json", slide))
	}
	return ""
}

func (s *Store) Exists(session string, slide int, kind Kind) bool {
	if kind == KindAudio {
		_, ok := s.FindAudio(session, slide)
		return ok
	}
	_, err := os.Stat(s.Path(session, slide, kind))
	return err == nil
}

func (s *Store) Read(session string, slide int, kind Kind) ([]byte, error) {
	data, err := os.ReadFile(s.Path(session, slide, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s slide %d: %v", ErrStorage, kind, slide, err)
	}
	return data, nil
}

func (s *Store) Write(session string, slide int, kind Kind, data []byte) error {
	return s.writeAtomic(s.Path(session, slide, kind), data)
}

// FindAudio locates the audio artifact for a slide. The transcoded mp3 is
// preferred; otherwise any slide-<n>.<ext> upload qualifies, matching the
// behavior before transcoding finishes.
func (s *Store) FindAudio(session string, slide int) (string, bool) {
	mp3 := s.Path(session, slide, KindAudio)
	if _, err := os.Stat(mp3); err == nil {
		return mp3, true
	}
	pattern := filepath.Join(s.root, session, audioDir, fmt.Sprintf("slide-%d.*", slide))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	for _, m := range matches {
		if strings.HasSuffix(m, ".json") {
			continue
		}
		return m, true
	}
	return "", false
}

// SaveAudio streams an uploaded recording to audio/slide-<n><ext>.
func (s *Store) SaveAudio(session string, slide int, ext string, r io.Reader) (string, error) {
	path := filepath.Join(s.root, session, audioDir, fmt.Sprintf("slide-%d%s", slide, ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: save audio: %v", ErrStorage, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("%w: save audio: %v", ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: save audio: %v", ErrStorage, err)
	}
	return path, nil
}

func (s *Store) ReadTranscript(session string, slide int) (*model.Transcript, error) {
	var t model.Transcript
	ok, err := s.readJSON(s.Path(session, slide, KindTranscript), &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (s *Store) WriteTranscript(session string, slide int, t *model.Transcript) error {
	return s.writeJSON(s.Path(session, slide, KindTranscript), t)
}

func (s *Store) ReadReview(session string, slide int) (*model.Review, error) {
	var r model.Review
	ok, err := s.readJSON(s.Path(session, slide, KindReview), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func (s *Store) WriteReview(session string, slide int, r *model.Review) error {
	return s.writeJSON(s.Path(session, slide, KindReview), r)
}

func (s *Store) ReadConfig(session string) (*model.ReviewConfig, error) {
	var c model.ReviewConfig
	ok, err := s.readJSON(filepath.Join(s.root, session, reviewDir, configName), &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (s *Store) WriteConfig(session string, c *model.ReviewConfig) error {
	return s.writeJSON(filepath.Join(s.root, session, reviewDir, configName), c)
}

func (s *Store) ReadSummary(session string) (*model.Review, error) {
	var r model.Review
	ok, err := s.readJSON(filepath.Join(s.root, session, reviewDir, summaryName), &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func (s *Store) WriteSummary(session string, r *model.Review) error {
	return s.writeJSON(filepath.Join(s.root, session, reviewDir, summaryName), r)
}

func (s *Store) SummaryExists(session string) bool {
	_, err := os.Stat(filepath.Join(s.root, session, reviewDir, summaryName))
	return err == nil
}

// SlideReview pairs a persisted review with its slide index.
type SlideReview struct {
	Slide  int
	Review model.Review
}

// ListReviews returns every persisted per-slide review in ascending slide
// order. Unreadable documents are skipped, not fatal: the summary is a
// snapshot over whatever is intact.
func (s *Store) ListReviews(session string) ([]SlideReview, error) {
	pattern := filepath.Join(s.root, session, reviewDir, "slide-*-review.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews: %v", ErrStorage, err)
	}
	out := make([]SlideReview, 0, len(matches))
	for _, m := range matches {
		idx, ok := slideIndexFromName(filepath.Base(m), "slide-", "-review.json")
		if !ok {
			continue
		}
		var r model.Review
		if ok, err := s.readJSON(m, &r); err != nil || !ok {
			continue
		}
		out = append(out, SlideReview{Slide: idx, Review: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slide < out[j].Slide })
	return out, nil
}

// SlideTranscript pairs a persisted transcript with its slide index.
type SlideTranscript struct {
	Slide      int
	Transcript model.Transcript
}

// ListTranscripts returns every persisted transcript in ascending slide
// order, skipping unreadable documents.
func (s *Store) ListTranscripts(session string) ([]SlideTranscript, error) {
	pattern := filepath.Join(s.root, session, audioDir, "slide-*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: list transcripts: %v", ErrStorage, err)
	}
	out := make([]SlideTranscript, 0, len(matches))
	for _, m := range matches {
		idx, ok := slideIndexFromName(filepath.Base(m), "slide-", ".json")
		if !ok {
			continue
		}
		var t model.Transcript
		if ok, err := s.readJSON(m, &t); err != nil || !ok {
			continue
		}
		out = append(out, SlideTranscript{Slide: idx, Transcript: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slide < out[j].Slide })
	return out, nil
}

// CountSlides reports how many rasterized slide images the session has.
func (s *Store) CountSlides(session string) int {
	matches, err := filepath.Glob(filepath.Join(s.root, session, slidesDir, "slide-*.png"))
	if err != nil {
		return 0
	}
	return len(matches)
}

// FindDeckPDF returns a PDF belonging to the session upload, preferring the
// upload directory (a PPTX deck leaves its converted PDF there too).
func (s *Store) FindDeckPDF(session string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(s.UploadDir(session), "*.pdf"))
	if len(matches) > 0 {
		sort.Strings(matches)
		return matches[0], true
	}
	return "", false
}

func (s *Store) readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %v", ErrStorage, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrStorage, filepath.Base(path), err)
	}
	return true, nil
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, filepath.Base(path), err)
	}
	return s.writeAtomic(path, data)
}

func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrStorage, filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrStorage, filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrStorage, filepath.Base(path), err)
	}
	return nil
}

func slideIndexFromName(name, prefix, suffix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 1 {
		return 0, false
	}
	return idx, true
}
