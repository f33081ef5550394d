package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TranscribeConfig holds API settings for the speech-to-text collaborator
// (an OpenAI-compatible /audio/transcriptions endpoint). Model selects the
// whisper tier, e.g. "tiny" or "base".
type TranscribeConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// TranscribeRequest describes one transcription call. Audio is referenced by
// path, never buffered whole into the request struct.
type TranscribeRequest struct {
	AudioPath string
	Language  string
}

// WhisperClient posts audio to a whisper-compatible server. Safe for
// concurrent use; construct once per process.
type WhisperClient struct {
	httpClient *http.Client
}

func NewWhisperClient() *WhisperClient {
	return &WhisperClient{
		// Transcription of a multi-minute narration can be slow on CPU hosts.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe uploads the audio file and returns the transcript text. FP32 is
// forced so CPU and accelerated servers behave identically. A response that
// is not the expected JSON shape degrades to the stringified body rather
// than an error; transport and status failures are real errors.
func (c *WhisperClient) Transcribe(ctx context.Context, cfg TranscribeConfig, req TranscribeRequest) (string, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file failed: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return "", fmt.Errorf("build transcribe form failed: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio into form failed: %w", err)
	}
	fields := map[string]string{
		"model":           cfg.Model,
		"language":        req.Language,
		"response_format": "json",
		"fp16":            "false",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("write transcribe field failed: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close transcribe form failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build transcribe request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transcribe request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcribe response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcribe response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Text != "" {
		return parsed.Text, nil
	}
	// Unexpected shape: keep whatever came back instead of failing the stage.
	return strings.TrimSpace(string(raw)), nil
}
