package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileData references a document previously uploaded to the model's file
// store.
type FileData struct {
	FileURI  string `json:"file_uri"`
	MIMEType string `json:"mime_type"`
}

// Part is one element of a content turn: either plain text or a file
// reference, never both.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"file_data,omitempty"`
}

// Content is one role-tagged turn in a generateContent request.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func FilePart(uri, mimeType string) Part {
	return Part{FileData: &FileData{FileURI: uri, MIMEType: mimeType}}
}

// GenerateConfig holds API settings for one generateContent call.
type GenerateConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// GeminiClient is a thin REST client for the generative-text collaborator.
// It is safe for concurrent use and meant to be constructed once per process.
type GeminiClient struct {
	httpClient *http.Client
}

func NewGeminiClient() *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Generate sends the ordered contents to the model and returns the raw
// textual response. The caller must treat the text as unstructured.
func (c *GeminiClient) Generate(ctx context.Context, cfg GenerateConfig, contents []Content) (string, error) {
	reqBody := map[string]interface{}{
		"contents": contents,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request failed: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build generate request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("generate response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse generate json failed: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("empty generate candidates")
	}
	var out strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}

// FileHandleResult is the remote identity of an uploaded file.
type FileHandleResult struct {
	URI      string
	MIMEType string
}

// UploadFile pushes a local file to the collaborator's file store so later
// generate calls can attach it by URI.
func (c *GeminiClient) UploadFile(ctx context.Context, cfg GenerateConfig, path string) (*FileHandleResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload file failed: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	// The media upload endpoint lives under /upload, not the model path.
	url := strings.Replace(base, "/v1beta", "/upload/v1beta", 1) + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("x-goog-api-key", cfg.APIKey)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", filepath.Base(path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		File struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
		} `json:"file"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse upload json failed: %w", err)
	}
	if parsed.File.URI == "" {
		return nil, fmt.Errorf("upload response missing file uri")
	}
	if parsed.File.MIMEType == "" {
		parsed.File.MIMEType = mimeType
	}
	return &FileHandleResult{URI: parsed.File.URI, MIMEType: parsed.File.MIMEType}, nil
}
