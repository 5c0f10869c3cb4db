package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Transcriber is the speech-to-text collaborator: a short audio clip in,
// transcribed text out. Best-effort input convenience, not part of the
// triage contract.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error)
}

// GatewayTranscriber posts audio to the AI gateway's transcription endpoint.
type GatewayTranscriber struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func (t GatewayTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error) {
	if t.Client == nil {
		t.Client = &http.Client{Timeout: 30 * time.Second}
	}
	model := t.Model
	if model == "" {
		model = "whisper-1"
	}
	if language == "" {
		language = "en"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	_ = w.WriteField("model", model)
	_ = w.WriteField("language", language)
	if err := w.Close(); err != nil {
		return "", err
	}

	url := strings.TrimRight(t.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if strings.TrimSpace(t.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", RateLimitError{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription http error: %s", resp.Status)
	}

	var res struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.Text, nil
}
