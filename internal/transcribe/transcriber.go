// Package transcribe converts inbound voice notes to text so they can
// join the conversation history like any other message.
package transcribe

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

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

// PlaceholderText is stored when transcription is disabled or fails.
// The assistant sees it and asks the customer to type instead.
const PlaceholderText = "[AUDIO]"

// Transcriber turns an audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// WhisperTranscriber calls an OpenAI-compatible audio transcriptions
// endpoint.
type WhisperTranscriber struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewWhisperTranscriber(apiKey, baseURL string) *WhisperTranscriber {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &WhisperTranscriber{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      "whisper-1",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("transcribe: create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("transcribe: copy audio: %w", err)
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("transcribe: write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close form: %w", err)
	}

	url := t.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("transcribe: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	res, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.ExternalTimeout("transcription", err)
		}
		return "", apperrors.External("transcription", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", apperrors.External("transcription",
			fmt.Errorf("unexpected status %d: %s", res.StatusCode, string(body)))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", apperrors.External("transcription", fmt.Errorf("decode response: %w", err))
	}
	return strings.TrimSpace(parsed.Text), nil
}

// Disabled is used when voice transcription is switched off.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, io.Reader, string) (string, error) {
	return PlaceholderText, nil
}
