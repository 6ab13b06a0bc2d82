// Package whatsapp sends outbound messages through the WhatsApp
// Business Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v23.0"

// flowerEmoji is appended to every customer-facing text, matching the
// shop's brand voice.
const flowerEmoji = "\U0001F338"

// Sender is the outbound surface the rest of the service depends on.
type Sender interface {
	SendText(ctx context.Context, to, body string) (messageID string, err error)
	SendImageWithCaption(ctx context.Context, to, imageURL, caption string) (messageID string, err error)
	MarkRead(ctx context.Context, messageID string) error
	SendTyping(ctx context.Context, messageID string) error
}

// Client talks to the Cloud API messages endpoint for one phone number.
type Client struct {
	baseURL    string
	token      string
	phoneID    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(token, phoneID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultGraphBaseURL,
		token:      token,
		phoneID:    phoneID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"body": withFlowerEmoji(body),
		},
	}
	return c.postMessage(ctx, payload)
}

func (c *Client) SendImageWithCaption(ctx context.Context, to, imageURL, caption string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image": map[string]any{
			"link":    imageURL,
			"caption": withFlowerEmoji(caption),
		},
	}
	return c.postMessage(ctx, payload)
}

// MarkRead flags the inbound message as read so the customer sees the
// blue ticks while the reply is being generated.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	_, err := c.postMessage(ctx, payload)
	return err
}

// SendTyping shows the typing indicator. The Cloud API ties it to the
// message being replied to and clears it automatically.
func (c *Client) SendTyping(ctx context.Context, messageID string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
		"typing_indicator": map[string]any{
			"type": "text",
		},
	}
	_, err := c.postMessage(ctx, payload)
	return err
}

func (c *Client) postMessage(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.ExternalTimeout("whatsapp", err)
		}
		return "", apperrors.External("whatsapp", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", apperrors.External("whatsapp",
			fmt.Errorf("unexpected status %d: %s", res.StatusCode, string(buf)))
	}

	var parsed sendResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&parsed); err != nil {
		// Status endpoints return an ack without a messages array.
		return "", nil
	}
	if len(parsed.Messages) > 0 {
		return parsed.Messages[0].ID, nil
	}
	return "", nil
}

func withFlowerEmoji(text string) string {
	text = strings.TrimRight(text, " \n")
	if strings.HasSuffix(text, flowerEmoji) {
		return text
	}
	return text + " " + flowerEmoji
}
