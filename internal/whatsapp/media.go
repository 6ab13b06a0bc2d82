package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

// MediaFetcher resolves and downloads inbound media payloads.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) (io.ReadCloser, string, error)
}

type mediaDescriptor struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	ID       string `json:"id"`
}

// FetchMedia resolves the media id to its download URL and streams the
// payload. The caller owns the returned reader. The second result is a
// filename hint derived from the mime type.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) (io.ReadCloser, string, error) {
	desc, err := c.describeMedia(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: create media request: %w", err)
	}
	// The CDN URL requires the same bearer token as the Graph API.
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.External("whatsapp", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
		return nil, "", apperrors.External("whatsapp",
			fmt.Errorf("media download status %d: %s", res.StatusCode, string(buf)))
	}
	return res.Body, filenameFor(desc.MimeType), nil
}

func (c *Client) describeMedia(ctx context.Context, mediaID string) (*mediaDescriptor, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create media lookup: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.External("whatsapp", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, apperrors.External("whatsapp",
			fmt.Errorf("media lookup status %d: %s", res.StatusCode, string(buf)))
	}

	var desc mediaDescriptor
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&desc); err != nil {
		return nil, apperrors.External("whatsapp", fmt.Errorf("decode media descriptor: %w", err))
	}
	if desc.URL == "" {
		return nil, apperrors.External("whatsapp", fmt.Errorf("media %s has no download url", mediaID))
	}
	return &desc, nil
}

func filenameFor(mimeType string) string {
	switch mimeType {
	case "audio/ogg", "audio/ogg; codecs=opus":
		return "voice.ogg"
	case "audio/mpeg":
		return "voice.mp3"
	case "audio/mp4", "audio/m4a":
		return "voice.m4a"
	default:
		return "media.bin"
	}
}
