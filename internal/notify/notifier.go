// Package notify pushes confirmed-order summaries to the fulfillment
// channel the shop operators watch.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
)

// Notifier delivers one operator-facing message per confirmed order.
type Notifier interface {
	NotifyOrder(ctx context.Context, summary string) error
}

// HTTPNotifier posts the summary as JSON to a webhook endpoint.
type HTTPNotifier struct {
	url        string
	token      string
	httpClient *http.Client
}

func NewHTTPNotifier(url, token string) *HTTPNotifier {
	return &HTTPNotifier{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *HTTPNotifier) NotifyOrder(ctx context.Context, summary string) error {
	body, err := json.Marshal(map[string]string{"text": summary})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	res, err := n.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.ExternalTimeout("fulfillment", err)
		}
		return apperrors.External("fulfillment", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return apperrors.External("fulfillment",
			fmt.Errorf("unexpected status %d: %s", res.StatusCode, string(buf)))
	}
	return nil
}

// NoopNotifier is used when no fulfillment endpoint is configured. The
// summary still lands in the logs so orders are never silently lost.
type NoopNotifier struct{}

func (NoopNotifier) NotifyOrder(_ context.Context, summary string) error {
	log.Info().Str("summary", summary).Msg("Order confirmed (no fulfillment endpoint configured)")
	return nil
}
