package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
	"github.com/auraflora/shopbot-server-go/internal/model"
)

// MessagePipeline is the processing entry point the webhook feeds.
type MessagePipeline interface {
	HandleMessage(ctx context.Context, intent model.MessageIntent) error
}

type WebhookHandler struct {
	pipeline    MessagePipeline
	verifyToken string
	metrics     webhookMetrics
}

func NewWebhookHandler(pipeline MessagePipeline, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		pipeline:    pipeline,
		verifyToken: verifyToken,
	}
}

// Verify answers the platform's GET subscription handshake: echo
// hub.challenge when the verify token matches.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		log.Info().Msg("webhook verification succeeded")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	log.Warn().Str("mode", mode).Msg("webhook verification rejected")
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "Verification failed"})
}

// Receive handles POSTed events. Anything we cannot or will not process
// still answers 200: a non-2xx makes the platform retry, and retries of
// bad events only produce more bad events. The single exception is a
// body that is not JSON at all.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	h.metrics.total.Add(1)

	var envelope WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.metrics.malformed.Add(1)
		log.Warn().Err(err).Msg("malformed webhook body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	switch envelope.Classify() {
	case model.EventKindStatus:
		// Delivery receipts need no processing.
		h.metrics.status.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	case model.EventKindUnsupported:
		h.metrics.unsupported.Add(1)
		log.Debug().Msg("unsupported webhook event")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	intent, ok := envelope.Intent()
	if !ok || intent.MessageID == "" || intent.SenderID == "" {
		h.metrics.malformed.Add(1)
		log.Warn().Msg("message event missing id or sender")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.pipeline.HandleMessage(r.Context(), intent); err != nil {
		switch apperrors.GetCode(err) {
		case apperrors.ErrCodeDuplicateEvent:
			h.metrics.duplicate.Add(1)
			log.Info().Str("messageId", intent.MessageID).Msg("duplicate event acknowledged")
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		case apperrors.ErrCodeStaleEvent:
			h.metrics.stale.Add(1)
			writeJSON(w, http.StatusOK, map[string]string{"status": "stale"})
		default:
			// Processing failed after the event was accepted; retrying
			// the webhook would double-process, so ack anyway.
			h.metrics.failed.Add(1)
			log.Error().Err(err).
				Str("messageId", intent.MessageID).
				Str("senderId", intent.SenderID).
				Msg("message processing failed")
			writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		}
		return
	}

	h.metrics.processed.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// Health reports liveness plus the event counters since start.
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
		"events":    h.metrics.snapshot(),
	})
}
