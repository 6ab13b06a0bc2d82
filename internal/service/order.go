package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/catalog"
	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
	"github.com/auraflora/shopbot-server-go/internal/model"
	"github.com/auraflora/shopbot-server-go/internal/notify"
	"github.com/auraflora/shopbot-server-go/internal/repository"
)

// OrderAggregator accumulates order fields across turns on the session
// row and drives the confirm step.
type OrderAggregator struct {
	sessionRepo repository.SessionRepository
	catalog     catalog.Provider
	notifier    notify.Notifier
	sessions    *SessionManager
}

func NewOrderAggregator(
	sessionRepo repository.SessionRepository,
	catalogProvider catalog.Provider,
	notifier notify.Notifier,
	sessions *SessionManager,
) *OrderAggregator {
	return &OrderAggregator{
		sessionRepo: sessionRepo,
		catalog:     catalogProvider,
		notifier:    notifier,
		sessions:    sessions,
	}
}

// Save merges newly provided fields into the session's draft. A product
// selection is validated against the live catalog first; an unknown
// retailer id drops the selection but still saves everything else.
func (a *OrderAggregator) Save(ctx context.Context, sessionID string, fields model.OrderFields) error {
	if fields.RetailerID != nil {
		product, err := a.catalog.Validate(ctx, *fields.RetailerID)
		switch {
		case err == nil:
			if product.Price != "" {
				price := product.Price
				fields.Price = &price
			}
		case apperrors.HasCode(err, apperrors.ErrCodeValidation):
			log.Warn().
				Str("sessionId", sessionID).
				Str("retailerId", *fields.RetailerID).
				Msg("product selection rejected by catalog, saving remaining fields")
			fields.RetailerID = nil
			fields.Bouquet = nil
			fields.Price = nil
		default:
			return fmt.Errorf("validate product: %w", err)
		}
	}

	if fields.IsEmpty() {
		return nil
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal order fields: %w", err)
	}
	session, err := a.sessionRepo.MergeOrderData(ctx, sessionID, raw)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if session == nil {
		return apperrors.NotFound("session")
	}

	log.Info().
		Str("sessionId", sessionID).
		RawJSON("fields", raw).
		Msg("order fields saved")
	return nil
}

// ConfirmResult reports what Confirm did.
type ConfirmResult struct {
	// AlreadyConfirmed is true when the order had been confirmed by an
	// earlier turn; no notification was sent.
	AlreadyConfirmed bool
	// NewSession is the fresh session opened after a successful confirm.
	NewSession *model.Session
}

// Confirm validates the draft, flips it to confirmed and notifies the
// fulfillment channel exactly once. A repeated confirm on the same
// session is a no-op. On success the session rolls over so the next
// message starts a clean conversation.
func (a *OrderAggregator) Confirm(ctx context.Context, sessionID, senderID string) (*ConfirmResult, error) {
	session, err := a.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session")
	}

	var fields model.OrderFields
	if len(session.OrderData) > 0 {
		if err := json.Unmarshal(session.OrderData, &fields); err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("decode order draft: %w", err))
		}
	}

	if missing := fields.MissingRequired(); len(missing) > 0 {
		return nil, apperrors.IncompleteOrder(missing)
	}

	confirmed, err := a.sessionRepo.ConfirmOrder(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if !confirmed {
		log.Info().
			Str("sessionId", sessionID).
			Msg("order already confirmed, skipping notification")
		return &ConfirmResult{AlreadyConfirmed: true}, nil
	}

	summary := fields.OperatorSummary(senderID)
	if err := a.notifier.NotifyOrder(ctx, summary); err != nil {
		// The order stays confirmed; operators can recover it from the
		// logs and the database.
		log.Error().Err(err).
			Str("sessionId", sessionID).
			Str("summary", summary).
			Msg("fulfillment notification failed")
	}

	newSession, err := a.sessions.Rollover(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("rollover after confirm: %w", err)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("newSessionId", newSession.ID).
		Str("senderId", senderID).
		Msg("order confirmed")

	return &ConfirmResult{NewSession: newSession}, nil
}
