package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/database"
	"github.com/auraflora/shopbot-server-go/internal/model"
	"github.com/auraflora/shopbot-server-go/internal/repository"
)

// ConversationStore persists messages and serves bounded history reads.
// The append-and-read path runs in one transaction so a concurrent
// webhook delivery can never observe the history without the message
// that triggered it.
type ConversationStore struct {
	db          *database.DB
	messageRepo repository.MessageRepository
	sessionRepo repository.SessionRepository
	historyCap  int
}

func NewConversationStore(
	db *database.DB,
	messageRepo repository.MessageRepository,
	sessionRepo repository.SessionRepository,
	historyCap int,
) *ConversationStore {
	return &ConversationStore{
		db:          db,
		messageRepo: messageRepo,
		sessionRepo: sessionRepo,
		historyCap:  historyCap,
	}
}

// Append stores one message and bumps the session counters. Returns
// false without error when the message id was already stored.
func (s *ConversationStore) Append(ctx context.Context, params model.CreateMessageParams) (bool, error) {
	var inserted bool
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		inserted, txErr = s.appendTx(ctx, tx, params)
		return txErr
	})
	if err != nil {
		return false, fmt.Errorf("append message: %w", err)
	}
	return inserted, nil
}

// AppendAndReadHistory stores the inbound message and returns the
// session transcript including it, capped to the configured window.
func (s *ConversationStore) AppendAndReadHistory(ctx context.Context, params model.CreateMessageParams) ([]model.Message, error) {
	var history []model.Message
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, txErr := s.appendTx(ctx, tx, params); txErr != nil {
			return txErr
		}
		var txErr error
		history, txErr = s.messageRepo.WithTx(tx).FindBySession(ctx, params.SessionID, s.historyCap)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("append and read history: %w", err)
	}
	return history, nil
}

func (s *ConversationStore) appendTx(ctx context.Context, tx *sqlx.Tx, params model.CreateMessageParams) (bool, error) {
	inserted, err := s.messageRepo.WithTx(tx).Insert(ctx, params)
	if err != nil {
		return false, err
	}
	if !inserted {
		log.Debug().
			Str("messageId", params.ID).
			Msg("message already stored, skipping")
		return false, nil
	}
	if err := s.sessionRepo.WithTx(tx).TouchActivity(ctx, params.SessionID, 1); err != nil {
		return false, err
	}
	return true, nil
}

// History reads the session transcript, oldest first.
func (s *ConversationStore) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	return s.messageRepo.FindBySession(ctx, sessionID, s.historyCap)
}

// LatestBySender returns the newest stored user message across all of
// the sender's sessions, used for the staleness check.
func (s *ConversationStore) LatestBySender(ctx context.Context, senderID string) (*model.Message, error) {
	return s.messageRepo.FindLatestBySender(ctx, senderID)
}

// FindByID looks up a stored message by its provider id, used to
// resolve quoted-reply context.
func (s *ConversationStore) FindByID(ctx context.Context, id string) (*model.Message, error) {
	return s.messageRepo.FindByID(ctx, id)
}
