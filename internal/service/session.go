package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/model"
	"github.com/auraflora/shopbot-server-go/internal/repository"
)

// SessionManager owns the session lifecycle: one active session per
// sender, rolled over on expiry, order confirmation or explicit reset.
type SessionManager struct {
	senderRepo  repository.SenderRepository
	sessionRepo repository.SessionRepository
	ttl         time.Duration
	now         func() time.Time
}

func NewSessionManager(
	senderRepo repository.SenderRepository,
	sessionRepo repository.SessionRepository,
	ttl time.Duration,
) *SessionManager {
	return &SessionManager{
		senderRepo:  senderRepo,
		sessionRepo: sessionRepo,
		ttl:         ttl,
		now:         time.Now,
	}
}

// NewSessionID builds a time-derived id with a short random suffix, so
// ids sort chronologically and never collide within a microsecond.
func (s *SessionManager) NewSessionID() string {
	now := s.now().UTC()
	return fmt.Sprintf("%s_%06d_%s",
		now.Format("20060102_150405"),
		now.Nanosecond()/1000,
		uuid.NewString()[:8])
}

// EnsureSender upserts the sender profile, refreshing the display name
// when the webhook carries one.
func (s *SessionManager) EnsureSender(ctx context.Context, senderID, name string) (*model.Sender, error) {
	sender, err := s.senderRepo.Upsert(ctx, senderID, name)
	if err != nil {
		return nil, fmt.Errorf("ensure sender: %w", err)
	}
	return sender, nil
}

// GetOrCreateActive resolves the sender's current session. An expired
// pointer rolls over to a fresh session; the old one stays readable but
// is never reactivated.
func (s *SessionManager) GetOrCreateActive(ctx context.Context, sender *model.Sender) (*model.Session, error) {
	if sender.ActiveSessionID != nil && sender.SessionCreatedAt != nil {
		if s.now().Sub(*sender.SessionCreatedAt) < s.ttl {
			session, err := s.sessionRepo.FindByID(ctx, *sender.ActiveSessionID)
			if err != nil {
				return nil, fmt.Errorf("load active session: %w", err)
			}
			if session != nil {
				return session, nil
			}
			// Pointer references a missing row; fall through and rebuild.
			log.Warn().
				Str("senderId", sender.SenderID).
				Str("sessionId", *sender.ActiveSessionID).
				Msg("active session pointer is dangling, creating a new session")
		} else {
			log.Info().
				Str("senderId", sender.SenderID).
				Str("sessionId", *sender.ActiveSessionID).
				Msg("session expired, rolling over")
		}
	}
	return s.Rollover(ctx, sender.SenderID)
}

// Rollover creates a fresh session and points the sender at it. The
// previous session is left as-is.
func (s *SessionManager) Rollover(ctx context.Context, senderID string) (*model.Session, error) {
	id := s.NewSessionID()
	session, err := s.sessionRepo.Create(ctx, id, senderID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.senderRepo.SetActiveSession(ctx, senderID, session.ID, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("point sender at session: %w", err)
	}

	log.Info().
		Str("senderId", senderID).
		Str("sessionId", session.ID).
		Msg("session created")

	return session, nil
}
