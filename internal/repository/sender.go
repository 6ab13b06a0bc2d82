package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

type SenderRepository interface {
	FindByID(ctx context.Context, senderID string) (*model.Sender, error)
	// Upsert creates the sender row if absent and refreshes the display
	// name when the platform provides one.
	Upsert(ctx context.Context, senderID, name string) (*model.Sender, error)
	SetActiveSession(ctx context.Context, senderID, sessionID string, createdAt time.Time) error
	// ClearExpiredSessions drops active-session pointers whose session
	// was created before the cutoff. Returns the number of senders reset.
	ClearExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SenderRepository
}

// senderDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type senderDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type senderRepo struct {
	db senderDB
}

func NewSenderRepository(db *sqlx.DB) SenderRepository {
	return &senderRepo{db: db}
}

func (r *senderRepo) WithTx(tx *sqlx.Tx) SenderRepository {
	return &senderRepo{db: tx}
}

func (r *senderRepo) FindByID(ctx context.Context, senderID string) (*model.Sender, error) {
	var sender model.Sender
	err := r.db.GetContext(ctx, &sender, `
		SELECT * FROM senders WHERE sender_id = $1
	`, senderID)
	return HandleNotFound(&sender, err)
}

func (r *senderRepo) Upsert(ctx context.Context, senderID, name string) (*model.Sender, error) {
	var sender model.Sender
	err := r.db.GetContext(ctx, &sender, `
		INSERT INTO senders (sender_id, name)
		VALUES ($1, $2)
		ON CONFLICT (sender_id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE senders.name END,
			updated_at = NOW()
		RETURNING *
	`, senderID, name)
	if err != nil {
		return nil, err
	}
	return &sender, nil
}

func (r *senderRepo) SetActiveSession(ctx context.Context, senderID, sessionID string, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE senders SET
			active_session_id = $2,
			session_created_at = $3,
			updated_at = NOW()
		WHERE sender_id = $1
	`, senderID, sessionID, createdAt)
	return err
}

func (r *senderRepo) ClearExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE senders SET
			active_session_id = NULL,
			session_created_at = NULL,
			updated_at = NOW()
		WHERE active_session_id IS NOT NULL
		AND session_created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
