package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Create(ctx context.Context, id, senderID string) (*model.Session, error)
	// TouchActivity bumps last_activity_at and the message counter after
	// an append.
	TouchActivity(ctx context.Context, id string, delta int) error
	// MergeOrderData deep-merges the given sparse fields into the
	// session's order draft using Postgres jsonb concatenation.
	MergeOrderData(ctx context.Context, id string, fields json.RawMessage) (*model.Session, error)
	// ConfirmOrder flips the draft to confirmed. Returns false when the
	// order was already confirmed or the session does not exist, so a
	// repeated confirm never fires twice.
	ConfirmOrder(ctx context.Context, id string) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, id, senderID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (id, sender_id, order_data, order_status)
		VALUES ($1, $2, '{}'::jsonb, 'draft')
		RETURNING *
	`, id, senderID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) TouchActivity(ctx context.Context, id string, delta int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			last_activity_at = NOW(),
			message_count = message_count + $2
		WHERE id = $1
	`, id, delta)
	return err
}

func (r *sessionRepo) MergeOrderData(ctx context.Context, id string, fields json.RawMessage) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE sessions SET
			order_data = order_data || $2::jsonb,
			last_activity_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, fields)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) ConfirmOrder(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			order_status = 'confirmed',
			last_activity_at = NOW()
		WHERE id = $1 AND order_status = 'draft'
	`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
