package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

type MessageRepository interface {
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// FindLatestBySender returns the newest stored inbound message from
	// the sender across all sessions, or nil when none exists.
	FindLatestBySender(ctx context.Context, senderID string) (*model.Message, error)
	FindBySession(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
	// Insert stores the message keyed by its provider id. The boolean
	// result is false when a row with the same id already existed.
	Insert(ctx context.Context, params model.CreateMessageParams) (bool, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MessageRepository
}

// messageDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type messageDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type messageRepo struct {
	db messageDB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id = $1`, id)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) FindLatestBySender(ctx context.Context, senderID string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		SELECT * FROM messages
		WHERE sender_id = $1 AND role = 'user'
		ORDER BY origin_timestamp DESC
		LIMIT 1
	`, senderID)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) FindBySession(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	// History reads oldest-first so the transcript replays in order; the
	// inner query keeps the window anchored to the most recent rows.
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM (
			SELECT * FROM messages
			WHERE session_id = $1
			ORDER BY stored_at DESC
			LIMIT $2
		) recent
		ORDER BY stored_at ASC
	`, sessionID, limit)
	return msgs, err
}

func (r *messageRepo) Insert(ctx context.Context, params model.CreateMessageParams) (bool, error) {
	originTS := params.OriginTimestamp
	if originTS.IsZero() {
		originTS = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, sender_id, session_id, role, type, content, media_url, origin_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, params.ID, params.SenderID, params.SessionID, params.Role, params.Type,
		params.Content, params.MediaURL, originTS)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
