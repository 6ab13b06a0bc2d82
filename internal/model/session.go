package model

import (
	"encoding/json"
	"time"
)

// Session is one bounded conversation window for a sender. At most one
// session per sender is active at any time; the pointer lives on the
// sender row. A rolled-over session is never reactivated.
type Session struct {
	ID             string          `db:"id" json:"id"`
	SenderID       string          `db:"sender_id" json:"senderId"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	LastActivityAt time.Time       `db:"last_activity_at" json:"lastActivityAt"`
	MessageCount   int             `db:"message_count" json:"messageCount"`
	OrderData      json.RawMessage `db:"order_data" json:"-"`
	OrderStatus    OrderStatus     `db:"order_status" json:"orderStatus"`
}

// Sender is the persisted profile of a WhatsApp user, carrying the
// active-session pointer.
type Sender struct {
	SenderID         string     `db:"sender_id" json:"senderId"`
	Name             string     `db:"name" json:"name"`
	ActiveSessionID  *string    `db:"active_session_id" json:"activeSessionId,omitempty"`
	SessionCreatedAt *time.Time `db:"session_created_at" json:"sessionCreatedAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}
