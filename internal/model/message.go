package model

import "time"

// Message is one turn in a conversation. Rows are immutable once stored.
type Message struct {
	ID              string      `db:"id" json:"id"`
	SenderID        string      `db:"sender_id" json:"senderId"`
	SessionID       string      `db:"session_id" json:"sessionId"`
	Role            MessageRole `db:"role" json:"role"`
	Type            MessageType `db:"type" json:"type"`
	Content         string      `db:"content" json:"content"`
	MediaURL        *string     `db:"media_url" json:"mediaUrl,omitempty"`
	OriginTimestamp time.Time   `db:"origin_timestamp" json:"originTimestamp"`
	StoredAt        time.Time   `db:"stored_at" json:"storedAt"`
}

// CreateMessageParams carries the fields for a message insert.
type CreateMessageParams struct {
	ID              string
	SenderID        string
	SessionID       string
	Role            MessageRole
	Type            MessageType
	Content         string
	MediaURL        *string
	OriginTimestamp time.Time
}

// MessageIntent is the normalized payload extracted from a webhook
// message event, before any persistence.
type MessageIntent struct {
	SenderID        string
	SenderName      string
	MessageID       string
	OriginTimestamp time.Time
	Type            MessageType
	Text            string
	MediaRef        string
	ReplyToID       string
}
