package model

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeInteractive MessageType = "interactive"
	MessageTypeImage       MessageType = "image"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeDocument    MessageType = "document"
	MessageTypeVideo       MessageType = "video"
	MessageTypeOther       MessageType = "other"
)

// EventKind classifies an inbound webhook event.
type EventKind string

const (
	EventKindStatus      EventKind = "status"
	EventKindMessage     EventKind = "message"
	EventKindUnsupported EventKind = "unsupported"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
)
