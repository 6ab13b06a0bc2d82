package handler

import (
	"strconv"
	"time"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

// WhatsApp Webhook Request Types

type WebhookEnvelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         *Metadata        `json:"metadata,omitempty"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []StatusUpdate   `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type InboundMessage struct {
	ID          string          `json:"id"`
	From        string          `json:"from"`
	Timestamp   string          `json:"timestamp"`
	Type        string          `json:"type"`
	Text        *TextBody       `json:"text,omitempty"`
	Audio       *MediaBody      `json:"audio,omitempty"`
	Image       *MediaBody      `json:"image,omitempty"`
	Document    *MediaBody      `json:"document,omitempty"`
	Video       *MediaBody      `json:"video,omitempty"`
	Interactive *Interactive    `json:"interactive,omitempty"`
	Context     *MessageContext `json:"context,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type MediaBody struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"button_reply,omitempty"`
	ListReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"list_reply,omitempty"`
}

// MessageContext is present when the customer quoted an earlier message.
type MessageContext struct {
	From string `json:"from,omitempty"`
	ID   string `json:"id,omitempty"`
}

type StatusUpdate struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Classify reports what kind of event the envelope carries. Status
// callbacks and messages arrive on the same endpoint.
func (e *WebhookEnvelope) Classify() model.EventKind {
	value := e.firstValue()
	if value == nil {
		return model.EventKindUnsupported
	}
	if len(value.Messages) > 0 {
		return model.EventKindMessage
	}
	if len(value.Statuses) > 0 {
		return model.EventKindStatus
	}
	return model.EventKindUnsupported
}

// Intent normalizes the first message in the envelope. Returns false
// when the envelope carries no message.
func (e *WebhookEnvelope) Intent() (model.MessageIntent, bool) {
	value := e.firstValue()
	if value == nil || len(value.Messages) == 0 {
		return model.MessageIntent{}, false
	}
	msg := value.Messages[0]

	intent := model.MessageIntent{
		SenderID:        msg.From,
		MessageID:       msg.ID,
		OriginTimestamp: parseUnixTimestamp(msg.Timestamp),
		Type:            messageType(msg.Type),
	}
	if len(value.Contacts) > 0 {
		intent.SenderName = value.Contacts[0].Profile.Name
	}
	if msg.Context != nil {
		intent.ReplyToID = msg.Context.ID
	}

	switch intent.Type {
	case model.MessageTypeText:
		if msg.Text != nil {
			intent.Text = msg.Text.Body
		}
	case model.MessageTypeInteractive:
		intent.Text = interactiveText(msg.Interactive)
	case model.MessageTypeAudio:
		if msg.Audio != nil {
			intent.MediaRef = msg.Audio.ID
		}
	case model.MessageTypeImage:
		if msg.Image != nil {
			intent.MediaRef = msg.Image.ID
			intent.Text = msg.Image.Caption
		}
	case model.MessageTypeVideo:
		if msg.Video != nil {
			intent.MediaRef = msg.Video.ID
		}
	case model.MessageTypeDocument:
		if msg.Document != nil {
			intent.MediaRef = msg.Document.ID
		}
	}
	return intent, true
}

func (e *WebhookEnvelope) firstValue() *ChangeValue {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return nil
	}
	return &e.Entry[0].Changes[0].Value
}

func messageType(t string) model.MessageType {
	switch t {
	case "text":
		return model.MessageTypeText
	case "interactive":
		return model.MessageTypeInteractive
	case "audio", "voice":
		return model.MessageTypeAudio
	case "image":
		return model.MessageTypeImage
	case "document":
		return model.MessageTypeDocument
	case "video":
		return model.MessageTypeVideo
	default:
		return model.MessageTypeOther
	}
}

// interactiveText extracts the selection title from a button or list
// reply so it reads like typed text in the transcript.
func interactiveText(i *Interactive) string {
	if i == nil {
		return ""
	}
	if i.ButtonReply != nil {
		return i.ButtonReply.Title
	}
	if i.ListReply != nil {
		return i.ListReply.Title
	}
	return ""
}

func parseUnixTimestamp(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
