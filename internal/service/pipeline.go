package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/ai"
	"github.com/auraflora/shopbot-server-go/internal/catalog"
	"github.com/auraflora/shopbot-server-go/internal/dedup"
	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
	"github.com/auraflora/shopbot-server-go/internal/model"
	"github.com/auraflora/shopbot-server-go/internal/transcribe"
	"github.com/auraflora/shopbot-server-go/internal/whatsapp"
)

const (
	resetCommand = "/newses"

	resetConfirmationText  = "Done! We're starting fresh. How can I help you?"
	apologyText            = "Sorry, something went wrong on our side. Please try again in a moment."
	unsupportedContentText = "I can only read text and voice messages for now. Could you type it out?"

	replyContextLimit = 120
)

// ChatCompleter is the slice of the AI client the pipeline needs.
type ChatCompleter interface {
	Chat(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// ConversationRecorder is the slice of the conversation store the
// pipeline needs. *ConversationStore satisfies it.
type ConversationRecorder interface {
	Append(ctx context.Context, params model.CreateMessageParams) (bool, error)
	AppendAndReadHistory(ctx context.Context, params model.CreateMessageParams) ([]model.Message, error)
	LatestBySender(ctx context.Context, senderID string) (*model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
}

// Pipeline drives one inbound message through dedup, staleness
// filtering, persistence, the assistant and command execution.
type Pipeline struct {
	dedup       dedup.Cache
	store       ConversationRecorder
	sessions    *SessionManager
	dispatcher  *CommandDispatcher
	completer   ChatCompleter
	sender      whatsapp.Sender
	media       whatsapp.MediaFetcher
	catalog     catalog.Provider
	transcriber transcribe.Transcriber

	staleThreshold time.Duration
	aiTimeout      time.Duration
	now            func() time.Time
}

type PipelineParams struct {
	Dedup          dedup.Cache
	Store          ConversationRecorder
	Sessions       *SessionManager
	Dispatcher     *CommandDispatcher
	Completer      ChatCompleter
	Sender         whatsapp.Sender
	Media          whatsapp.MediaFetcher
	Catalog        catalog.Provider
	Transcriber    transcribe.Transcriber
	StaleThreshold time.Duration
	AITimeout      time.Duration
}

func NewPipeline(params PipelineParams) *Pipeline {
	return &Pipeline{
		dedup:          params.Dedup,
		store:          params.Store,
		sessions:       params.Sessions,
		dispatcher:     params.Dispatcher,
		completer:      params.Completer,
		sender:         params.Sender,
		media:          params.Media,
		catalog:        params.Catalog,
		transcriber:    params.Transcriber,
		staleThreshold: params.StaleThreshold,
		aiTimeout:      params.AITimeout,
		now:            time.Now,
	}
}

// HandleMessage processes one normalized inbound message. Duplicate and
// stale events return typed errors the handler maps to an acknowledging
// response; the provider must never be told to retry them.
func (p *Pipeline) HandleMessage(ctx context.Context, intent model.MessageIntent) error {
	seen, err := p.dedup.CheckAndMark(ctx, intent.MessageID)
	if err != nil {
		return apperrors.Internal("dedup check failed").WithCause(err)
	}
	if seen {
		return apperrors.DuplicateEvent(intent.MessageID)
	}

	sender, err := p.sessions.EnsureSender(ctx, intent.SenderID, intent.SenderName)
	if err != nil {
		return apperrors.Persistence(err)
	}

	if err := p.checkStaleness(ctx, intent); err != nil {
		return err
	}

	// Read receipt and typing indicator are cosmetic; failures only log.
	if err := p.sender.MarkRead(ctx, intent.MessageID); err != nil {
		log.Warn().Err(err).Str("messageId", intent.MessageID).Msg("mark read failed")
	} else if err := p.sender.SendTyping(ctx, intent.MessageID); err != nil {
		log.Warn().Err(err).Str("messageId", intent.MessageID).Msg("typing indicator failed")
	}

	if strings.TrimSpace(intent.Text) == resetCommand {
		return p.handleReset(ctx, sender)
	}

	session, err := p.sessions.GetOrCreateActive(ctx, sender)
	if err != nil {
		return apperrors.Persistence(err)
	}

	content, supported := p.resolveContent(ctx, intent)
	if !supported {
		return p.handleUnsupported(ctx, intent, session)
	}
	content = p.withReplyContext(ctx, intent, content)

	history, err := p.store.AppendAndReadHistory(ctx, model.CreateMessageParams{
		ID:              intent.MessageID,
		SenderID:        intent.SenderID,
		SessionID:       session.ID,
		Role:            model.RoleUser,
		Type:            intent.Type,
		Content:         content,
		MediaURL:        mediaRefPtr(intent),
		OriginTimestamp: intent.OriginTimestamp,
	})
	if err != nil {
		return apperrors.Persistence(err)
	}

	reply, ok := p.generateReply(ctx, sender, history)
	if !ok {
		// The apology is sent and stored; the webhook still acks.
		p.sendAndStore(ctx, intent.SenderID, session.ID, apologyText)
		return nil
	}

	p.sendAndStore(ctx, intent.SenderID, session.ID, reply.Text)

	result, err := p.dispatcher.Dispatch(ctx, reply.Command, session.ID, intent.SenderID)
	if err != nil {
		log.Error().Err(err).
			Str("sessionId", session.ID).
			Str("senderId", intent.SenderID).
			Msg("command failed")
		p.sendAndStore(ctx, intent.SenderID, session.ID, apologyText)
		return nil
	}
	if result.FollowUp != "" {
		p.sendAndStore(ctx, intent.SenderID, session.ID, result.FollowUp)
	}
	return nil
}

// checkStaleness drops messages that arrive long after newer traffic
// from the same sender, which happens when a phone reconnects and
// flushes its queue. A message is stale only when it is both old and
// already superseded by a newer stored message.
func (p *Pipeline) checkStaleness(ctx context.Context, intent model.MessageIntent) error {
	if p.now().Sub(intent.OriginTimestamp) <= p.staleThreshold {
		return nil
	}
	latest, err := p.store.LatestBySender(ctx, intent.SenderID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if latest == nil {
		return nil
	}
	if latest.OriginTimestamp.After(intent.OriginTimestamp) {
		log.Info().
			Str("messageId", intent.MessageID).
			Time("originTs", intent.OriginTimestamp).
			Time("latestTs", latest.OriginTimestamp).
			Msg("dropping stale message")
		return apperrors.StaleEvent(intent.MessageID)
	}
	return nil
}

// handleReset rolls the session over without storing the command
// message itself.
func (p *Pipeline) handleReset(ctx context.Context, sender *model.Sender) error {
	session, err := p.sessions.Rollover(ctx, sender.SenderID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	p.sendAndStore(ctx, sender.SenderID, session.ID, resetConfirmationText)
	return nil
}

func (p *Pipeline) handleUnsupported(ctx context.Context, intent model.MessageIntent, session *model.Session) error {
	placeholder := fmt.Sprintf("[%s]", strings.ToUpper(string(intent.Type)))
	if _, err := p.store.Append(ctx, model.CreateMessageParams{
		ID:              intent.MessageID,
		SenderID:        intent.SenderID,
		SessionID:       session.ID,
		Role:            model.RoleUser,
		Type:            intent.Type,
		Content:         placeholder,
		MediaURL:        mediaRefPtr(intent),
		OriginTimestamp: intent.OriginTimestamp,
	}); err != nil {
		return apperrors.Persistence(err)
	}
	p.sendAndStore(ctx, intent.SenderID, session.ID, unsupportedContentText)
	return nil
}

// resolveContent produces the text that enters the transcript. Voice
// notes are transcribed; a failed transcription degrades to the audio
// placeholder instead of dropping the turn. An image with a caption
// keeps the caption, since that is where customers type their request.
func (p *Pipeline) resolveContent(ctx context.Context, intent model.MessageIntent) (string, bool) {
	switch intent.Type {
	case model.MessageTypeText, model.MessageTypeInteractive:
		return intent.Text, true
	case model.MessageTypeAudio:
		return p.transcribeAudio(ctx, intent), true
	case model.MessageTypeImage:
		if caption := strings.TrimSpace(intent.Text); caption != "" {
			return fmt.Sprintf("[IMAGE] %s", caption), true
		}
		return "", false
	default:
		return "", false
	}
}

func (p *Pipeline) transcribeAudio(ctx context.Context, intent model.MessageIntent) string {
	if intent.MediaRef == "" {
		return transcribe.PlaceholderText
	}
	audio, filename, err := p.media.FetchMedia(ctx, intent.MediaRef)
	if err != nil {
		log.Warn().Err(err).Str("mediaId", intent.MediaRef).Msg("media fetch failed")
		return transcribe.PlaceholderText
	}
	defer func() { _ = audio.Close() }()

	text, err := p.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		log.Warn().Err(err).Str("mediaId", intent.MediaRef).Msg("transcription failed")
		return transcribe.PlaceholderText
	}
	if text == "" {
		return transcribe.PlaceholderText
	}
	return text
}

// withReplyContext prefixes the content with a snippet of the quoted
// message so the assistant understands what the customer replied to.
func (p *Pipeline) withReplyContext(ctx context.Context, intent model.MessageIntent, content string) string {
	if intent.ReplyToID == "" {
		return content
	}
	quoted, err := p.store.FindByID(ctx, intent.ReplyToID)
	if err != nil || quoted == nil {
		if err != nil {
			log.Warn().Err(err).Str("replyToId", intent.ReplyToID).Msg("reply context lookup failed")
		}
		return content
	}
	snippet := quoted.Content
	if len(snippet) > replyContextLimit {
		snippet = snippet[:replyContextLimit] + "..."
	}
	return fmt.Sprintf("[Replying to: %s] %s", snippet, content)
}

// generateReply runs the chat completion with the catalog-aware prompt.
// Any failure, including unparseable output with no salvageable text,
// reports not-ok so the caller can apologize.
func (p *Pipeline) generateReply(ctx context.Context, sender *model.Sender, history []model.Message) (ai.Reply, bool) {
	aiCtx, cancel := context.WithTimeout(ctx, p.aiTimeout)
	defer cancel()

	summary := ""
	products, err := p.catalog.ListAvailable(aiCtx)
	if err != nil {
		log.Warn().Err(err).Msg("catalog fetch for prompt failed, continuing without it")
	} else {
		summary = catalog.FormatForPrompt(products)
	}

	prompt := ai.SystemPrompt(summary, sender.Name)
	raw, err := p.completer.Chat(aiCtx, ai.BuildTranscript(prompt, history))
	if err != nil {
		log.Error().Err(err).Str("senderId", sender.SenderID).Msg("ai completion failed")
		return ai.Reply{}, false
	}

	reply := ai.ParseReply(raw)
	if strings.TrimSpace(reply.Text) == "" {
		log.Error().Str("senderId", sender.SenderID).Msg("ai reply had no usable text")
		return ai.Reply{}, false
	}
	return reply, true
}

// sendAndStore delivers an assistant message and records it in the
// transcript. Both steps are best effort once we are past persistence
// of the user turn.
func (p *Pipeline) sendAndStore(ctx context.Context, senderID, sessionID, text string) {
	messageID, err := p.sender.SendText(ctx, senderID, text)
	if err != nil {
		log.Error().Err(err).Str("senderId", senderID).Msg("outbound send failed")
		return
	}
	if messageID == "" {
		messageID = "local." + uuid.NewString()
	}
	if _, err := p.store.Append(ctx, model.CreateMessageParams{
		ID:              messageID,
		SenderID:        senderID,
		SessionID:       sessionID,
		Role:            model.RoleAssistant,
		Type:            model.MessageTypeText,
		Content:         text,
		OriginTimestamp: p.now(),
	}); err != nil {
		log.Error().Err(err).Str("messageId", messageID).Msg("assistant message store failed")
	}
}

func mediaRefPtr(intent model.MessageIntent) *string {
	if intent.MediaRef == "" {
		return nil
	}
	ref := intent.MediaRef
	return &ref
}
