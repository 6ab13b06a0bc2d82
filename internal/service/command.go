package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/ai"
	"github.com/auraflora/shopbot-server-go/internal/catalog"
	"github.com/auraflora/shopbot-server-go/internal/dedup"
	apperrors "github.com/auraflora/shopbot-server-go/internal/errors"
	"github.com/auraflora/shopbot-server-go/internal/model"
	"github.com/auraflora/shopbot-server-go/internal/whatsapp"
)

const (
	catalogUnavailableText = "Our catalog is temporarily unavailable, sorry! Please try again in a few minutes."
	incompleteOrderText    = "I still need a few details before confirming: %s. Could you tell me?"
)

// CommandDispatcher executes the actions the assistant attaches to its
// replies.
type CommandDispatcher struct {
	catalog  catalog.Provider
	sender   whatsapp.Sender
	orders   *OrderAggregator
	inflight dedup.InflightGuard
	store    ConversationRecorder
}

func NewCommandDispatcher(
	catalogProvider catalog.Provider,
	sender whatsapp.Sender,
	orders *OrderAggregator,
	inflight dedup.InflightGuard,
	store ConversationRecorder,
) *CommandDispatcher {
	return &CommandDispatcher{
		catalog:  catalogProvider,
		sender:   sender,
		orders:   orders,
		inflight: inflight,
		store:    store,
	}
}

// DispatchResult carries optional follow-up text to send after the
// assistant's own reply, e.g. a catalog-unavailable apology.
type DispatchResult struct {
	FollowUp string
}

// Dispatch runs one command. Command failures never abort the turn: the
// assistant's text has already been sent, so errors surface as follow-up
// text or logs.
func (d *CommandDispatcher) Dispatch(ctx context.Context, cmd *ai.Command, sessionID, senderID string) (*DispatchResult, error) {
	if cmd == nil {
		return &DispatchResult{}, nil
	}

	log.Info().
		Str("command", string(cmd.Type)).
		Str("sessionId", sessionID).
		Str("senderId", senderID).
		Msg("dispatching command")

	switch cmd.Type {
	case ai.CommandSendCatalog:
		return d.sendCatalog(ctx, sessionID, senderID)
	case ai.CommandSaveOrderInfo:
		if err := d.orders.Save(ctx, sessionID, cmd.Fields); err != nil {
			return nil, apperrors.CommandExecution(string(cmd.Type), err)
		}
		return &DispatchResult{}, nil
	case ai.CommandConfirmOrder:
		return d.confirmOrder(ctx, sessionID, senderID, cmd.Fields)
	default:
		log.Warn().Str("command", string(cmd.Type)).Msg("unknown command, ignoring")
		return &DispatchResult{}, nil
	}
}

// sendCatalog streams one image message per available product. At most
// one catalog send runs per sender at a time; a second request while
// the first is still going is dropped.
func (d *CommandDispatcher) sendCatalog(ctx context.Context, sessionID, senderID string) (*DispatchResult, error) {
	acquired, err := d.inflight.TryAcquire(ctx, senderID)
	if err != nil {
		return nil, apperrors.CommandExecution("send_catalog", err)
	}
	if !acquired {
		log.Info().Str("senderId", senderID).Msg("catalog send already in flight, skipping")
		return &DispatchResult{}, nil
	}
	defer func() {
		if err := d.inflight.Release(ctx, senderID); err != nil {
			log.Warn().Err(err).Str("senderId", senderID).Msg("inflight release failed")
		}
	}()

	products, err := d.catalog.ListAvailable(ctx)
	if err != nil {
		log.Error().Err(err).Msg("catalog fetch failed")
		return &DispatchResult{FollowUp: catalogUnavailableText}, nil
	}
	if len(products) == 0 {
		return &DispatchResult{FollowUp: catalogUnavailableText}, nil
	}

	sent := 0
	for _, p := range products {
		caption := fmt.Sprintf("%s - %s", p.Name, p.Price)
		var messageID string
		var sendErr error
		msgType := model.MessageTypeImage
		if p.ImageURL == "" {
			msgType = model.MessageTypeText
			messageID, sendErr = d.sender.SendText(ctx, senderID, caption)
		} else {
			messageID, sendErr = d.sender.SendImageWithCaption(ctx, senderID, p.ImageURL, caption)
		}
		if sendErr != nil {
			log.Warn().Err(sendErr).Str("retailerId", p.RetailerID).Msg("catalog send failed")
			continue
		}
		sent++
		d.recordCatalogCard(ctx, sessionID, senderID, messageID, msgType, caption, p.ImageURL)
	}

	log.Info().
		Str("senderId", senderID).
		Int("sent", sent).
		Int("total", len(products)).
		Msg("catalog sent")

	if sent == 0 {
		return &DispatchResult{FollowUp: catalogUnavailableText}, nil
	}
	return &DispatchResult{}, nil
}

// recordCatalogCard persists one delivered product card. The card was
// already sent, so a storage failure only logs.
func (d *CommandDispatcher) recordCatalogCard(
	ctx context.Context,
	sessionID, senderID, messageID string,
	msgType model.MessageType,
	caption, imageURL string,
) {
	if messageID == "" {
		messageID = "local." + uuid.NewString()
	}
	var mediaURL *string
	if imageURL != "" {
		mediaURL = &imageURL
	}
	if _, err := d.store.Append(ctx, model.CreateMessageParams{
		ID:        messageID,
		SenderID:  senderID,
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Type:      msgType,
		Content:   caption,
		MediaURL:  mediaURL,
	}); err != nil {
		log.Warn().Err(err).Str("messageId", messageID).Msg("catalog card not stored")
	}
}

// confirmOrder folds any fields riding on the confirm command into the
// draft first, so "yes, deliver it to 99 Thalang Rd" confirms in one
// turn instead of bouncing as incomplete.
func (d *CommandDispatcher) confirmOrder(ctx context.Context, sessionID, senderID string, fields model.OrderFields) (*DispatchResult, error) {
	if !fields.IsEmpty() {
		if err := d.orders.Save(ctx, sessionID, fields); err != nil {
			return nil, apperrors.CommandExecution("confirm_order", err)
		}
	}

	result, err := d.orders.Confirm(ctx, sessionID, senderID)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeIncompleteOrder {
			missing, _ := appErr.Details.([]string)
			return &DispatchResult{
				FollowUp: fmt.Sprintf(incompleteOrderText, strings.Join(missing, ", ")),
			}, nil
		}
		return nil, apperrors.CommandExecution("confirm_order", err)
	}
	if result.AlreadyConfirmed {
		log.Info().Str("sessionId", sessionID).Msg("repeat confirm ignored")
	}
	return &DispatchResult{}, nil
}
