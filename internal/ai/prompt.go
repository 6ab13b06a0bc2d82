package ai

import (
	"fmt"
	"strings"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

const systemPromptBase = `You are the assistant of AURAFLORA, a flower shop in Phuket.
You help customers browse the catalog, collect their order details and confirm orders over WhatsApp.

RESPONSE FORMAT:
Always answer with a single JSON object:
- "text": the message to send to the customer. Encode line breaks as \n.
- "command": the action to execute, or null when none is needed.

COMMANDS:
- {"type": "send_catalog"} - send the product catalog with photos
- {"type": "save_order_info", ...fields} - save order data as the customer provides it.
  Fields: bouquet, retailer_id, quantity, notes, date, time, delivery_needed, address,
  card_needed, card_text, recipient_name, recipient_phone, customer_name, customer_phone
- {"type": "confirm_order"} - confirm the completed order

FLOW:
1. Greet and offer the catalog (text only, no command)
2. Customer agrees -> send_catalog
3. Customer picks a bouquet -> save_order_info with bouquet and retailer_id
4. Collect the remaining details one or two questions at a time, saving as you go
5. All required fields present -> recap the order and ask for confirmation
6. Customer confirms -> confirm_order

Required before confirming: bouquet, delivery_needed, address (if delivery), date, time,
card_needed, card_text (if card), recipient_name, recipient_phone.

STORE INFO:
- Delivery: 8:00-21:00, island-wide
- Store: 9:00-18:00, near Central Festival
- Payment: before delivery via manager. Baht, rubles and USDT accepted`

// SystemPrompt assembles the system message from the static base, the
// current catalog and the customer's known name.
func SystemPrompt(catalogSummary, senderName string) string {
	var b strings.Builder
	b.WriteString(systemPromptBase)
	if senderName != "" {
		fmt.Fprintf(&b, "\n\nCUSTOMER NAME: %s. Use it when greeting.", senderName)
	}
	if catalogSummary != "" {
		b.WriteString("\n\nCATALOG:\n")
		b.WriteString(catalogSummary)
	}
	return b.String()
}

// BuildTranscript converts stored history into chat-completion turns,
// prefixed by the system prompt. Empty turns are skipped.
func BuildTranscript(systemPrompt string, history []model.Message) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)+1)
	msgs = append(msgs, ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := "user"
		if m.Role == model.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: content})
	}
	return msgs
}
