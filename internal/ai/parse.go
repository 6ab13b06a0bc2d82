package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

// CommandType names an action the assistant can request alongside its
// reply text.
type CommandType string

const (
	CommandSendCatalog   CommandType = "send_catalog"
	CommandSaveOrderInfo CommandType = "save_order_info"
	CommandConfirmOrder  CommandType = "confirm_order"
)

// Command is the action attached to a reply. Order fields ride inline
// on the same object for save_order_info and confirm_order, where they
// act as a final merge before validation.
type Command struct {
	Type   CommandType
	Fields model.OrderFields
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var head struct {
		Type CommandType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	c.Type = head.Type
	switch head.Type {
	case CommandSaveOrderInfo, CommandConfirmOrder:
		return json.Unmarshal(data, &c.Fields)
	}
	return nil
}

// Reply is the parsed assistant turn.
type Reply struct {
	Text    string
	Command *Command
}

// envelope is the JSON shape the assistant is prompted to produce.
type envelope struct {
	Text    string          `json:"text"`
	Command json.RawMessage `json:"command"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseReply extracts the reply text and optional command from raw
// assistant output. Strategies are tried in order: a fenced json block,
// then the widest brace span, then the whole output as plain text. The
// plain-text fallback never fails, so the caller always has something
// to send.
func ParseReply(raw string) Reply {
	raw = strings.TrimSpace(raw)

	var candidate string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	} else if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidate = raw[start : end+1]
	} else {
		return Reply{Text: raw}
	}

	reply, ok := decodeEnvelope(candidate)
	if !ok {
		// Models sometimes echo the prompt's brace escaping literally.
		collapsed := collapseDoubledBraces(candidate)
		if collapsed != candidate {
			reply, ok = decodeEnvelope(collapsed)
		}
	}
	if !ok {
		return Reply{Text: raw}
	}
	return reply
}

func decodeEnvelope(candidate string) (Reply, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		return Reply{}, false
	}
	if env.Text == "" {
		return Reply{}, false
	}

	reply := Reply{Text: env.Text}
	if len(env.Command) > 0 && string(env.Command) != "null" {
		var cmd Command
		if err := json.Unmarshal(env.Command, &cmd); err == nil && cmd.Type != "" {
			reply.Command = &cmd
		}
	}
	return reply, true
}

func collapseDoubledBraces(s string) string {
	s = strings.ReplaceAll(s, "{{", "{")
	return strings.ReplaceAll(s, "}}", "}")
}
