// Package wire maps chat events to the JSON payloads pushed to clients.
// Encoding is pure: no state, no I/O. An unrepresentable event is a
// programming error, not a runtime condition.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type messageEnvelope struct {
	Type    string      `json:"type"`
	Message MessageBody `json:"message"`
}

type ackEnvelope struct {
	Type string `json:"type"`
	Echo string `json:"echo"`
}

// MessageBody is the normative message object, shared by the push channel
// and the history endpoint.
type MessageBody struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	IsBot     bool   `json:"is_bot"`
	CreatedAt string `json:"created_at"`
}

// Encode returns the wire representation of a chat event.
func Encode(e event.ChatEvent) ([]byte, error) {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		return json.Marshal(messageEnvelope{Type: "message", Message: ToBody(evt.Message)})
	case event.Ack:
		return json.Marshal(ackEnvelope{Type: "ack", Echo: evt.Echo})
	default:
		return nil, fmt.Errorf("unsupported chat event %T", e)
	}
}

// ToBody maps a domain message to the normative JSON object.
// Bot messages always carry the bot display name.
func ToBody(m domain.Message) MessageBody {
	username := m.Author
	if m.IsBot {
		username = domain.BotDisplayName
	}
	return MessageBody{
		ID:        m.ID,
		Username:  username,
		Content:   m.Content,
		IsBot:     m.IsBot,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
