// Package event defines the units of information pushed to connected clients.
package event

import (
	"chat-relay/domain"
)

// ChatEvent is consumed by the wire encoder and fanned out by the registry.
type ChatEvent interface {
	chatEvent()
}

// MessageBroadcast carries a persisted message to every live connection.
type MessageBroadcast struct {
	Message domain.Message
}

// Ack echoes back verbatim whatever a client sent over its channel.
// Inbound frames are never interpreted as chat submissions.
type Ack struct {
	Echo string
}

func (MessageBroadcast) chatEvent() {}
func (Ack) chatEvent()              {}
