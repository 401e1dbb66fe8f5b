// Package domain contains core concepts of the chat relay.
// Messages are immutable once constructed; no runtime, network,
// or storage logic should be added here.
package domain

import "time"

const (
	// BotDisplayName is the username shown for automated replies.
	BotDisplayName = "LLM Bot"
	// UnknownAuthor is the sentinel used when author resolution fails.
	UnknownAuthor = "unknown"
)

// Message represents one chat entry, human or bot.
type Message struct {
	ID        int64
	Author    string // resolved display name, empty for bot messages
	Content   string
	IsBot     bool
	CreatedAt time.Time
}
