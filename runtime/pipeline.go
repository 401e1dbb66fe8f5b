package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/bot"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
)

// Pipeline handles the end-to-end path of one submitted message:
// resolve the author, persist, broadcast, and hand qualifying content to
// the reply queue. A message is only ever broadcast after it is durable.
type Pipeline struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
	registry contract.IRegistry
	trigger  bot.TriggerPolicy
	replies  chan bot.ReplyRequest
}

func NewPipeline(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	registry contract.IRegistry,
	trigger bot.TriggerPolicy,
	replyQueueSize int,
) *Pipeline {
	return &Pipeline{
		log:      log,
		messages: messages,
		users:    users,
		registry: registry,
		trigger:  trigger,
		replies:  make(chan bot.ReplyRequest, replyQueueSize),
	}
}

// ReplyQueue exposes the channel consumed by the bot reply workers.
func (p *Pipeline) ReplyQueue() <-chan bot.ReplyRequest {
	return p.replies
}

// SubmitHumanMessage persists and broadcasts one human message, then
// hands the content to the reply workers. It returns once the broadcast
// is done; it never waits on reply generation. Only a persistence
// failure is surfaced to the caller.
func (p *Pipeline) SubmitHumanMessage(ctx context.Context, authorID, content string) (domain.Message, error) {
	author, err := p.users.ResolveDisplayName(authorID)
	if err != nil {
		p.log.Warn("Author resolution failed, using sentinel", "author_id", authorID, "error", err)
		author = domain.UnknownAuthor
	}

	record, err := p.messages.SaveMessage(author, content, false)
	if err != nil {
		return domain.Message{}, fmt.Errorf("persisting message: %w", err)
	}

	message := toMessage(record)
	p.registry.Broadcast(ctx, event.MessageBroadcast{Message: message})
	p.enqueueReply(content)
	return message, nil
}

// SubmitBotMessage persists and broadcasts an automated reply. There is
// no caller to report to: a persistence failure is logged and the event
// is simply not broadcast.
func (p *Pipeline) SubmitBotMessage(ctx context.Context, content string) error {
	record, err := p.messages.SaveMessage("", content, true)
	if err != nil {
		p.log.Error("Persisting bot message failed", "error", err)
		return fmt.Errorf("persisting bot message: %w", err)
	}

	p.registry.Broadcast(ctx, event.MessageBroadcast{Message: toMessage(record)})
	return nil
}

// History returns the newest messages in chronological order.
func (p *Pipeline) History(limit int) ([]domain.Message, error) {
	records, err := p.messages.GetMessages(limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(record repositories.DiskMessage, _ int) domain.Message {
		return toMessage(record)
	}), nil
}

// enqueueReply queues at most one reply task per qualifying message.
// The submission path never blocks on the queue: when it is full the
// request is dropped with a log entry.
func (p *Pipeline) enqueueReply(content string) {
	if p.trigger == nil || !p.trigger(content) {
		return
	}
	request := bot.ReplyRequest{ID: uuid.NewString(), Content: content}
	select {
	case p.replies <- request:
	default:
		p.log.Warn("Reply queue full, dropping request", "request_id", request.ID)
	}
}

func toMessage(record repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:        record.ID,
		Author:    record.Author,
		Content:   record.Content,
		IsBot:     record.IsBot,
		CreatedAt: record.At,
	}
}
