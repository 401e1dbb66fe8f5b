package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/bot"
	"chat-relay/contract"
)

// BotReplyWorker consumes reply requests and turns each into at most one
// bot message. The request's lifecycle is pending on the queue,
// generating during the bounded remote call, then delivered or failed.
// A generation failure becomes a visible placeholder reply, never a
// silent drop. Several workers may run at once; requests share no state.
type BotReplyWorker struct {
	log       *slog.Logger
	generator contract.ReplyGenerator
	pipeline  contract.IPipeline
	requests  <-chan bot.ReplyRequest
	timeout   time.Duration
}

func NewBotReplyWorker(
	log *slog.Logger,
	generator contract.ReplyGenerator,
	pipeline contract.IPipeline,
	requests <-chan bot.ReplyRequest,
	timeout time.Duration,
) *BotReplyWorker {
	return &BotReplyWorker{
		log:       log,
		generator: generator,
		pipeline:  pipeline,
		requests:  requests,
		timeout:   timeout,
	}
}

func (w *BotReplyWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case request, ok := <-w.requests:
			if !ok {
				return nil
			}
			w.handle(ctx, request)
		}
	}
}

// handle runs one reply task to a terminal state. No retries: a timeout
// is treated like any other generation failure.
func (w *BotReplyWorker) handle(ctx context.Context, request bot.ReplyRequest) {
	generateCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	reply, err := w.generator.GenerateReply(generateCtx, request.Content)
	if err != nil {
		w.log.Warn("Reply generation failed", "request_id", request.ID, "error", err)
		reply = bot.ErrorReply(err)
	}

	if err := w.pipeline.SubmitBotMessage(ctx, reply); err != nil {
		w.log.Error("Bot reply lost", "request_id", request.ID, "error", err)
	}
}
