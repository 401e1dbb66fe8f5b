package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/bot"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
)

// channelSink pushes every delivered payload onto an unbounded test
// channel so assertions can wait on it.
type channelSink struct {
	payloads chan []byte
}

func newChannelSink() *channelSink {
	return &channelSink{payloads: make(chan []byte, 64)}
}

func (s *channelSink) Deliver(_ context.Context, payload []byte) error {
	s.payloads <- payload
	return nil
}

// scriptedGenerator returns a fixed reply, optionally blocking until
// released to expose the asynchrony of the reply path.
type scriptedGenerator struct {
	reply   string
	err     error
	release chan struct{}
}

func (g *scriptedGenerator) GenerateReply(ctx context.Context, _ string) (string, error) {
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

type envelope struct {
	Type    string `json:"type"`
	Message struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Content  string `json:"content"`
		IsBot    bool   `json:"is_bot"`
	} `json:"message"`
}

type stack struct {
	pipeline *runtime.Pipeline
	sink     *channelSink
	userID   string
}

func startStack(t *testing.T, generator *scriptedGenerator) stack {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messageRepository, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	t.Cleanup(func() { _ = messageRepository.Close() })
	userRepository := repositories.NewUserRepository(db)

	registry := runtime.NewRegistry(log)
	pipeline := runtime.NewPipeline(
		log, messageRepository, userRepository, registry,
		bot.ContainsQuestion, 16,
	)

	supervisor := workers.NewSupervisor(log, 50*time.Millisecond)
	supervisor.Add(workers.NewBotReplyWorker(
		log, generator, pipeline, pipeline.ReplyQueue(), time.Second,
	))
	go supervisor.Run(ctx)
	t.Cleanup(supervisor.Stop)

	sink := newChannelSink()
	registry.Register(sink)

	user, err := userRepository.CreateUser("alice", "not-a-real-hash")
	req.NoError(err)

	return stack{pipeline: pipeline, sink: sink, userID: user.ID}
}

func (s stack) nextEvent(t *testing.T) envelope {
	t.Helper()
	select {
	case payload := <-s.sink.payloads:
		var e envelope
		require.NoError(t, json.Unmarshal(payload, &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: no event reached the connection")
		return envelope{}
	}
}

func TestPlainMessageIsBroadcastWithoutReply(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := startStack(t, &scriptedGenerator{reply: "should never be used"})

	// When a statement with no question mark is submitted
	message, err := s.pipeline.SubmitHumanMessage(ctx, s.userID, "hello everyone")
	req.NoError(err)
	req.Greater(message.ID, int64(0))

	// Then the connection receives exactly the human message
	e := s.nextEvent(t)
	req.Equal("message", e.Type)
	req.Equal("alice", e.Message.Username)
	req.Equal("hello everyone", e.Message.Content)
	req.False(e.Message.IsBot)

	// And no bot reply ever follows
	select {
	case payload := <-s.sink.payloads:
		req.Failf("unexpected event", "got %s", payload)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestQuestionTriggersBotReply(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := startStack(t, &scriptedGenerator{reply: "It is noon."})

	// When a question is submitted
	_, err := s.pipeline.SubmitHumanMessage(ctx, s.userID, "what time is it?")
	req.NoError(err)

	// Then the human message arrives first
	human := s.nextEvent(t)
	req.Equal("alice", human.Message.Username)
	req.False(human.Message.IsBot)

	// And the generated reply follows under the bot display name
	reply := s.nextEvent(t)
	req.Equal(domain.BotDisplayName, reply.Message.Username)
	req.Equal("It is noon.", reply.Message.Content)
	req.True(reply.Message.IsBot)
	req.Greater(reply.Message.ID, human.Message.ID)
}

func TestGenerationFailureBecomesPlaceholderReply(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := startStack(t, &scriptedGenerator{err: fmt.Errorf("model unavailable")})

	// When a question is submitted and generation fails
	_, err := s.pipeline.SubmitHumanMessage(ctx, s.userID, "anyone there?")
	req.NoError(err)
	_ = s.nextEvent(t) // the human message

	// Then a placeholder reply is broadcast instead of a silent drop
	reply := s.nextEvent(t)
	req.True(reply.Message.IsBot)
	req.Contains(reply.Message.Content, "(LLM error)")
	req.Contains(reply.Message.Content, "model unavailable")
}

func TestSubmissionDoesNotWaitOnGeneration(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	release := make(chan struct{})
	s := startStack(t, &scriptedGenerator{reply: "late answer", release: release})

	// When a question is submitted while the generator is stuck
	start := time.Now()
	_, err := s.pipeline.SubmitHumanMessage(ctx, s.userID, "are you slow?")
	req.NoError(err)

	// Then submission returns without waiting on the generator
	req.Less(time.Since(start), 500*time.Millisecond)
	_ = s.nextEvent(t) // the human message is already out

	// And once the generator unblocks the reply still arrives
	close(release)
	reply := s.nextEvent(t)
	req.Equal("late answer", reply.Message.Content)
	req.True(reply.Message.IsBot)
}
