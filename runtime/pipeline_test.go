package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/bot"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/repositories"
)

func newTestPipeline(t *testing.T, users repositories.IUserRepository,
	messages repositories.IMessageRepository, registry contract.IRegistry) *Pipeline {
	t.Helper()
	return NewPipeline(slog.Default(), messages, users, registry, bot.ContainsQuestion, 8)
}

func TestPipeline_SubmitHumanMessage_PersistThenBroadcast(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	at := time.Now().UTC()
	stored := repositories.DiskMessage{ID: 3, Author: "alice", Content: "hello", At: at}

	// Then persistence strictly precedes the broadcast
	gomock.InOrder(
		users.EXPECT().ResolveDisplayName("user-1").Return("alice", nil),
		messages.EXPECT().SaveMessage("alice", "hello", false).Return(stored, nil),
		registry.EXPECT().Broadcast(gomock.Any(), event.MessageBroadcast{Message: domain.Message{
			ID: 3, Author: "alice", Content: "hello", CreatedAt: at,
		}}),
	)

	pipeline := newTestPipeline(t, users, messages, registry)

	message, err := pipeline.SubmitHumanMessage(context.Background(), "user-1", "hello")
	req.NoError(err)
	req.Equal(int64(3), message.ID)
	req.Equal("alice", message.Author)

	// And a plain statement never queues a reply task
	req.Empty(pipeline.ReplyQueue())
}

func TestPipeline_SubmitHumanMessage_ResolutionFailureDegrades(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	users.EXPECT().ResolveDisplayName("ghost").Return("", fmt.Errorf("not found"))
	// The message is still stored and broadcast under the sentinel name
	messages.EXPECT().SaveMessage(domain.UnknownAuthor, "hello", false).
		Return(repositories.DiskMessage{ID: 1, Author: domain.UnknownAuthor, Content: "hello"}, nil)
	registry.EXPECT().Broadcast(gomock.Any(), gomock.Any())

	pipeline := newTestPipeline(t, users, messages, registry)

	message, err := pipeline.SubmitHumanMessage(context.Background(), "ghost", "hello")
	req.NoError(err)
	req.Equal(domain.UnknownAuthor, message.Author)
}

func TestPipeline_SubmitHumanMessage_PersistFailureIsFatal(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	users.EXPECT().ResolveDisplayName("user-1").Return("alice", nil)
	messages.EXPECT().SaveMessage("alice", "doomed?", false).
		Return(repositories.DiskMessage{}, fmt.Errorf("disk full"))
	// No broadcast and no reply task when persistence fails
	registry.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Times(0)

	pipeline := newTestPipeline(t, users, messages, registry)

	_, err := pipeline.SubmitHumanMessage(context.Background(), "user-1", "doomed?")
	req.Error(err)
	req.Empty(pipeline.ReplyQueue())
}

func TestPipeline_QuestionQueuesExactlyOneReplyTask(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	users.EXPECT().ResolveDisplayName("user-1").Return("alice", nil)
	messages.EXPECT().SaveMessage("alice", "what time is it?", false).
		Return(repositories.DiskMessage{ID: 9, Author: "alice", Content: "what time is it?"}, nil)
	registry.EXPECT().Broadcast(gomock.Any(), gomock.Any())

	pipeline := newTestPipeline(t, users, messages, registry)

	_, err := pipeline.SubmitHumanMessage(context.Background(), "user-1", "what time is it?")
	req.NoError(err)

	// Then exactly one task waits on the queue, carrying the content
	req.Len(pipeline.replies, 1)
	request := <-pipeline.replies
	req.Equal("what time is it?", request.Content)
	req.NotEmpty(request.ID)
}

func TestPipeline_FullReplyQueueDropsRequest(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	users.EXPECT().ResolveDisplayName("user-1").Return("alice", nil).Times(2)
	messages.EXPECT().SaveMessage("alice", gomock.Any(), false).
		Return(repositories.DiskMessage{ID: 1}, nil).Times(2)
	registry.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Times(2)

	// Given a pipeline whose reply queue holds a single task
	pipeline := NewPipeline(slog.Default(), messages, users, registry, bot.ContainsQuestion, 1)

	// When two questions arrive and nobody drains the queue
	_, err := pipeline.SubmitHumanMessage(context.Background(), "user-1", "first?")
	req.NoError(err)
	_, err = pipeline.SubmitHumanMessage(context.Background(), "user-1", "second?")
	req.NoError(err)

	// Then the submission path stayed unblocked and one request was dropped
	req.Len(pipeline.replies, 1)
	req.Equal("first?", (<-pipeline.replies).Content)
}

func TestPipeline_SubmitBotMessage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	stored := repositories.DiskMessage{ID: 5, Content: "the answer", IsBot: true}
	gomock.InOrder(
		messages.EXPECT().SaveMessage("", "the answer", true).Return(stored, nil),
		registry.EXPECT().Broadcast(gomock.Any(), event.MessageBroadcast{Message: domain.Message{
			ID: 5, Content: "the answer", IsBot: true,
		}}),
	)

	pipeline := newTestPipeline(t, users, messages, registry)
	req.NoError(pipeline.SubmitBotMessage(context.Background(), "the answer"))

	// A bot reply never re-triggers the policy, even with a marker
	req.Empty(pipeline.ReplyQueue())
}

func TestPipeline_SubmitBotMessage_PersistFailureNotBroadcast(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	messages.EXPECT().SaveMessage("", "lost reply", true).
		Return(repositories.DiskMessage{}, fmt.Errorf("disk full"))
	registry.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Times(0)

	pipeline := newTestPipeline(t, users, messages, registry)
	req.Error(pipeline.SubmitBotMessage(context.Background(), "lost reply"))
}

func TestPipeline_History_ChronologicalMapping(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	messages.EXPECT().GetMessages(50).Return([]repositories.DiskMessage{
		{ID: 1, Author: "alice", Content: "hi"},
		{ID: 2, Content: "hello alice", IsBot: true},
	}, nil)

	pipeline := newTestPipeline(t, users, messages, registry)

	history, err := pipeline.History(50)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal(int64(1), history[0].ID)
	req.True(history[1].IsBot)
}
