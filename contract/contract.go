//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Handle identifies one live connection for its lifetime.
type Handle string

// EventSink is the send side of one live connection. Deliver must be a
// bounded attempt: a sink that cannot accept the payload returns an error
// and the registry evicts it. Safe for concurrent use.
type EventSink interface {
	Deliver(ctx context.Context, payload []byte) error
}

// IRegistry tracks live connections and provides best-effort fan-out.
// The connection set is never exposed for direct iteration.
type IRegistry interface {
	Register(sink EventSink) Handle
	Unregister(handle Handle)
	Broadcast(ctx context.Context, e event.ChatEvent)
	Count() int
}

// IPipeline is the end-to-end handling of one submitted message:
// persist first, broadcast after, bot activity detached.
type IPipeline interface {
	SubmitHumanMessage(ctx context.Context, authorID, content string) (domain.Message, error)
	SubmitBotMessage(ctx context.Context, content string) error
	History(limit int) ([]domain.Message, error)
}

// ReplyGenerator produces an automated reply for a human message.
// Callers bound the call with a context deadline.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, content string) (string, error)
}
