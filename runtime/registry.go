// Package runtime coordinates the live side of the relay: the connection
// registry and the message pipeline. It carries no business rules beyond
// the ordering and delivery guarantees of the chat feed.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/wire"
)

// Registry owns the set of live connections. Connections are registered
// on attach, removed on detach, and evicted when a delivery attempt
// fails. Nothing outside the registry iterates the set.
type Registry struct {
	mu    sync.RWMutex
	log   *slog.Logger
	sinks map[contract.Handle]contract.EventSink
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		sinks: make(map[contract.Handle]contract.EventSink),
	}
}

// Register adds a connection to the live set. The handle is unique for
// the connection's lifetime and is the only reference callers keep.
// The connection is visible to subsequent broadcasts immediately.
func (r *Registry) Register(sink contract.EventSink) contract.Handle {
	handle := contract.Handle(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[handle] = sink
	r.log.Debug("Connection registered", "handle", handle, "total", len(r.sinks))
	return handle
}

// Unregister removes a connection. Removing an unknown or already removed
// handle is a no-op, and it is safe to call concurrently with Broadcast.
func (r *Registry) Unregister(handle contract.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sinks[handle]; !ok {
		return
	}
	delete(r.sinks, handle)
	r.log.Debug("Connection unregistered", "handle", handle, "total", len(r.sinks))
}

// Broadcast encodes the event once and delivers the payload to every
// connection registered at call time, each at most once. A sink that
// refuses delivery is treated as a disconnect and evicted; the caller
// never sees an error. Enqueueing happens under the read lock, so two
// sequential Broadcast calls reach every sink in call order.
func (r *Registry) Broadcast(ctx context.Context, e event.ChatEvent) {
	payload, err := wire.Encode(e)
	if err != nil {
		r.log.Error("Dropping unencodable event", "error", err)
		return
	}

	var broken []contract.Handle
	r.mu.RLock()
	for handle, sink := range r.sinks {
		if err := sink.Deliver(ctx, payload); err != nil {
			r.log.Debug("Delivery refused, evicting connection", "handle", handle, "error", err)
			broken = append(broken, handle)
		}
	}
	r.mu.RUnlock()

	for _, handle := range broken {
		r.Unregister(handle)
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
