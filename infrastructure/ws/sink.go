// Package ws adapts WebSocket connections to the registry's EventSink.
package ws

import (
	"context"
	"sync"

	"chat-relay/errors"
)

// Sink is the send side of one WebSocket connection. Deliver feeds a
// buffered channel drained by the write pump; it never blocks on a slow
// client. Closing is idempotent.
type Sink struct {
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func NewSink(bufferSize int) *Sink {
	return &Sink{
		send:   make(chan []byte, bufferSize),
		closed: make(chan struct{}),
	}
}

// Deliver enqueues a payload for the write pump. A full buffer means the
// client cannot keep up; the returned error makes the registry evict it.
// The attempt is non-blocking, so the caller's context is irrelevant
// here: a refusal must only ever mean this connection is broken or slow,
// never that the broadcasting caller went away.
func (s *Sink) Deliver(_ context.Context, payload []byte) error {
	select {
	case <-s.closed:
		return errors.ErrSinkClosed
	default:
	}

	select {
	case s.send <- payload:
		return nil
	default:
		return errors.ErrBufferFull
	}
}

// Outbound is drained by the write pump.
func (s *Sink) Outbound() <-chan []byte {
	return s.send
}

// Closed is signaled once the connection is going away.
func (s *Sink) Closed() <-chan struct{} {
	return s.closed
}

func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.closed)
	})
}
