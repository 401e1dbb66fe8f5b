package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	relayerrors "chat-relay/errors"
)

func TestSinkDeliverAndDrain(t *testing.T) {
	r := require.New(t)

	// Given a sink with room for two payloads
	sink := NewSink(2)

	// When two payloads are delivered
	r.NoError(sink.Deliver(context.Background(), []byte("one")))
	r.NoError(sink.Deliver(context.Background(), []byte("two")))

	// Then they come out in delivery order
	r.Equal([]byte("one"), <-sink.Outbound())
	r.Equal([]byte("two"), <-sink.Outbound())
}

func TestSinkDeliverBufferFull(t *testing.T) {
	r := require.New(t)

	// Given a sink whose buffer is saturated
	sink := NewSink(1)
	r.NoError(sink.Deliver(context.Background(), []byte("one")))

	// When another payload arrives with nobody draining
	err := sink.Deliver(context.Background(), []byte("two"))

	// Then the delivery is refused without blocking
	r.ErrorIs(err, relayerrors.ErrBufferFull)
}

func TestSinkDeliverIgnoresCanceledContext(t *testing.T) {
	r := require.New(t)

	// Given a healthy sink and a submitter whose context is already gone
	sink := NewSink(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When many deliveries happen under the canceled context
	for i := 0; i < 200; i++ {
		// Then every one succeeds; the submitter's lifetime must never
		// masquerade as a connection failure
		r.NoError(sink.Deliver(ctx, []byte("payload")))
		<-sink.Outbound()
	}
}

func TestSinkDeliverAfterClose(t *testing.T) {
	r := require.New(t)

	// Given a closed sink
	sink := NewSink(4)
	sink.Close()

	// When a delivery is attempted
	err := sink.Deliver(context.Background(), []byte("late"))

	// Then it is refused
	r.ErrorIs(err, relayerrors.ErrSinkClosed)
}

func TestSinkCloseIdempotent(t *testing.T) {
	r := require.New(t)

	sink := NewSink(1)
	sink.Close()
	sink.Close()

	select {
	case <-sink.Closed():
	default:
		r.Fail("expected closed signal")
	}
}
