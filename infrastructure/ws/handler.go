package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Handler upgrades HTTP requests to WebSocket connections and ties each
// one to the registry for its lifetime. The connection itself is owned
// here; the registry only ever sees the sink.
type Handler struct {
	log        *slog.Logger
	registry   contract.IRegistry
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewHandler(log *slog.Logger, registry contract.IRegistry, bufferSize int) *Handler {
	return &Handler{
		log:        log,
		registry:   registry,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection upgrades the request, registers the connection and
// starts its pumps. It returns immediately after the handshake.
func (h *Handler) HandleConnection(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return err
	}

	sink := NewSink(h.bufferSize)
	handle := h.registry.Register(sink)

	go h.writePump(conn, sink, handle)
	go h.readPump(conn, sink, handle)
	return nil
}

// readPump consumes inbound frames. Clients do not submit chat messages
// over the channel; every inbound frame is acknowledged back verbatim.
// Any read error means the client is gone.
func (h *Handler) readPump(conn *websocket.Conn, sink *Sink, handle contract.Handle) {
	defer func() {
		h.registry.Unregister(handle)
		sink.Close()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("WebSocket read error", "handle", handle, "error", err)
			}
			return
		}

		payload, err := wire.Encode(event.Ack{Echo: string(raw)})
		if err != nil {
			continue
		}
		if err := sink.Deliver(context.Background(), payload); err != nil {
			return
		}
	}
}

// writePump serializes all writes to the connection: broadcast payloads,
// echo acks, and keepalive pings.
func (h *Handler) writePump(conn *websocket.Conn, sink *Sink, handle contract.Handle) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.registry.Unregister(handle)
		sink.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case payload := <-sink.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sink.Closed():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
