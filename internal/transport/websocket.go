package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tavern/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024 * 1024 // 1MB

	// Outbound send buffer; a full buffer fails the send instead of
	// blocking the caller.
	sendBuffer = 256

	// Event buffer consumed by the session dispatcher loop.
	eventBuffer = 64
)

// ErrSendBufferFull is returned when the outbound buffer is saturated.
var ErrSendBufferFull = errors.New("send buffer full")

// WebSocket is the gorilla/websocket Transport implementation. One
// WebSocket value survives across reconnects; each Connect establishes a
// fresh underlying connection.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
	events chan Event

	mu       sync.Mutex
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closing  bool
	downOnce *sync.Once
}

// NewWebSocket creates a transport for the given ws:// or wss:// URL.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		events: make(chan Event, eventBuffer),
	}
}

// Events implements Transport.
func (w *WebSocket) Events() <-chan Event { return w.events }

// Connect implements Transport. A no-op when already connected.
func (w *WebSocket) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return &Error{Op: "connect", Err: err}
	}

	w.mu.Lock()
	if w.conn != nil {
		// Lost the race with a concurrent Connect; keep the first one.
		w.mu.Unlock()
		conn.Close()
		return nil
	}
	w.conn = conn
	w.send = make(chan []byte, sendBuffer)
	w.done = make(chan struct{})
	w.closing = false
	w.downOnce = new(sync.Once)
	send, done, once := w.send, w.done, w.downOnce
	w.mu.Unlock()

	go w.readPump(conn, once)
	go w.writePump(conn, send, done)

	w.events <- StateEvent{Up: true}
	logger.Debug().Str("url", w.url).Msg("Transport connected")
	return nil
}

// Send implements Transport.
func (w *WebSocket) Send(data []byte) error {
	w.mu.Lock()
	send := w.send
	connected := w.conn != nil && !w.closing
	w.mu.Unlock()

	if !connected {
		return &Error{Op: "send", Err: errors.New("no connection")}
	}

	select {
	case send <- data:
		return nil
	default:
		return &Error{Op: "send", Err: ErrSendBufferFull}
	}
}

// Disconnect implements Transport. In-flight sends may be dropped.
func (w *WebSocket) Disconnect() {
	w.mu.Lock()
	conn := w.conn
	once := w.downOnce
	if conn == nil {
		w.mu.Unlock()
		return
	}
	w.closing = true
	w.mu.Unlock()

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()

	// The read pump also reports the teardown, but a deliberate
	// disconnect must surface even if the pump never started reading.
	w.emitDown(conn, once, nil)
}

// readPump pumps inbound messages onto the event channel until the
// connection dies.
func (w *WebSocket) readPump(conn *websocket.Conn, once *sync.Once) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			deliberate := w.closing
			w.mu.Unlock()

			if deliberate {
				w.emitDown(conn, once, nil)
			} else {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Error().Err(err).Msg("WebSocket read error")
				}
				w.emitDown(conn, once, &Error{Op: "read", Err: err})
			}
			return
		}

		w.events <- MessageEvent{Data: message}
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (w *WebSocket) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return

		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error().Err(err).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// emitDown tears down the connection's state and emits exactly one down
// event for it.
func (w *WebSocket) emitDown(conn *websocket.Conn, once *sync.Once, lossErr error) {
	once.Do(func() {
		w.mu.Lock()
		if w.conn == conn {
			w.conn = nil
			close(w.done)
			w.send = nil
		}
		w.mu.Unlock()

		conn.Close()
		w.events <- StateEvent{Up: false, Err: lossErr}
	})
}
