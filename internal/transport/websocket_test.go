package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer upgrades connections and hands them to fn.
func echoServer(t *testing.T, fn func(conn *websocket.Conn)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		fn(conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func nextEvent(t *testing.T, ws *WebSocket) Event {
	t.Helper()
	select {
	case ev := <-ws.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for transport event")
		return nil
	}
}

func TestWebSocketConnectAndReceive(t *testing.T) {
	url := echoServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Pong"}`))
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ws := NewWebSocket(url)
	require.NoError(t, ws.Connect(context.Background()))

	up, ok := nextEvent(t, ws).(StateEvent)
	require.True(t, ok)
	assert.True(t, up.Up)

	msg, ok := nextEvent(t, ws).(MessageEvent)
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"Pong"}`, string(msg.Data))

	ws.Disconnect()

	down, ok := nextEvent(t, ws).(StateEvent)
	require.True(t, ok)
	assert.False(t, down.Up)
	assert.NoError(t, down.Err, "deliberate disconnect carries no loss error")
}

func TestWebSocketConnectIsIdempotent(t *testing.T) {
	url := echoServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ws := NewWebSocket(url)
	require.NoError(t, ws.Connect(context.Background()))
	require.NoError(t, ws.Connect(context.Background()), "second connect is a no-op")

	up, ok := nextEvent(t, ws).(StateEvent)
	require.True(t, ok)
	assert.True(t, up.Up)

	select {
	case ev := <-ws.Events():
		t.Fatalf("unexpected second event: %#v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebSocketSendReachesServer(t *testing.T) {
	received := make(chan []byte, 1)
	url := echoServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
	})

	ws := NewWebSocket(url)
	require.NoError(t, ws.Connect(context.Background()))
	nextEvent(t, ws) // up

	require.NoError(t, ws.Send([]byte(`{"type":"Heartbeat"}`)))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"type":"Heartbeat"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestWebSocketSendWithoutConnection(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:0")
	err := ws.Send([]byte("x"))
	require.Error(t, err)

	var terr *Error
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, "send", terr.Op)
}

func TestWebSocketServerLossEmitsError(t *testing.T) {
	url := echoServer(t, func(conn *websocket.Conn) {
		// Drop the connection without a close handshake.
		conn.Close()
	})

	ws := NewWebSocket(url)
	require.NoError(t, ws.Connect(context.Background()))
	nextEvent(t, ws) // up

	down, ok := nextEvent(t, ws).(StateEvent)
	require.True(t, ok)
	assert.False(t, down.Up)
	assert.Error(t, down.Err, "transport loss carries the read error")
}

func TestWebSocketConnectFailure(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := ws.Connect(ctx)
	require.Error(t, err)

	var terr *Error
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, "connect", terr.Op)
}

func TestWebSocketDisconnectIsIdempotent(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:0")
	ws.Disconnect()
	ws.Disconnect()
}

func TestWebSocketReconnectAfterDisconnect(t *testing.T) {
	url := echoServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ws := NewWebSocket(url)
	require.NoError(t, ws.Connect(context.Background()))
	nextEvent(t, ws) // up
	ws.Disconnect()
	nextEvent(t, ws) // down

	require.NoError(t, ws.Connect(context.Background()), "transport is reusable after disconnect")
	up, ok := nextEvent(t, ws).(StateEvent)
	require.True(t, ok)
	assert.True(t, up.Up)
}
