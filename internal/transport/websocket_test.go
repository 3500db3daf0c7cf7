// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	applog "shottimer/internal/log"
)

func dialTest(t *testing.T, wst *WebSocketTransport) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(wst.Handler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial(%s) error = %v", url, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for wst.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestWebSocketTransportBroadcastsJSON(t *testing.T) {
	wst := NewWebSocketTransport("", applog.Nop())
	defer wst.Close()

	conn, cleanup := dialTest(t, wst)
	defer cleanup()

	msg := ShotMessage{Type: TypeShot, Number: 1, TimeMs: 1500, SplitMs: 1500, Time: "00:01:500", Split: "00:01:500"}
	if err := wst.Send(msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got ShotMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got != msg {
		t.Errorf("received %+v, want %+v", got, msg)
	}
}

func TestWebSocketTransportFlushesOnClose(t *testing.T) {
	wst := NewWebSocketTransport("", applog.Nop())
	conn, cleanup := dialTest(t, wst)
	defer cleanup()

	final := ElapsedMessage{Type: TypeElapsed, ElapsedMs: 4000, Elapsed: "00:04:000", Final: true}
	if err := wst.Send(final); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got ElapsedMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got != final {
		t.Errorf("received %+v, want %+v", got, final)
	}
}

func TestWebSocketTransportSendAfterClose(t *testing.T) {
	wst := NewWebSocketTransport("", applog.Nop())
	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wst.Send("late"); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Send() after Close = %v, want ErrTransportClosed", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
