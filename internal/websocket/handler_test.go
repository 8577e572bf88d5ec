package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerDeliversBroadcast(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(Handler(hub))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()
	waitForClients(t, hub, 1)

	hub.Broadcast(RefreshMessage([]string{"2025-03"}))

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != ws.MessageText {
		t.Errorf("message type = %v, want text", typ)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if got.Type != "refresh" || got.Entity != "dashboard" || got.Action != "invalidate" ||
		len(got.Periods) != 1 || got.Periods[0] != "2025-03" {
		t.Errorf("unexpected message: %+v", got)
	}

	conn.Close(ws.StatusNormalClosure, "")
	waitForClients(t, hub, 0)
}

func TestHandlerRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(Handler(hub))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := &ws.DialOptions{HTTPHeader: http.Header{"Origin": {"https://evil.example"}}}
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), opts)
	if err == nil {
		conn.CloseNow()
		t.Fatal("dial from a foreign origin should fail")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", hub.ClientCount())
	}
}
