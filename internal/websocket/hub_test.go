package websocket

import (
	"encoding/json"
	"sync"
	"testing"
)

func mockClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, sendBufferSize)}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c1, c2 := mockClient(hub), mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}

func TestBroadcastRefresh(t *testing.T) {
	hub := NewHub(nil)
	c1, c2 := mockClient(hub), mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(RefreshMessage([]string{"2025-03"}))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "refresh" || got.Entity != "dashboard" || len(got.Periods) != 1 || got.Periods[0] != "2025-03" {
				t.Errorf("unexpected message %+v", got)
			}
		default:
			t.Fatal("client did not receive the message")
		}
	}
}

func TestBroadcastDropsForFullClients(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub)
	hub.Register(c)

	for i := 0; i < sendBufferSize+3; i++ {
		hub.Broadcast(RefreshMessage(nil))
	}
	if got := hub.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestConcurrentBroadcast(t *testing.T) {
	hub := NewHub(nil)
	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = mockClient(hub)
		hub.Register(clients[i])
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(RefreshMessage(nil))
		}()
	}
	wg.Wait()

	for _, c := range clients {
		if got := len(c.send); got != 10 {
			t.Errorf("client got %d messages, want 10", got)
		}
	}
}
