package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// stubBus is an in-memory domain.SignalBus. Subscribe hands out one channel
// per signal-bus channel name; the test pushes payloads into them directly.
type stubBus struct {
	mu    sync.Mutex
	chans map[string]chan []byte
}

func newStubBus() *stubBus {
	return &stubBus{chans: make(map[string]chan []byte)}
}

func (b *stubBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	ch, ok := b.chans[channel]
	b.mu.Unlock()
	if ok {
		ch <- payload
	}
	return nil
}

func (b *stubBus) Subscribe(ctx context.Context, channels ...string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	for _, name := range channels {
		b.chans[name] = ch
	}
	b.mu.Unlock()
	return ch, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startHub runs a hub against a stub bus and returns the hub, a websocket URL
// served by HandleWS, the cancel func, and a channel that receives Run's
// return.
func startHub(t *testing.T) (*Hub, string, context.CancelFunc, chan error) {
	t.Helper()

	hub := NewHub(newStubBus(), "full", testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	runDone := make(chan error, 1)
	go func() { runDone <- hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	t.Cleanup(cancel)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), cancel, runDone
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubSendsStatusSnapshotOnConnect(t *testing.T) {
	_, url, _, _ := startHub(t)
	conn := dial(t, url)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Mode        string `json:"mode"`
			WSConnected bool   `json:"ws_connected"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if msg.Type != "service_status" || msg.Payload.Mode != "full" || !msg.Payload.WSConnected {
		t.Errorf("unexpected snapshot: %s", data)
	}
}

func TestHubBroadcastsBusMessages(t *testing.T) {
	hub, url, _, _ := startHub(t)
	conn := dial(t, url)

	// Drain the connect snapshot first.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	payload := []byte(`{"exchange":"Binance","symbol":"BTCUSDT","price":"50000"}`)
	if err := hub.bus.Publish(context.Background(), "quotes", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("got %s, want %s", data, payload)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	_, url, cancel, runDone := startHub(t)
	conn := dial(t, url)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	cancel()

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	// The hub closed the client's send channel; the write pump must close
	// the connection, which the client observes as a read error.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestHandleWSAfterShutdown(t *testing.T) {
	_, url, cancel, runDone := startHub(t)

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	// A connection arriving after shutdown must be closed promptly instead
	// of blocking on registration.
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		// The upgrade itself may fail once the hub is gone; that is fine.
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the post-shutdown connection to be closed")
	}
}
