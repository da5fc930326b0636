package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type captureChannel struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureChannel) Send(_ context.Context, evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *captureChannel) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestManagerDeliversAndStops(t *testing.T) {
	ch := &captureChannel{}
	m := NewManager([]Channel{ch}, WithWorkerCount(1))

	m.Publish(Event{EventType: EventClientAdded, ClientName: "acct1", Title: "added"})
	m.Publish(Event{EventType: EventProxyBlocked, ClientName: "acct1", Title: "blocked"})
	m.Stop()

	got := ch.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].EventType != EventClientAdded || got[1].EventType != EventProxyBlocked {
		t.Fatalf("events out of order: %v", got)
	}
	if got[0].OccurredAt.IsZero() {
		t.Fatalf("OccurredAt should be stamped")
	}
}

func TestManagerDedupWindow(t *testing.T) {
	ch := &captureChannel{}
	m := NewManager([]Channel{ch}, WithWorkerCount(1), WithDedupWindow(time.Hour))

	for i := 0; i < 5; i++ {
		m.Publish(Event{EventType: EventProxyBlocked, DedupKey: "blocked:p1"})
	}
	m.Publish(Event{EventType: EventProxyBlocked, DedupKey: "blocked:p2"})
	m.Stop()

	if got := len(ch.snapshot()); got != 2 {
		t.Fatalf("dedup window should collapse to 2, got %d", got)
	}
}

func TestManagerNilSafe(t *testing.T) {
	var m *Manager
	m.Publish(Event{EventType: EventClientAdded}) // 不应 panic
	m.Stop()

	m = NewManager(nil)
	m.Publish(Event{EventType: EventClientAdded}) // 没有渠道直接丢弃
	m.Stop()
}

func TestWebhookChannelSend(t *testing.T) {
	var got map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer ts.Close()

	ch, err := NewWebhookChannel(ts.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	err = ch.Send(context.Background(), Event{
		EventType:  EventPersistFailed,
		ClientName: "acct1",
		Title:      "persist failed",
		Content:    "disk full",
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["event"] != EventPersistFailed || got["client"] != "acct1" || got["content"] != "disk full" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWebhookChannelNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	ch, err := NewWebhookChannel(ts.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	if err := ch.Send(context.Background(), Event{EventType: EventProxyBlocked}); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}
