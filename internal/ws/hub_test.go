package ws

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubSubscriber struct {
	mu       sync.Mutex
	received chan []byte
	fail     bool
	closed   bool
}

func newStubSubscriber(fail bool) *stubSubscriber {
	return &stubSubscriber{received: make(chan []byte, 4), fail: fail}
}

func (s *stubSubscriber) Send(payload []byte) error {
	if s.fail {
		return errors.New("gone")
	}
	s.received <- payload
	return nil
}

func (s *stubSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *stubSubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubBroadcastBySite(t *testing.T) {
	hub := NewHub()
	a := newStubSubscriber(false)
	b := newStubSubscriber(false)
	hub.Register("site-b", b)
	hub.Register("site-a", a)
	waitFor(t, func() bool { return len(hub.Topics()) == 2 })
	if got := hub.Topics(); !reflect.DeepEqual(got, []string{"site-a", "site-b"}) {
		t.Fatalf("unexpected topics %v", got)
	}

	hub.Broadcast("site-a", []byte("hello"))
	select {
	case msg := <-a.received:
		if string(msg) != "hello" {
			t.Fatalf("unexpected payload %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive payload")
	}
	select {
	case msg := <-b.received:
		t.Fatalf("other site received %q", msg)
	case <-time.After(20 * time.Millisecond):
	}

	hub.Unregister("site-b", b)
	waitFor(t, func() bool { return len(hub.Topics()) == 1 })
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub()
	bad := newStubSubscriber(true)
	hub.Register("site", bad)
	waitFor(t, func() bool { return len(hub.Topics()) == 1 })

	hub.Broadcast("site", []byte("x"))
	waitFor(t, func() bool { return len(hub.Topics()) == 0 })
	if !bad.isClosed() {
		t.Fatal("expected failing subscriber to be closed")
	}
}

func TestSSEClientFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := client.Send([]byte(`{"type":"insights"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := client.Send([]byte(`{}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "id: 1\nevent: insights\ndata: {\"type\":\"insights\"}\n\n: ping\n\n") {
		t.Fatalf("unexpected stream %q", body)
	}
	if !strings.Contains(body, "id: 2\n") {
		t.Fatalf("expected sequence to advance: %q", body)
	}

	client.Close()
	if err := client.Send([]byte("late")); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after close, got %v", err)
	}
}
