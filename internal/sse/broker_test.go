package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "document.created", Data: map[string]string{"path": "a/a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: document.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a/a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDocumentEvent_CatalogThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger catalog.updated.
	b.PublishDocumentEvent("created", "a/a.md")
	// Second event immediately should NOT trigger another catalog.updated.
	b.PublishDocumentEvent("updated", "b/b.md")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	catalogCount := 0
	documentCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "catalog.updated") {
				catalogCount++
			} else {
				documentCount++
			}
		default:
			break loop
		}
	}

	if documentCount != 2 {
		t.Errorf("document events = %d, want 2", documentCount)
	}
	if catalogCount != 1 {
		t.Errorf("catalog events = %d, want 1 (throttled)", catalogCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishSessionEvent("changed", map[string]string{"mode": "wysiwyg"})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: session.changed") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "document.updated", Data: map[string]string{"path": "x/x.md"}})
	b.PublishDocumentEvent("updated", "x/x.md")
}

func TestPublishDocumentEvent_CarriesPackageName(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent("deleted", "notes/notes.md")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: document.deleted") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"name":"notes"`) {
			t.Errorf("missing package name in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDocumentEvent_IgnoresUnknownKind(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent("renamed", "a/a.md")
	b.PublishSessionEvent("saved", nil)

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: session.saved") {
			t.Errorf("unexpected first message %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSessionEventsCoalesce(t *testing.T) {
	b := NewBroker(time.Hour, WithSessionCoalesce(50*time.Millisecond))
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for _, mode := range []string{"wysiwyg", "markdown", "html"} {
		b.PublishSessionEvent("changed", map[string]string{"mode": mode})
	}
	b.PublishSessionEvent("saved", nil)

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-timeout:
			t.Fatalf("timeout, got %q", got)
		}
	}
	if !strings.Contains(got[0], "event: session.changed") || !strings.Contains(got[0], `"mode":"html"`) {
		t.Errorf("first event = %q, want latest session.changed", got[0])
	}
	if !strings.Contains(got[1], "event: session.saved") {
		t.Errorf("second event = %q", got[1])
	}

	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeFromReplaysNewerEvents(t *testing.T) {
	b := NewBroker(time.Hour, WithReplay(2))
	defer b.Close()

	for _, p := range []string{"a", "b", "c"} {
		b.Publish(Event{Type: "test", Data: map[string]string{"p": p}})
	}
	// Let the loop drain the publish queue.
	_ = b.ClientCount()

	ch := b.SubscribeFrom(1)
	defer b.Unsubscribe(ch)

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-time.After(time.Second):
			t.Fatalf("timeout, got %q", got)
		}
	}
	if !strings.HasPrefix(got[0], "id: 2\n") || !strings.Contains(got[0], `"p":"b"`) {
		t.Errorf("first replayed = %q", got[0])
	}
	if !strings.HasPrefix(got[1], "id: 3\n") {
		t.Errorf("second replayed = %q", got[1])
	}
}

func TestSSEHandler_LastEventID(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	b.Publish(Event{Type: "first", Data: map[string]string{}})
	b.Publish(Event{Type: "second", Data: map[string]string{}})
	_ = b.ClientCount()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Contains(body, "event: first") || !strings.Contains(body, "event: second") {
		t.Errorf("resumed stream = %q", body)
	}
}
