package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/models"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

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

	b.Publish(Event{Type: TypeDocumentCreated, Data: map[string]string{"id": "d1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: document.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"d1"`) {
			t.Errorf("missing data in %q", s)
		}
		if !strings.HasPrefix(s, "id: 1\n") {
			t.Errorf("missing sequence id in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestIndexUpdated_ThrottledWithTrailingDelivery(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishIndexUpdated(map[string]int{"n": 1})
	b.PublishIndexUpdated(map[string]int{"n": 2})
	b.PublishIndexUpdated(map[string]int{"n": 3})

	time.Sleep(100 * time.Millisecond)
	first := drain(ch)
	if len(first) != 1 || !strings.Contains(first[0], `"n":1`) {
		t.Fatalf("leading events = %q", first)
	}

	time.Sleep(400 * time.Millisecond)
	rest := drain(ch)
	if len(rest) != 1 || !strings.Contains(rest[0], `"n":3`) {
		t.Errorf("trailing events = %q, want only the latest", rest)
	}
}

func TestObserveMapsActions(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	p := models.Project{ID: "p1", Name: "Novel", Documents: []models.Document{}}
	d := models.Document{ID: "d1", Name: "Chapter 1", Content: "secret draft"}

	s := appstate.Reduce(appstate.Initial(), appstate.Load([]models.Project{p}))
	b.Observe(s, appstate.Load([]models.Project{p}))
	s = appstate.Reduce(s, appstate.DocumentCreated(d))
	b.Observe(s, appstate.DocumentCreated(d))
	b.Observe(s, appstate.DocumentSelected(d))
	b.Observe(s, appstate.DocumentDeleted("d1"))

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	want := []string{TypeStateLoaded, TypeDocumentCreated, TypeSelectionChanged, TypeDocumentDeleted}
	if len(msgs) != len(want) {
		t.Fatalf("got %d events: %q", len(msgs), msgs)
	}
	for i, typ := range want {
		if !strings.Contains(msgs[i], "event: "+typ+"\n") {
			t.Errorf("event %d = %q, want %s", i, msgs[i], typ)
		}
	}
	if !strings.Contains(msgs[1], `"projectId":"p1"`) {
		t.Errorf("document.created lacks owner: %q", msgs[1])
	}
	for _, m := range msgs {
		if strings.Contains(m, "secret draft") {
			t.Error("document content leaked into the stream")
		}
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeDocumentUpdated, Data: map[string]string{"id": "d1"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if body := w.Body.String(); !strings.Contains(body, "event: document.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

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

	// Capacity is 64; the loop must not block on the extra events.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: i})
	}
	if n := b.ClientCount(); n != 1 {
		t.Errorf("clients = %d", n)
	}
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

	// Safe no-ops after close.
	b.Publish(Event{Type: TypeDocumentUpdated})
	b.PublishIndexUpdated(nil)
	b.Close()
}
