package audit

import (
	"context"
	"testing"
	"time"

	"github.com/rentwise/rentwise/internal/domain/chat"
	"github.com/rentwise/rentwise/internal/infra/eventbus"
	infrasqlite "github.com/rentwise/rentwise/internal/infra/sqlite"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	db, err := infrasqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := infrasqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp error = %v", err)
	}
	return NewRecorder(db)
}

func TestRecorder_RecordAndQuery(t *testing.T) {
	recorder := newTestRecorder(t)
	ctx := context.Background()

	evt := chat.RoutedEvent{
		SessionID: "s1",
		Decision:  chat.DecisionTenancyFAQ,
		Latency:   123 * time.Millisecond,
	}
	if err := recorder.Record(ctx, evt); err != nil {
		t.Fatalf("Record error = %v", err)
	}

	entries, err := recorder.BySession(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("BySession error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Decision != string(chat.DecisionTenancyFAQ) {
		t.Errorf("Decision = %q", entries[0].Decision)
	}
	if entries[0].Latency != 123*time.Millisecond {
		t.Errorf("Latency = %v", entries[0].Latency)
	}
	if entries[0].Err != "" {
		t.Errorf("Err = %q, want empty", entries[0].Err)
	}
}

func TestRecorder_RecordsBranchError(t *testing.T) {
	recorder := newTestRecorder(t)
	ctx := context.Background()

	evt := chat.RoutedEvent{
		SessionID: "s1",
		Decision:  chat.DecisionVisualIssue,
		Err:       "completion failed: status 500",
	}
	if err := recorder.Record(ctx, evt); err != nil {
		t.Fatalf("Record error = %v", err)
	}

	entries, err := recorder.BySession(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("BySession error = %v", err)
	}
	if entries[0].Err != "completion failed: status 500" {
		t.Errorf("Err = %q", entries[0].Err)
	}
}

func TestRecorder_RunConsumesBusEvents(t *testing.T) {
	recorder := newTestRecorder(t)

	bus := eventbus.New()
	events := bus.Subscribe(chat.TopicRouted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		recorder.Run(ctx, events)
		close(done)
	}()

	bus.Publish(chat.TopicRouted, chat.RoutedEvent{
		SessionID: "s-bus",
		Decision:  chat.DecisionClarify,
		Latency:   5 * time.Millisecond,
	})

	deadline := time.After(2 * time.Second)
	for {
		entries, err := recorder.BySession(context.Background(), "s-bus", 10)
		if err != nil {
			t.Fatalf("BySession error = %v", err)
		}
		if len(entries) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("routed event never recorded")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}

func TestRecorder_RunIgnoresForeignPayloads(t *testing.T) {
	recorder := newTestRecorder(t)

	bus := eventbus.New()
	events := bus.Subscribe(chat.TopicRouted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Run(ctx, events)

	bus.Publish(chat.TopicRouted, "not a routed event")
	bus.Publish(chat.TopicRouted, chat.RoutedEvent{SessionID: "ok", Decision: chat.DecisionTenancyFAQ})

	deadline := time.After(2 * time.Second)
	for {
		entries, err := recorder.BySession(context.Background(), "ok", 10)
		if err != nil {
			t.Fatalf("BySession error = %v", err)
		}
		if len(entries) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("valid event after foreign payload never recorded")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
