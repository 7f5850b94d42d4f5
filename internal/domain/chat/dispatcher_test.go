package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rentwise/rentwise/internal/infra/eventbus"
	"github.com/rentwise/rentwise/internal/infra/llm"
)

// memStore is a minimal in-memory Store for dispatcher tests.
type memStore struct {
	mu            sync.Mutex
	conversations map[string][]Turn
	appendErr     error
}

func newMemStore() *memStore {
	return &memStore{conversations: make(map[string][]Turn)}
}

func (s *memStore) Conversation(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.conversations[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *memStore) Append(_ context.Context, sessionID string, turn Turn) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[sessionID] = append(s.conversations[sessionID], turn)
	return nil
}

type noopLocker struct{}

func (noopLocker) Lock(string) func() { return func() {} }

type dispatcherFixture struct {
	dispatcher *Dispatcher
	store      *memStore
	classifier *stubProvider
	vision     *stubProvider
	faq        *stubProvider
	events     <-chan eventbus.Event
}

func newFixture(classifier, vision, faq *stubProvider) *dispatcherFixture {
	models := llm.NewRouter(map[string]llm.LLMProvider{
		llm.PurposeRouter: classifier,
		llm.PurposeVision: vision,
		llm.PurposeFAQ:    faq,
	}, llm.PurposeRouter)

	store := newMemStore()
	bus := eventbus.New()
	events := bus.Subscribe(TopicRouted)

	d := NewDispatcher(store, noopLocker{}, NewRouter(models), NewIssueDetector(models), NewFAQAgent(models), bus)
	return &dispatcherFixture{dispatcher: d, store: store, classifier: classifier, vision: vision, faq: faq, events: events}
}

func (f *dispatcherFixture) event(t *testing.T) RoutedEvent {
	t.Helper()
	select {
	case evt := <-f.events:
		routed, ok := evt.Payload.(RoutedEvent)
		if !ok {
			t.Fatalf("payload type %T", evt.Payload)
		}
		return routed
	case <-time.After(time.Second):
		t.Fatal("no routed event published")
		return RoutedEvent{}
	}
}

func TestDispatcher_VisualIssueFlow(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"visual_issue","clarification_message":null}`),
		classifierReturning("That looks like black mold, likely from condensation."),
		classifierReturning("unused"),
	)

	userTurn := NewTurn(RoleUser,
		TextPart("what's this dark patch on my ceiling?"),
		ImagePart("image/jpeg", []byte{0xff, 0xd8}),
	)
	res, err := f.dispatcher.HandleMessage(context.Background(), "s1", userTurn)
	if err != nil {
		t.Fatalf("HandleMessage error = %v", err)
	}

	if res.Decision != DecisionVisualIssue {
		t.Errorf("Decision = %q", res.Decision)
	}
	if res.Reply.Text() != "That looks like black mold, likely from condensation." {
		t.Errorf("Reply = %q", res.Reply.Text())
	}
	if f.faq.calls != 0 {
		t.Error("FAQ branch ran alongside the visual branch")
	}

	turns, _ := f.store.Conversation(context.Background(), "s1")
	if len(turns) != 2 {
		t.Fatalf("expected user + assistant turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Error("turn roles out of order")
	}

	evt := f.event(t)
	if evt.Decision != DecisionVisualIssue || evt.Err != "" {
		t.Errorf("event = %+v", evt)
	}
	if evt.SessionID != "s1" {
		t.Errorf("event session = %q", evt.SessionID)
	}
}

func TestDispatcher_VisionBranchReceivesImages(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"visual_issue","clarification_message":null}`),
		classifierReturning("analysis"),
		classifierReturning("unused"),
	)

	userTurn := NewTurn(RoleUser, TextPart("see photo"), ImagePart("image/png", []byte{9, 9}))
	if _, err := f.dispatcher.HandleMessage(context.Background(), "s1", userTurn); err != nil {
		t.Fatalf("HandleMessage error = %v", err)
	}

	req := f.vision.lastReq
	if len(req.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(req.Messages))
	}
	var sawImage bool
	for _, p := range req.Messages[1].Parts {
		if p.Type == llm.PartImage && len(p.Data) == 2 {
			sawImage = true
		}
	}
	if !sawImage {
		t.Error("image part not forwarded to the vision model")
	}
}

func TestDispatcher_FAQFlow(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"tenancy_faq","clarification_message":null}`),
		classifierReturning("unused"),
		classifierReturning("Deposits are usually capped at five weeks' rent."),
	)

	userTurn := NewTurn(RoleUser, TextPart("how much deposit can my landlord ask for?"))
	res, err := f.dispatcher.HandleMessage(context.Background(), "s1", userTurn)
	if err != nil {
		t.Fatalf("HandleMessage error = %v", err)
	}
	if res.Decision != DecisionTenancyFAQ {
		t.Errorf("Decision = %q", res.Decision)
	}
	if !strings.Contains(res.Reply.Text(), "five weeks") {
		t.Errorf("Reply = %q", res.Reply.Text())
	}
	if f.vision.calls != 0 {
		t.Error("vision branch ran for a text-only question")
	}
}

func TestDispatcher_ClarifyFlowUsesRouterReply(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"clarify","clarification_message":"Your name is Sam."}`),
		classifierReturning("unused"),
		classifierReturning("unused"),
	)

	res, err := f.dispatcher.HandleMessage(context.Background(), "s1",
		NewTurn(RoleUser, TextPart("what's my name?")))
	if err != nil {
		t.Fatalf("HandleMessage error = %v", err)
	}
	if res.Decision != DecisionClarify {
		t.Errorf("Decision = %q", res.Decision)
	}
	if res.Reply.Text() != "Your name is Sam." {
		t.Errorf("Reply = %q", res.Reply.Text())
	}
	if f.vision.calls != 0 || f.faq.calls != 0 {
		t.Error("a responder branch ran for a clarify decision")
	}
}

func TestDispatcher_RoutingFailureStillReplies(t *testing.T) {
	f := newFixture(
		&stubProvider{err: errors.New("status 502")},
		classifierReturning("unused"),
		classifierReturning("unused"),
	)

	res, err := f.dispatcher.HandleMessage(context.Background(), "s1",
		NewTurn(RoleUser, TextPart("hello?")))
	if err != nil {
		t.Fatalf("HandleMessage error = %v; branch failures must not surface", err)
	}
	if res.Decision != DecisionClarify || res.Reply.Text() != routingFailureReply {
		t.Errorf("result = %+v", res)
	}

	evt := f.event(t)
	if evt.Err == "" {
		t.Error("routing failure missing from the audit event")
	}

	turns, _ := f.store.Conversation(context.Background(), "s1")
	if len(turns) != 2 {
		t.Errorf("expected both turns persisted, got %d", len(turns))
	}
}

func TestDispatcher_VisionFailureDegradesToApology(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"visual_issue","clarification_message":null}`),
		&stubProvider{err: errors.New("model overloaded")},
		classifierReturning("unused"),
	)

	res, err := f.dispatcher.HandleMessage(context.Background(), "s1",
		NewTurn(RoleUser, TextPart("look"), ImagePart("image/png", []byte{1})))
	if err != nil {
		t.Fatalf("HandleMessage error = %v", err)
	}
	if res.Reply.Text() != issueFailureReply {
		t.Errorf("Reply = %q", res.Reply.Text())
	}
	if res.Decision != DecisionVisualIssue {
		t.Errorf("Decision = %q", res.Decision)
	}

	evt := f.event(t)
	if !strings.Contains(evt.Err, "model overloaded") {
		t.Errorf("event Err = %q", evt.Err)
	}
}

func TestDispatcher_FAQFailureDegradesToApology(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"tenancy_faq","clarification_message":null}`),
		classifierReturning("unused"),
		&stubProvider{err: errors.New("timeout")},
	)

	res, err := f.dispatcher.HandleMessage(context.Background(), "s1",
		NewTurn(RoleUser, TextPart("can my landlord evict me without notice?")))
	if err != nil {
		t.Fatalf("HandleMessage error = %v", err)
	}
	if res.Reply.Text() != faqFailureReply {
		t.Errorf("Reply = %q", res.Reply.Text())
	}
}

func TestDispatcher_HistoryReachesTheRouter(t *testing.T) {
	classifier := classifierReturning(`{"decision":"clarify","clarification_message":"Hi again!"}`)
	f := newFixture(classifier, classifierReturning("unused"), classifierReturning("unused"))

	ctx := context.Background()
	if _, err := f.dispatcher.HandleMessage(ctx, "s1", NewTurn(RoleUser, TextPart("hi, I'm Sam"))); err != nil {
		t.Fatalf("first message error = %v", err)
	}
	if _, err := f.dispatcher.HandleMessage(ctx, "s1", NewTurn(RoleUser, TextPart("what's my name?"))); err != nil {
		t.Fatalf("second message error = %v", err)
	}

	prompt := classifier.lastReq.Messages[0].Parts[0].Text
	if !strings.Contains(prompt, "hi, I'm Sam") {
		t.Error("earlier user turn missing from routing prompt")
	}
	if !strings.Contains(prompt, "Assistant: Hi again!") {
		t.Error("earlier assistant turn missing from routing prompt")
	}
}

func TestDispatcher_SessionsAreIndependent(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"clarify","clarification_message":"ok"}`),
		classifierReturning("unused"),
		classifierReturning("unused"),
	)

	ctx := context.Background()
	if _, err := f.dispatcher.HandleMessage(ctx, "a", NewTurn(RoleUser, TextPart("hello from a"))); err != nil {
		t.Fatalf("session a error = %v", err)
	}
	if _, err := f.dispatcher.HandleMessage(ctx, "b", NewTurn(RoleUser, TextPart("hello from b"))); err != nil {
		t.Fatalf("session b error = %v", err)
	}

	prompt := f.classifier.lastReq.Messages[0].Parts[0].Text
	if strings.Contains(prompt, "hello from a") {
		t.Error("session b prompt leaked session a history")
	}
}

func TestDispatcher_StoreFailureSurfaces(t *testing.T) {
	f := newFixture(
		classifierReturning(`{"decision":"clarify","clarification_message":"ok"}`),
		classifierReturning("unused"),
		classifierReturning("unused"),
	)
	f.store.appendErr = errors.New("disk full")

	_, err := f.dispatcher.HandleMessage(context.Background(), "s1",
		NewTurn(RoleUser, TextPart("hello")))
	if err == nil {
		t.Fatal("expected storage failure to surface")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v", err)
	}
}
