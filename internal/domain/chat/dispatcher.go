package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rentwise/rentwise/internal/infra/eventbus"
)

// genericFailureReply is the last-resort assistant reply when no branch
// produced a usable answer.
const genericFailureReply = "Sorry, something went wrong handling your message. Please try again."

// Store is the slice of the session store the dispatcher needs. Satisfied by
// the session package implementations.
type Store interface {
	Conversation(ctx context.Context, sessionID string) ([]Turn, error)
	Append(ctx context.Context, sessionID string, turn Turn) error
}

// Locker serializes message handling per session.
type Locker interface {
	Lock(sessionID string) func()
}

// Dispatcher runs the route-then-respond flow for one user message:
// load history, persist the user turn, classify, run exactly one branch,
// persist the assistant turn, publish an audit event.
type Dispatcher struct {
	store  Store
	locks  Locker
	router *Router
	issues *IssueDetector
	faq    *FAQAgent
	bus    eventbus.EventBus
}

// NewDispatcher wires the routing core together.
func NewDispatcher(store Store, locks Locker, router *Router, issues *IssueDetector, faq *FAQAgent, bus eventbus.EventBus) *Dispatcher {
	return &Dispatcher{
		store:  store,
		locks:  locks,
		router: router,
		issues: issues,
		faq:    faq,
		bus:    bus,
	}
}

// Result is the outcome of one handled message.
type Result struct {
	Reply    Turn
	Decision Decision
}

// HandleMessage processes one user turn for a session and returns the
// assistant reply. Requests for the same session are serialized; requests for
// different sessions run concurrently.
//
// Model failures inside a branch degrade to a fixed apology reply and are
// reported on the audit event, not to the caller. Only storage failures
// surface as errors, since then the conversation itself is broken.
func (d *Dispatcher) HandleMessage(ctx context.Context, sessionID string, userTurn Turn) (Result, error) {
	started := time.Now()

	unlock := d.locks.Lock(sessionID)
	defer unlock()

	history, err := d.store.Conversation(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("chat: load conversation %s: %w", sessionID, err)
	}
	if err := d.store.Append(ctx, sessionID, userTurn); err != nil {
		return Result{}, fmt.Errorf("chat: persist user turn: %w", err)
	}

	turns := append(history, userTurn)
	outcome, branchErr := d.router.Route(ctx, turns)

	var reply string
	switch outcome.Decision {
	case DecisionVisualIssue:
		reply, branchErr = d.issues.Analyze(ctx, turns)
	case DecisionTenancyFAQ:
		reply, branchErr = d.faq.Answer(ctx, turns)
	case DecisionClarify:
		// The router already produced the reply; branchErr may carry a
		// routing failure that degraded to clarify.
		reply = outcome.Reply
	default:
		outcome.Decision = DecisionClarify
		reply = genericFailureReply
	}
	if reply == "" {
		reply = genericFailureReply
	}

	assistant := AssistantText(reply)
	if err := d.store.Append(ctx, sessionID, assistant); err != nil {
		return Result{}, fmt.Errorf("chat: persist assistant turn: %w", err)
	}

	d.bus.Publish(TopicRouted, RoutedEvent{
		SessionID: sessionID,
		Decision:  outcome.Decision,
		Err:       errString(branchErr),
		Latency:   time.Since(started),
	})

	return Result{Reply: assistant, Decision: outcome.Decision}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
