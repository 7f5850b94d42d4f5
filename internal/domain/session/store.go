// Package session provides per-session conversation storage.
// Conversations are append-only: turns are never reordered or deleted, and
// sessions are created implicitly on first use. A "clear" from the client is
// advisory only; fresh context is obtained by switching to a new session ID.
package session

import (
	"context"
	"sync"

	"github.com/rentwise/rentwise/internal/domain/chat"
)

// Store is the per-session conversation store. Implementations must preserve
// insertion order within a session.
type Store interface {
	// Conversation returns the ordered turns for sessionID. An unknown
	// session yields an empty slice, not an error.
	Conversation(ctx context.Context, sessionID string) ([]chat.Turn, error)

	// Append adds a turn to the end of the session's conversation, creating
	// the session if it does not exist yet.
	Append(ctx context.Context, sessionID string, turn chat.Turn) error
}

// Locker serializes request processing per session so the read-route-append
// sequence of one request completes before the next request for the same
// session reads the conversation. Different sessions never contend.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for sessionID, creating it on first use.
// The returned function releases it.
func (l *Locker) Lock(sessionID string) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
