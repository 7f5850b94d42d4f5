package session

import (
	"context"
	"sync"

	"github.com/rentwise/rentwise/internal/domain/chat"
)

// MemoryStore is a map-backed Store. Used in tests and when the service runs
// without a database path configured.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]chat.Turn
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]chat.Turn)}
}

// Conversation returns a copy of the session's turns so callers cannot
// mutate stored history.
func (s *MemoryStore) Conversation(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.conversations[sessionID]
	out := make([]chat.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append adds a turn to the session, creating it on first use.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[sessionID] = append(s.conversations[sessionID], turn)
	return nil
}
