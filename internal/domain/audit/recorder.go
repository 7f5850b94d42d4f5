// Package audit records one row per dispatched chat request: the routing
// decision, latency, and any branch error. Rows are append-only; the recorder
// consumes chat.routed events off the request path so auditing never adds
// latency to a reply.
package audit

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rentwise/rentwise/internal/domain/chat"
	"github.com/rentwise/rentwise/internal/infra/eventbus"
)

// Entry is a single audit log row.
// Immutable once written.
type Entry struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Decision  string        `json:"decision"`
	Err       string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
	CreatedAt time.Time     `json:"created_at"`
}

// Recorder persists routed-event entries to the audit_event table.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a Recorder on an already-migrated database.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Run consumes routed events until ctx is cancelled. Insert failures are
// logged and skipped; an audit miss must not stop the consumer loop.
func (r *Recorder) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			routed, valid := evt.Payload.(chat.RoutedEvent)
			if !valid {
				continue
			}
			if err := r.Record(ctx, routed); err != nil {
				log.Printf("audit: record event for session %s: %v", routed.SessionID, err)
			}
		}
	}
}

// Record writes one audit row for a routed event.
func (r *Recorder) Record(ctx context.Context, evt chat.RoutedEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_event (id, session_id, decision, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), evt.SessionID, string(evt.Decision), evt.Err,
		evt.Latency.Milliseconds(), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// BySession returns the audit entries for a session, newest first.
func (r *Recorder) BySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, decision, error, latency_ms, created_at
		FROM audit_event
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var latencyMS int64
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Decision, &e.Err, &latencyMS, &createdAt); err != nil {
			return nil, err
		}
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
