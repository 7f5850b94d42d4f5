package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rentwise/rentwise/internal/domain/chat"
)

const turnTimeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteStore persists conversations in the session/turn tables.
// Turn parts are serialized as a JSON array (image bytes base64-encoded by
// encoding/json); the seq column preserves insertion order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore on an already-migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Conversation returns the ordered turns for sessionID.
func (s *SQLiteStore) Conversation(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, parts, created_at
		FROM turn
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]chat.Turn, 0)
	for rows.Next() {
		turn, scanErr := scanTurn(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		turns = append(turns, turn)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("session: iterate turns: %w", rowsErr)
	}
	return turns, nil
}

// Append adds a turn at the next seq for the session, creating the session
// row on first use. The whole read-increment-insert runs in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn chat.Turn) error {
	parts, err := json.Marshal(turn.Parts)
	if err != nil {
		return fmt.Errorf("session: marshal parts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck
	}()

	if _, execErr := tx.ExecContext(ctx, `
		INSERT INTO session (id) VALUES (?)
		ON CONFLICT (id) DO NOTHING
	`, sessionID); execErr != nil {
		return fmt.Errorf("session: ensure session: %w", execErr)
	}

	if _, execErr := tx.ExecContext(ctx, `
		INSERT INTO turn (id, session_id, seq, role, parts, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turn WHERE session_id = ?), ?, ?, ?)
	`, turn.ID, sessionID, sessionID, turn.Role, string(parts), turn.CreatedAt.UTC().Format(turnTimeLayout)); execErr != nil {
		return fmt.Errorf("session: insert turn: %w", execErr)
	}

	return tx.Commit()
}

type turnScanner interface {
	Scan(dest ...any) error
}

func scanTurn(scan turnScanner) (chat.Turn, error) {
	var turn chat.Turn
	var parts string
	var createdAt string

	if err := scan.Scan(&turn.ID, &turn.Role, &parts, &createdAt); err != nil {
		return chat.Turn{}, fmt.Errorf("session: scan turn: %w", err)
	}
	if err := json.Unmarshal([]byte(parts), &turn.Parts); err != nil {
		return chat.Turn{}, fmt.Errorf("session: unmarshal parts: %w", err)
	}
	turn.CreatedAt = parseTurnTime(createdAt)
	return turn, nil
}

func parseTurnTime(raw string) time.Time {
	if t, err := time.Parse(turnTimeLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}
