package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/voicedesk/internal/db"
)

// maxSummaryLen bounds the stored query summary for audit readability.
const maxSummaryLen = 200

// timestampLayout is a fixed-width UTC format so lexical and chronological
// order agree in SQL sorting.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// Store persists escalation events for later audit. Inserts only; events
// are never updated or deleted.
type Store struct {
	db *db.DB
}

// NewStore creates an escalation event store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record writes a new escalation event. ID and CreatedAt are filled in,
// and the summary is truncated to a short audit-friendly length.
func (s *Store) Record(ctx context.Context, ev Event) (*Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.CreatedAt = time.Now().UTC()
	ev.Summary = truncate(ev.Summary, maxSummaryLen)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escalation_events (id, session_id, turn, reason, query_summary, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.Turn, string(ev.Reason), ev.Summary, ev.Confidence,
		ev.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting escalation event: %w", err)
	}
	return &ev, nil
}

// List returns the most recent escalation events, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, turn, reason, query_summary, confidence, created_at
		 FROM escalation_events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing escalation events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var reason, ts string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Turn, &reason, &ev.Summary, &ev.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("scanning escalation event: %w", err)
		}
		ev.Reason = Reason(reason)
		if t, parseErr := time.Parse(timestampLayout, ts); parseErr == nil {
			ev.CreatedAt = t.UTC()
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountBySession returns how many escalations a session has accumulated.
func (s *Store) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM escalation_events WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting escalation events: %w", err)
	}
	return n, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
