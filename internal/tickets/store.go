package tickets

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/voicedesk/internal/db"
)

// Store provides SQLite-backed access to ticket records.
type Store struct {
	db *db.DB
}

// NewStore creates a ticket store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Insert adds or replaces a ticket.
func (s *Store) Insert(ctx context.Context, t Ticket) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tickets (id, title, description, category, priority, status, assigned_team, resolution, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Category, t.Priority, t.Status, t.AssignedTeam, t.Resolution, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting ticket %s: %w", t.ID, err)
	}
	return nil
}

// Get retrieves a ticket by ID. Returns (nil, nil) when not found.
func (s *Store) Get(ctx context.Context, id string) (*Ticket, error) {
	var t Ticket
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, category, priority, status, assigned_team, resolution, created_at, updated_at
		 FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status, &t.AssignedTeam, &t.Resolution, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket %s: %w", id, err)
	}
	return &t, nil
}

// Search finds tickets whose title or description match any of the
// keywords, optionally filtered by status and priority.
func (s *Store) Search(ctx context.Context, keywords []string, status, priority string, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, title, description, category, priority, status, assigned_team, resolution, created_at, updated_at
		 FROM tickets WHERE 1=1`
	args := []interface{}{}

	if len(keywords) > 0 {
		var clauses []string
		for _, kw := range keywords {
			clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
			pattern := "%" + kw + "%"
			args = append(args, pattern, pattern)
		}
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if priority != "" {
		query += " AND priority = ?"
		args = append(args, priority)
	}

	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching tickets: %w", err)
	}
	defer rows.Close()

	var results []Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status, &t.AssignedTeam, &t.Resolution, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// Count returns the number of tickets in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tickets: %w", err)
	}
	return n, nil
}
