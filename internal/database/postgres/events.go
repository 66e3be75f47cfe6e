package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/photo-finder/internal/database"
)

// EventRepository provides PostgreSQL-backed event storage.
type EventRepository struct {
	pool *Pool
}

// NewEventRepository creates a new event repository.
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// CreateEvent stores a new event; the code must be unique.
func (r *EventRepository) CreateEvent(ctx context.Context, event *database.Event) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO events (id, code, name, date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.Code, event.Name, event.Date, event.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return database.ErrDuplicateCode
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*database.Event, error) {
	return r.scanEvent(r.pool.db.QueryRowContext(ctx, `
		SELECT id, code, name, date, created_at FROM events WHERE id = $1
	`, id))
}

// GetEventByCode retrieves an event by its short code.
func (r *EventRepository) GetEventByCode(ctx context.Context, code string) (*database.Event, error) {
	return r.scanEvent(r.pool.db.QueryRowContext(ctx, `
		SELECT id, code, name, date, created_at FROM events WHERE code = $1
	`, code))
}

func (r *EventRepository) scanEvent(row *sql.Row) (*database.Event, error) {
	var event database.Event
	err := row.Scan(&event.ID, &event.Code, &event.Name, &event.Date, &event.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &event, nil
}

// ListEvents returns all events, newest first.
func (r *EventRepository) ListEvents(ctx context.Context) ([]database.Event, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, code, name, date, created_at FROM events ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []database.Event
	for rows.Next() {
		var event database.Event
		if err := rows.Scan(&event.ID, &event.Code, &event.Name, &event.Date, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event; photos and faces cascade in the schema.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}
