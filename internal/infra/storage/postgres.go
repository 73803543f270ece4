// Package storage - postgres.go
// PostgreSQL implementation of EventRepository, for deployments where the
// event history outgrows the local SQLite file. The caller supplies the
// *sql.DB opened with a PostgreSQL driver; this file only speaks database/sql.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// EnsureSchema creates the events table when it does not exist yet.
func (r *PostgresEventRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			tick_time TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_profile ON events(profile_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create postgres schema: %w", err)
	}
	return nil
}

// Append inserts a new event into the immutable history.
func (r *PostgresEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (id, profile_id, timestamp, event_type, payload, tick_time)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.ProfileID, event.Timestamp.UTC(),
		event.EventType, string(payloadJSON), event.TickTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Timestamp, &e.EventType, &payloadStr, &e.TickTime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByProfileID retrieves all events recorded for a profile.
func (r *PostgresEventRepository) GetByProfileID(ctx context.Context, profileID string) ([]GameEvent, error) {
	query := `SELECT id, profile_id, timestamp, event_type, payload, tick_time FROM events WHERE profile_id = $1 ORDER BY timestamp ASC`
	return r.getMany(ctx, query, profileID)
}

// GetByEventType retrieves all events of a specific type.
func (r *PostgresEventRepository) GetByEventType(ctx context.Context, eventType string) ([]GameEvent, error) {
	query := `SELECT id, profile_id, timestamp, event_type, payload, tick_time FROM events WHERE event_type = $1 ORDER BY timestamp ASC`
	return r.getMany(ctx, query, eventType)
}

// GetSince retrieves events recorded at or after the given time.
func (r *PostgresEventRepository) GetSince(ctx context.Context, since time.Time) ([]GameEvent, error) {
	query := `SELECT id, profile_id, timestamp, event_type, payload, tick_time FROM events WHERE timestamp >= $1 ORDER BY timestamp ASC`
	return r.getMany(ctx, query, since.UTC())
}
