package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

// NewSQLiteEventRepository creates a new SQLite event repository.
func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

// Append inserts a new event into the immutable history.
func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (id, profile_id, timestamp, event_type, payload, tick_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.ProfileID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.EventType, string(payloadBytes),
		event.TickTime.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr, ts, tickTS string
		if err := rows.Scan(&e.ID, &e.ProfileID, &ts, &e.EventType, &payloadStr, &tickTS); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, err
		}
		if e.TickTime, err = time.Parse(time.RFC3339Nano, tickTS); err != nil {
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
func (r *SQLiteEventRepository) GetByProfileID(ctx context.Context, profileID string) ([]GameEvent, error) {
	query := `SELECT id, profile_id, timestamp, event_type, payload, tick_time FROM events WHERE profile_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, profileID)
}

// GetByEventType retrieves all events of a specific type.
func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, eventType string) ([]GameEvent, error) {
	query := `SELECT id, profile_id, timestamp, event_type, payload, tick_time FROM events WHERE event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, eventType)
}

// GetSince retrieves events recorded at or after the given time.
func (r *SQLiteEventRepository) GetSince(ctx context.Context, since time.Time) ([]GameEvent, error) {
	query := `SELECT id, profile_id, timestamp, event_type, payload, tick_time FROM events WHERE timestamp >= ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, since.UTC().Format(time.RFC3339Nano))
}
