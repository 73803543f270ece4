// Package storage provides the persistence layer for the dispatch server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/policechief/server/internal/domain/profile"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// ProfileRepository defines the interface for profile persistence.
// The engine uses this interface under its own per-profile lock; the
// implementation must not introduce conflicting locking of its own.
type ProfileRepository interface {
	// Load retrieves a profile by id. Returns ErrNotFound when absent.
	Load(ctx context.Context, profileID string) (*profile.Profile, error)

	// Create inserts a fresh profile with default starting resources.
	Create(ctx context.Context, profileID string) (*profile.Profile, error)

	// Save persists the full profile state, including the last-processed
	// tick timestamp, in a single transaction.
	Save(ctx context.Context, p *profile.Profile) error

	// ListAutomationEnabled returns the ids of profiles with automation
	// switched on. Used by the background sweep.
	ListAutomationEnabled(ctx context.Context) ([]string, error)
}

// GameEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	ProfileID string                 `json:"profile_id" db:"profile_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	TickTime  time.Time              `json:"tick_time" db:"tick_time"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger of history.
	Append(ctx context.Context, event GameEvent) error

	// GetByProfileID retrieves all events recorded for a profile.
	GetByProfileID(ctx context.Context, profileID string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, eventType string) ([]GameEvent, error)

	// GetSince retrieves events recorded at or after the given time.
	GetSince(ctx context.Context, since time.Time) ([]GameEvent, error)
}
