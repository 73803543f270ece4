// Package events provides the append-only audit log for the dispatch server.
// Every engine mutation (tick runs, dispatches, purchases, admin edits) is
// recorded here so history can be replayed and exported.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeTickProcessed    EventType = "TICK_PROCESSED"
	EventTypeMissionDispatch  EventType = "MISSION_DISPATCHED"
	EventTypeMissionResolved  EventType = "MISSION_RESOLVED"
	EventTypeRecurringCosts   EventType = "RECURRING_COSTS"
	EventTypeVehiclePurchased EventType = "VEHICLE_PURCHASED"
	EventTypeStaffHired       EventType = "STAFF_HIRED"
	EventTypeUnitRemoved      EventType = "UNIT_REMOVED"
	EventTypeUpgradePurchased EventType = "UPGRADE_PURCHASED"
	EventTypeDistrictUnlocked EventType = "DISTRICT_UNLOCKED"
	EventTypeAutomationToggle EventType = "AUTOMATION_TOGGLED"
	EventTypeAdminRelease     EventType = "ADMIN_COOLDOWN_RELEASE"
	EventTypeContentReloaded  EventType = "CONTENT_RELOADED"
)

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ProfileID string      `json:"profile_id"`
	Payload   interface{} `json:"payload"`
	// TickTime is the simulated clock position the event belongs to.
	// For catch-up runs this lags wall-clock time.
	TickTime time.Time `json:"tick_time"`
}

// New builds an event with a fresh id and the current wall-clock timestamp.
func New(eventType EventType, profileID string, tickTime time.Time, payload interface{}) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		ProfileID: profileID,
		Payload:   payload,
		TickTime:  tickTime,
	}
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events, write-through
// to an optional persister.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) {
	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		go func(e GameEvent) {
			_ = el.persister.Append(e)
		}(event)
	}
}

// GetByProfile returns all events recorded for a specific profile.
func (el *EventLog) GetByProfile(profileID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ProfileID == profileID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of a given type.
func (el *EventLog) GetByType(eventType EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history of events in append order.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.events
}

// Len returns the number of events currently held in memory.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}
