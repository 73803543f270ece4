package profile

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two unit categories a mission can require.
type Kind string

const (
	KindVehicle Kind = "VEHICLE"
	KindStaff   Kind = "STAFF"
)

// Unit is one owned instance of a vehicle or staff type. A unit is either
// available or on cooldown; it is never assigned to two overlapping missions.
type Unit struct {
	ID          string    `json:"id"`
	TypeID      string    `json:"type_id"`
	Kind        Kind      `json:"kind"`
	AvailableAt time.Time `json:"available_at"` // zero or past = available
}

// NewUnit creates a fresh, immediately available unit instance.
func NewUnit(typeID string, kind Kind) *Unit {
	return &Unit{
		ID:     uuid.NewString(),
		TypeID: typeID,
		Kind:   kind,
	}
}

// Available reports whether the unit can be assigned at the given time.
func (u *Unit) Available(now time.Time) bool {
	return u.AvailableAt.IsZero() || !u.AvailableAt.After(now)
}
