package engine

import (
	"fmt"
	"time"

	"github.com/policechief/server/internal/domain/profile"
)

// CooldownTracker manages unit availability windows. It is stateless: the
// availableAt timestamp lives on the unit itself and is persisted with the
// profile. Callers must check availability immediately before reserving,
// under the profile lock, to avoid double-booking.
type CooldownTracker struct{}

// IsAvailable reports whether the unit can be assigned at now.
func (CooldownTracker) IsAvailable(u *profile.Unit, now time.Time) bool {
	return u.Available(now)
}

// Reserve marks the unit busy for the given duration and returns the time it
// becomes available again. Reserving an unavailable unit is a programmer
// error under correct locking and fails with ErrInvalidState.
func (CooldownTracker) Reserve(u *profile.Unit, now time.Time, duration time.Duration) (time.Time, error) {
	if duration < 0 {
		return time.Time{}, fmt.Errorf("%w: negative cooldown %v for unit %s", ErrInvalidState, duration, u.ID)
	}
	if !u.Available(now) {
		return time.Time{}, fmt.Errorf("%w: unit %s already reserved until %s", ErrInvalidState, u.ID, u.AvailableAt.Format(time.RFC3339))
	}
	u.AvailableAt = now.Add(duration)
	return u.AvailableAt, nil
}

// Release clears the cooldown early. Used only by admin operations.
func (CooldownTracker) Release(u *profile.Unit) {
	u.AvailableAt = time.Time{}
}
