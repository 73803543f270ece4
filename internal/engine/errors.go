// Package engine contains the time-advancement and mission-resolution core.
// It orchestrates catch-up ticks, automation dispatch, outcome resolution and
// cooldown bookkeeping, committing per-profile state transactionally.
package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy. Skip-level conditions (unit on cooldown, balance below the
// minimum) never surface as run errors from automation; they only appear when
// a caller explicitly asks for a single dispatch that cannot happen.
var (
	// ErrRetryable wraps collaborator (ledger/store) failures. The catch-up
	// run aborts at the current tick boundary; already-committed ticks stay
	// committed and the caller may retry.
	ErrRetryable = errors.New("engine: retryable collaborator failure")

	// ErrInvalidState marks programmer-error conditions such as reserving an
	// already-reserved unit. It should not occur under correct locking; when
	// it does the operation fails fast without partial mutation.
	ErrInvalidState = errors.New("engine: invalid state")

	// ErrResourceUnavailable is returned by manual dispatch when required
	// unit types are on cooldown or not owned.
	ErrResourceUnavailable = errors.New("engine: required units unavailable")

	// ErrInsufficientFunds is returned when an operation would violate the
	// minimum-balance threshold or costs more than the ledger holds.
	ErrInsufficientFunds = errors.New("engine: insufficient funds")

	// ErrUnknownEntity is returned when a referenced catalog entry or profile
	// does not exist.
	ErrUnknownEntity = errors.New("engine: unknown entity")
)

func retryable(err error) error {
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// IsRetryable reports whether the caller may retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}
