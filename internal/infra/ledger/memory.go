package ledger

import (
	"context"
	"sync"
)

// MemoryLedger is an in-memory Ledger used by tests and the offline
// simulation harness. It can be told to fail on demand to exercise the
// engine's collaborator-failure paths.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	applied  map[string]bool

	// FailNext makes the next N calls return ErrUnavailable.
	FailNext int
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int),
		applied:  make(map[string]bool),
	}
}

// SetBalance seeds a balance directly, bypassing idempotency tracking.
func (l *MemoryLedger) SetBalance(profileID string, balance int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[profileID] = balance
}

// Balance returns the current balance, zero for unknown profiles.
func (l *MemoryLedger) Balance(ctx context.Context, profileID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNext > 0 {
		l.FailNext--
		return 0, ErrUnavailable
	}
	return l.balances[profileID], nil
}

// Adjust applies a delta unless the idempotency key was already seen.
func (l *MemoryLedger) Adjust(ctx context.Context, profileID string, delta int, idempotencyKey string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNext > 0 {
		l.FailNext--
		return 0, ErrUnavailable
	}
	if !l.applied[idempotencyKey] {
		l.applied[idempotencyKey] = true
		l.balances[profileID] += delta
	}
	return l.balances[profileID], nil
}
