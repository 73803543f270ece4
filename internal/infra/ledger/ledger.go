// Package ledger is the external currency collaborator. The engine never
// stores balances itself; every credit movement flows through this interface
// so deposits, withdrawals and balance checks stay transactional on the
// ledger's side.
package ledger

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport or I/O failures. Callers treat it as
// retryable: a catch-up run aborts at the current tick boundary and may be
// re-invoked later.
var ErrUnavailable = errors.New("ledger: unavailable")

// Ledger is the minimal contract the engine requires.
// Adjust must be atomic on the ledger side and may drive the balance
// negative; the minimum-balance policy is enforced by the Dispatch Selector,
// not here. The idempotency key deduplicates retries of the same mutation:
// applying a key twice is a no-op returning the current balance.
type Ledger interface {
	Balance(ctx context.Context, profileID string) (int, error)
	Adjust(ctx context.Context, profileID string, delta int, idempotencyKey string) (int, error)
}
