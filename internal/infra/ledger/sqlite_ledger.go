package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteLedger implements Ledger on a SQLite database. Adjustments and their
// idempotency keys commit in one transaction, so a retried mutation can never
// double-apply.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger creates the ledger tables when missing and returns a ledger
// bound to the database.
func NewSQLiteLedger(db *sql.DB) (*SQLiteLedger, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_accounts (
		profile_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS ledger_mutations (
		idempotency_key TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Balance returns the current balance, zero for unknown profiles.
func (l *SQLiteLedger) Balance(ctx context.Context, profileID string) (int, error) {
	var balance int
	err := l.db.QueryRowContext(ctx,
		`SELECT balance FROM ledger_accounts WHERE profile_id = ?`, profileID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: balance query: %v", ErrUnavailable, err)
	}
	return balance, nil
}

// Adjust applies a delta to the balance. A key that was already applied is a
// no-op; the resulting balance is returned either way. Negative balances are
// permitted.
func (l *SQLiteLedger) Adjust(ctx context.Context, profileID string, delta int, idempotencyKey string) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin adjust: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	var seen int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ledger_mutations WHERE idempotency_key = ?`, idempotencyKey).Scan(&seen)
	if err != nil {
		return 0, fmt.Errorf("%w: dedup query: %v", ErrUnavailable, err)
	}

	if seen == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_accounts (profile_id, balance) VALUES (?, ?)
			ON CONFLICT(profile_id) DO UPDATE SET balance = balance + excluded.balance`,
			profileID, delta)
		if err != nil {
			return 0, fmt.Errorf("%w: apply delta: %v", ErrUnavailable, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_mutations (idempotency_key, profile_id, delta) VALUES (?, ?, ?)`,
			idempotencyKey, profileID, delta)
		if err != nil {
			return 0, fmt.Errorf("%w: record mutation: %v", ErrUnavailable, err)
		}
	}

	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM ledger_accounts WHERE profile_id = ?`, profileID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		balance = 0
	} else if err != nil {
		return 0, fmt.Errorf("%w: balance query: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit adjust: %v", ErrUnavailable, err)
	}
	return balance, nil
}
