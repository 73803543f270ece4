package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/policechief/server/internal/domain/profile"
)

// SQLiteProfileRepository implements ProfileRepository for SQLite.
// Unit and id collections are stored as JSON columns, scalar state as
// plain columns so it can be inspected with any sqlite client.
type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewSQLiteProfileRepository creates a new SQLite profile repository.
func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

const profileColumns = `id, station_name, station_level, current_district,
	unlocked_districts, vehicles, staff, owned_upgrades, active_policies,
	reputation, heat, automation_enabled, last_processed_tick, ledger_balance,
	total_missions_completed, total_missions_failed,
	total_income_earned, total_expenses_paid`

// Load retrieves a profile by id.
func (r *SQLiteProfileRepository) Load(ctx context.Context, profileID string) (*profile.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, profileID)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", profileID, err)
	}
	return p, nil
}

// Create inserts a fresh profile with default starting resources.
func (r *SQLiteProfileRepository) Create(ctx context.Context, profileID string) (*profile.Profile, error) {
	p := profile.NewProfile(profileID)

	districts, _ := json.Marshal(p.UnlockedDistricts)
	vehicles, _ := json.Marshal(p.Vehicles)
	staff, _ := json.Marshal(p.Staff)
	upgrades, _ := json.Marshal(p.OwnedUpgrades)
	policies, _ := json.Marshal(p.ActivePolicies)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (
			id, station_name, station_level, current_district,
			unlocked_districts, vehicles, staff, owned_upgrades, active_policies,
			reputation, heat, automation_enabled, last_processed_tick
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StationName, p.StationLevel, p.CurrentDistrict,
		string(districts), string(vehicles), string(staff), string(upgrades), string(policies),
		p.Reputation, p.Heat, boolToInt(p.AutomationEnabled), nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile %s: %w", profileID, err)
	}
	return p, nil
}

// Save persists the full profile state in a single statement; SQLite applies
// it atomically, which is what makes catch-up commits idempotent.
func (r *SQLiteProfileRepository) Save(ctx context.Context, p *profile.Profile) error {
	districts, _ := json.Marshal(p.UnlockedDistricts)
	vehicles, _ := json.Marshal(p.Vehicles)
	staff, _ := json.Marshal(p.Staff)
	upgrades, _ := json.Marshal(p.OwnedUpgrades)
	policies, _ := json.Marshal(p.ActivePolicies)

	var lastTick interface{}
	if !p.LastProcessedTick.IsZero() {
		lastTick = p.LastProcessedTick.UTC().Format(time.RFC3339Nano)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET
			station_name = ?,
			station_level = ?,
			current_district = ?,
			unlocked_districts = ?,
			vehicles = ?,
			staff = ?,
			owned_upgrades = ?,
			active_policies = ?,
			reputation = ?,
			heat = ?,
			automation_enabled = ?,
			last_processed_tick = ?,
			ledger_balance = ?,
			total_missions_completed = ?,
			total_missions_failed = ?,
			total_income_earned = ?,
			total_expenses_paid = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.StationName, p.StationLevel, p.CurrentDistrict,
		string(districts), string(vehicles), string(staff), string(upgrades), string(policies),
		p.Reputation, p.Heat, boolToInt(p.AutomationEnabled), lastTick, p.LedgerBalance,
		p.TotalMissionsCompleted, p.TotalMissionsFailed,
		p.TotalIncomeEarned, p.TotalExpensesPaid,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAutomationEnabled returns ids of profiles with automation switched on.
func (r *SQLiteProfileRepository) ListAutomationEnabled(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM profiles WHERE automation_enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list automated profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanProfile(row *sql.Row) (*profile.Profile, error) {
	var p profile.Profile
	var districts, vehicles, staff, upgrades, policies string
	var lastTick sql.NullString
	var automation int

	err := row.Scan(
		&p.ID, &p.StationName, &p.StationLevel, &p.CurrentDistrict,
		&districts, &vehicles, &staff, &upgrades, &policies,
		&p.Reputation, &p.Heat, &automation, &lastTick, &p.LedgerBalance,
		&p.TotalMissionsCompleted, &p.TotalMissionsFailed,
		&p.TotalIncomeEarned, &p.TotalExpensesPaid,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(districts), &p.UnlockedDistricts); err != nil {
		return nil, fmt.Errorf("decode unlocked_districts: %w", err)
	}
	if err := json.Unmarshal([]byte(vehicles), &p.Vehicles); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}
	if err := json.Unmarshal([]byte(staff), &p.Staff); err != nil {
		return nil, fmt.Errorf("decode staff: %w", err)
	}
	if err := json.Unmarshal([]byte(upgrades), &p.OwnedUpgrades); err != nil {
		return nil, fmt.Errorf("decode owned_upgrades: %w", err)
	}
	if err := json.Unmarshal([]byte(policies), &p.ActivePolicies); err != nil {
		return nil, fmt.Errorf("decode active_policies: %w", err)
	}

	p.AutomationEnabled = automation != 0
	if lastTick.Valid && lastTick.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, lastTick.String)
		if err != nil {
			return nil, fmt.Errorf("decode last_processed_tick: %w", err)
		}
		p.LastProcessedTick = ts
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
