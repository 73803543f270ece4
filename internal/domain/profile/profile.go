// Package profile holds the per-player station state.
// This package is PURE domain data: no storage, no engine logic.
package profile

import "time"

// Meter bounds shared by reputation and heat.
const (
	MeterMin = 0
	MeterMax = 100
)

// Starting values for a freshly created profile.
const (
	DefaultDistrict   = "downtown"
	DefaultReputation = 50
	DefaultStation    = "Metro Police Department"
)

// Profile represents a player's police station.
type Profile struct {
	ID              string `json:"id"`
	StationName     string `json:"station_name"`
	StationLevel    int    `json:"station_level"`
	CurrentDistrict string `json:"current_district"`

	UnlockedDistricts []string `json:"unlocked_districts"`
	Vehicles          []*Unit  `json:"vehicles"`
	Staff             []*Unit  `json:"staff"`
	OwnedUpgrades     []string `json:"owned_upgrades"`
	ActivePolicies    []string `json:"active_policies"`

	Reputation int `json:"reputation"` // 0-100
	Heat       int `json:"heat"`       // 0-100

	AutomationEnabled bool      `json:"automation_enabled"`
	LastProcessedTick time.Time `json:"last_processed_tick"`

	// LedgerBalance is the committed view of the credit ledger as of
	// LastProcessedTick. Catch-up replay gates dispatch selection against
	// this value rather than the live ledger, so a retried run re-selects
	// the same missions even after an aborted attempt's deduplicated
	// mutations have already moved the live balance.
	LedgerBalance int `json:"ledger_balance"`

	// Lifetime statistics
	TotalMissionsCompleted int `json:"total_missions_completed"`
	TotalMissionsFailed    int `json:"total_missions_failed"`
	TotalIncomeEarned      int `json:"total_income_earned"`
	TotalExpensesPaid      int `json:"total_expenses_paid"`
}

// NewProfile creates a profile with default starting resources.
func NewProfile(id string) *Profile {
	return &Profile{
		ID:                id,
		StationName:       DefaultStation,
		StationLevel:      1,
		CurrentDistrict:   DefaultDistrict,
		UnlockedDistricts: []string{DefaultDistrict},
		Reputation:        DefaultReputation,
		Heat:              MeterMin,
	}
}

// HasUpgrade checks if the profile owns an upgrade.
func (p *Profile) HasUpgrade(upgradeID string) bool {
	for _, id := range p.OwnedUpgrades {
		if id == upgradeID {
			return true
		}
	}
	return false
}

// HasDistrict checks if the profile has unlocked a district.
func (p *Profile) HasDistrict(districtID string) bool {
	for _, id := range p.UnlockedDistricts {
		if id == districtID {
			return true
		}
	}
	return false
}

// Units returns the unit list for a kind.
func (p *Profile) Units(kind Kind) []*Unit {
	if kind == KindVehicle {
		return p.Vehicles
	}
	return p.Staff
}

// AddUnit appends a new unit of the given kind.
func (p *Profile) AddUnit(u *Unit) {
	if u.Kind == KindVehicle {
		p.Vehicles = append(p.Vehicles, u)
	} else {
		p.Staff = append(p.Staff, u)
	}
}

// RemoveUnit deletes a unit by instance id. Returns false if not found.
func (p *Profile) RemoveUnit(unitID string) bool {
	for i, u := range p.Vehicles {
		if u.ID == unitID {
			p.Vehicles = append(p.Vehicles[:i], p.Vehicles[i+1:]...)
			return true
		}
	}
	for i, u := range p.Staff {
		if u.ID == unitID {
			p.Staff = append(p.Staff[:i], p.Staff[i+1:]...)
			return true
		}
	}
	return false
}

// FindUnit looks up a unit by instance id.
func (p *Profile) FindUnit(unitID string) *Unit {
	for _, u := range p.Vehicles {
		if u.ID == unitID {
			return u
		}
	}
	for _, u := range p.Staff {
		if u.ID == unitID {
			return u
		}
	}
	return nil
}

// AvailableUnits returns the units of a kind that are off cooldown at now.
func (p *Profile) AvailableUnits(kind Kind, now time.Time) []*Unit {
	var result []*Unit
	for _, u := range p.Units(kind) {
		if u.Available(now) {
			result = append(result, u)
		}
	}
	return result
}

// ApplyReputationDelta adjusts reputation and clamps it to [0,100].
func (p *Profile) ApplyReputationDelta(delta int) {
	p.Reputation = clampMeter(p.Reputation + delta)
}

// ApplyHeatDelta adjusts heat and clamps it to [0,100].
func (p *Profile) ApplyHeatDelta(delta int) {
	p.Heat = clampMeter(p.Heat + delta)
}

func clampMeter(v int) int {
	if v < MeterMin {
		return MeterMin
	}
	if v > MeterMax {
		return MeterMax
	}
	return v
}

// Clone returns a deep copy. The tick engine mutates a clone per tick so an
// aborted tick never leaks partial changes into the committed state.
func (p *Profile) Clone() *Profile {
	cp := *p
	cp.UnlockedDistricts = append([]string(nil), p.UnlockedDistricts...)
	cp.OwnedUpgrades = append([]string(nil), p.OwnedUpgrades...)
	cp.ActivePolicies = append([]string(nil), p.ActivePolicies...)
	cp.Vehicles = cloneUnits(p.Vehicles)
	cp.Staff = cloneUnits(p.Staff)
	return &cp
}

func cloneUnits(units []*Unit) []*Unit {
	if units == nil {
		return nil
	}
	out := make([]*Unit, len(units))
	for i, u := range units {
		c := *u
		out[i] = &c
	}
	return out
}
