package engine

import (
	"time"

	"github.com/policechief/server/internal/domain/profile"
)

// MissionResult records one dispatched mission within a tick.
type MissionResult struct {
	MissionID string    `json:"mission_id"`
	District  string    `json:"district"`
	UnitIDs   []string  `json:"unit_ids"`
	Success   bool      `json:"success"`
	Chance    int       `json:"chance"`
	Reward    int       `json:"reward"`
	FuelSpent int       `json:"fuel_spent"`
	TickTime  time.Time `json:"tick_time"`
}

// TickSummary aggregates what happened in one processed tick.
type TickSummary struct {
	TickTime       time.Time       `json:"tick_time"`
	RecurringCosts int             `json:"recurring_costs"`
	Missions       []MissionResult `json:"missions,omitempty"`
	NetCredits     int             `json:"net_credits"`
}

// Report summarizes one catch-up run. Ticks committed before an abort are
// included, so a partial report plus a retryable error is a valid result.
type Report struct {
	ProfileID      string        `json:"profile_id"`
	TicksProcessed int           `json:"ticks_processed"`
	TicksCapped    bool          `json:"ticks_capped"`
	Ticks          []TickSummary `json:"ticks,omitempty"`

	MissionsDispatched int `json:"missions_dispatched"`
	MissionsSucceeded  int `json:"missions_succeeded"`
	MissionsFailed     int `json:"missions_failed"`

	TotalIncome         int `json:"total_income"`
	TotalRecurringCosts int `json:"total_recurring_costs"`
	TotalFuelSpent      int `json:"total_fuel_spent"`
	NetCredits          int `json:"net_credits"`

	ReputationDelta int `json:"reputation_delta"`
	HeatDelta       int `json:"heat_delta"`

	// Profile is the committed end state after the run.
	Profile *profile.Profile `json:"profile"`
}

func (r *Report) addTick(s TickSummary) {
	r.TicksProcessed++
	r.Ticks = append(r.Ticks, s)
	r.TotalRecurringCosts += s.RecurringCosts
	r.NetCredits += s.NetCredits
	for _, m := range s.Missions {
		r.MissionsDispatched++
		if m.Success {
			r.MissionsSucceeded++
			r.TotalIncome += m.Reward
		} else {
			r.MissionsFailed++
		}
		r.TotalFuelSpent += m.FuelSpent
	}
}
