// Package content loads and serves the immutable game content catalog.
// Definitions come from JSON content packs validated against JSON Schemas.
// The engine only ever sees a Snapshot: a fully-loaded, read-only view that
// stays consistent for the duration of an operation even if packs are
// reloaded underneath.
package content

// MissionDef describes a dispatchable mission/call.
type MissionDef struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	District             string   `json:"district"`
	RequiredVehicleTypes []string `json:"required_vehicle_types"`
	RequiredStaffTypes   []string `json:"required_staff_types"`
	BaseReward           int      `json:"base_reward"`
	BaseDurationMinutes  int      `json:"base_duration"`
	BaseSuccessChance    int      `json:"base_success_chance"` // 0-100
	FuelCost             int      `json:"fuel_cost"`
	HeatSuccess          int      `json:"heat_success"`
	HeatFailure          int      `json:"heat_failure"`
	ReputationSuccess    int      `json:"reputation_success"`
	ReputationFailure    int      `json:"reputation_failure"` // usually negative
	MinStationLevel      int      `json:"min_station_level"`
}

// VehicleDef describes a vehicle type that can be purchased.
type VehicleDef struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	VehicleType     string  `json:"vehicle_type"` // tag used by mission requirements
	PurchaseCost    int     `json:"purchase_cost"`
	MaintenanceCost int     `json:"maintenance_cost"` // per tick, per owned unit
	FuelEfficiency  float64 `json:"fuel_efficiency"`  // 1.0 = normal, 0.8 = 20% less fuel
	CooldownMinutes int     `json:"cooldown_minutes"`
	MinStationLevel int     `json:"min_station_level"`
}

// StaffDef describes a staff type that can be hired.
type StaffDef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	StaffType       string `json:"staff_type"` // tag used by mission requirements
	HireCost        int    `json:"hire_cost"`
	SalaryPerTick   int    `json:"salary_per_tick"`
	SuccessBonus    int    `json:"success_bonus"` // additive success-chance points
	CooldownMinutes int    `json:"cooldown_minutes"`
	MinStationLevel int    `json:"min_station_level"`
}

// DistrictDef describes an unlockable district/zone.
type DistrictDef struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	UnlockCost         int     `json:"unlock_cost"`
	RewardMultiplier   float64 `json:"reward_multiplier"`
	DifficultyModifier int     `json:"difficulty_modifier"` // subtracted from success chance
	MinStationLevel    int     `json:"min_station_level"`
}

// Upgrade effect types consumed by the engine.
const (
	EffectAutomation       = "automation"
	EffectCostReduction    = "cost_reduction"
	EffectIncomeBoost      = "income_boost"
	EffectSuccessBoost     = "success_boost"
	EffectDispatchCapacity = "dispatch_capacity"
)

// UpgradeDef describes a purchasable station upgrade.
type UpgradeDef struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Cost            int     `json:"cost"`
	EffectType      string  `json:"effect_type"`
	EffectValue     float64 `json:"effect_value"`
	MinStationLevel int     `json:"min_station_level"`
	RequiredUpgrade string  `json:"required_upgrade,omitempty"`
}

// Selection rules for automation policies.
const (
	RuleHighestReward = "highest_reward"
	RuleRoundRobin    = "round_robin"
)

// PolicyFilters narrows which missions a policy will auto-dispatch.
type PolicyFilters struct {
	MinReward int      `json:"min_reward,omitempty"`
	MaxReward int      `json:"max_reward,omitempty"`
	Districts []string `json:"districts,omitempty"`
}

// PolicyDef describes an automation policy for auto-dispatch.
type PolicyDef struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Rule            string        `json:"rule"`
	Filters         PolicyFilters `json:"filters"`
	MinStationLevel int           `json:"min_station_level"`
}

// Snapshot is one immutable, fully-loaded catalog generation.
// Ordered ID slices preserve pack insertion order; the Dispatch Selector
// relies on that order for deterministic tie-breaking.
type Snapshot struct {
	Missions  map[string]*MissionDef
	Vehicles  map[string]*VehicleDef
	Districts map[string]*DistrictDef
	Staff     map[string]*StaffDef
	Upgrades  map[string]*UpgradeDef
	Policies  map[string]*PolicyDef

	MissionOrder []string
	VehicleOrder []string
	StaffOrder   []string
}

// GetMission looks up a mission definition by id.
func (s *Snapshot) GetMission(id string) (*MissionDef, bool) {
	m, ok := s.Missions[id]
	return m, ok
}

// GetVehicleType looks up a vehicle definition by id.
func (s *Snapshot) GetVehicleType(id string) (*VehicleDef, bool) {
	v, ok := s.Vehicles[id]
	return v, ok
}

// GetStaffType looks up a staff definition by id.
func (s *Snapshot) GetStaffType(id string) (*StaffDef, bool) {
	st, ok := s.Staff[id]
	return st, ok
}

// GetDistrict looks up a district definition by id.
func (s *Snapshot) GetDistrict(id string) (*DistrictDef, bool) {
	d, ok := s.Districts[id]
	return d, ok
}

// GetUpgrade looks up an upgrade definition by id.
func (s *Snapshot) GetUpgrade(id string) (*UpgradeDef, bool) {
	u, ok := s.Upgrades[id]
	return u, ok
}

// GetPolicy looks up a policy definition by id.
func (s *Snapshot) GetPolicy(id string) (*PolicyDef, bool) {
	p, ok := s.Policies[id]
	return p, ok
}

// MissionsForDistrict returns missions available in a district at a station
// level, in catalog insertion order.
func (s *Snapshot) MissionsForDistrict(districtID string, stationLevel int) []*MissionDef {
	var result []*MissionDef
	for _, id := range s.MissionOrder {
		m := s.Missions[id]
		if m.District == districtID && m.MinStationLevel <= stationLevel {
			result = append(result, m)
		}
	}
	return result
}

// VehiclesOfType returns vehicle definitions carrying the given type tag,
// in catalog insertion order.
func (s *Snapshot) VehiclesOfType(vehicleType string) []*VehicleDef {
	var result []*VehicleDef
	for _, id := range s.VehicleOrder {
		if v := s.Vehicles[id]; v.VehicleType == vehicleType {
			result = append(result, v)
		}
	}
	return result
}

// StaffOfType returns staff definitions carrying the given type tag,
// in catalog insertion order.
func (s *Snapshot) StaffOfType(staffType string) []*StaffDef {
	var result []*StaffDef
	for _, id := range s.StaffOrder {
		if st := s.Staff[id]; st.StaffType == staffType {
			result = append(result, st)
		}
	}
	return result
}
