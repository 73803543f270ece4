package rules

import (
	"testing"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
)

func testSnapshot() *content.Snapshot {
	return &content.Snapshot{
		Missions: map[string]*content.MissionDef{},
		Vehicles: map[string]*content.VehicleDef{
			"patrol_car": {ID: "patrol_car", VehicleType: "patrol", MaintenanceCost: 4, FuelEfficiency: 1.0},
			"motorcycle": {ID: "motorcycle", VehicleType: "patrol", MaintenanceCost: 2, FuelEfficiency: 0.5},
		},
		Districts: map[string]*content.DistrictDef{
			"downtown": {ID: "downtown", RewardMultiplier: 1.0},
			"harbor":   {ID: "harbor", RewardMultiplier: 1.5, DifficultyModifier: 10},
		},
		Staff: map[string]*content.StaffDef{
			"officer":    {ID: "officer", StaffType: "officer", SalaryPerTick: 3, SuccessBonus: 5},
			"dispatcher": {ID: "dispatcher", StaffType: "dispatcher", SalaryPerTick: 5},
		},
		Upgrades: map[string]*content.UpgradeDef{
			"training":  {ID: "training", EffectType: content.EffectSuccessBoost, EffectValue: 0.05},
			"outreach":  {ID: "outreach", EffectType: content.EffectIncomeBoost, EffectValue: 0.1},
			"fuel_deal": {ID: "fuel_deal", EffectType: content.EffectCostReduction, EffectValue: 0.2},
			"table2":    {ID: "table2", EffectType: content.EffectDispatchCapacity, EffectValue: 1},
			"center":    {ID: "center", EffectType: content.EffectAutomation, EffectValue: 1},
		},
		Policies: map[string]*content.PolicyDef{},
	}
}

func TestSuccessChanceComposition(t *testing.T) {
	m := &content.MissionDef{BaseSuccessChance: 60}
	district := &content.DistrictDef{DifficultyModifier: 10}

	// 60 + 5 + 5 - floor(40*0.25) - 10 = 50
	got := SuccessChance(m, district, 5, 5, 40, 0.25)
	if got != 50 {
		t.Errorf("SuccessChance = %d, want 50", got)
	}
}

func TestSuccessChanceClamps(t *testing.T) {
	m := &content.MissionDef{BaseSuccessChance: 10}
	if got := SuccessChance(m, nil, 0, 0, 100, 1.0); got != 0 {
		t.Errorf("heavily penalized chance = %d, want 0", got)
	}

	m.BaseSuccessChance = 95
	if got := SuccessChance(m, nil, 20, 20, 0, 0.25); got != 100 {
		t.Errorf("boosted chance = %d, want clamp at 100", got)
	}
}

func TestMissionRewardScaling(t *testing.T) {
	snap := testSnapshot()
	p := profile.NewProfile("chief")
	m := &content.MissionDef{BaseReward: 100, District: "harbor"}

	// 100 * 1.5 harbor multiplier
	if got := MissionReward(snap, p, m, 10); got != 150 {
		t.Errorf("reward = %d, want 150", got)
	}

	p.OwnedUpgrades = []string{"outreach"}
	// 100 * 1.5 * 1.1
	if got := MissionReward(snap, p, m, 10); got != 165 {
		t.Errorf("reward with income boost = %d, want 165", got)
	}
}

func TestMissionRewardProfitFloor(t *testing.T) {
	snap := testSnapshot()
	p := profile.NewProfile("chief")
	m := &content.MissionDef{BaseReward: 5, District: "downtown"}

	// Success must clear fuel plus the margin: 100 * 1.1 = 110.
	if got := MissionReward(snap, p, m, 100); got != 110 {
		t.Errorf("floored reward = %d, want 110", got)
	}
}

func TestFuelCostEfficiencyAndReduction(t *testing.T) {
	snap := testSnapshot()
	p := profile.NewProfile("chief")
	m := &content.MissionDef{FuelCost: 40}

	units := []*profile.Unit{
		profile.NewUnit("patrol_car", profile.KindVehicle),
		profile.NewUnit("motorcycle", profile.KindVehicle),
	}
	// mean efficiency (1.0 + 0.5)/2 = 0.75 -> 30
	if got := FuelCost(snap, p, m, units); got != 30 {
		t.Errorf("fuel cost = %d, want 30", got)
	}

	p.OwnedUpgrades = []string{"fuel_deal"}
	// 30 * 0.8 = 24
	if got := FuelCost(snap, p, m, units); got != 24 {
		t.Errorf("fuel cost with reduction = %d, want 24", got)
	}

	m.FuelCost = 0
	if got := FuelCost(snap, p, m, units); got != 0 {
		t.Errorf("zero-fuel mission cost = %d, want 0", got)
	}
}

func TestRecurringTickCostsReportsMissingTypes(t *testing.T) {
	snap := testSnapshot()
	p := profile.NewProfile("chief")
	p.AddUnit(profile.NewUnit("patrol_car", profile.KindVehicle))
	p.AddUnit(profile.NewUnit("officer", profile.KindStaff))
	p.AddUnit(profile.NewUnit("retired_type", profile.KindStaff))

	total, missing := RecurringTickCosts(snap, p)
	if total != 7 {
		t.Errorf("recurring costs = %d, want 7", total)
	}
	if len(missing) != 1 || missing[0] != "retired_type" {
		t.Errorf("missing types = %v, want [retired_type]", missing)
	}
}

func TestDispatchTableCount(t *testing.T) {
	snap := testSnapshot()
	now := time.Now()

	p := profile.NewProfile("chief")
	if got := DispatchTableCount(snap, p, now); got != 1 {
		t.Errorf("base table count = %d, want 1", got)
	}

	p.AddUnit(profile.NewUnit("dispatcher", profile.KindStaff))
	p.AddUnit(profile.NewUnit("dispatcher", profile.KindStaff))
	if got := DispatchTableCount(snap, p, now); got != 2 {
		t.Errorf("table count with 2 dispatchers = %d, want 2", got)
	}

	p.OwnedUpgrades = []string{"table2"}
	if got := DispatchTableCount(snap, p, now); got != 3 {
		t.Errorf("table count with capacity upgrade = %d, want 3", got)
	}

	// A dispatcher on cooldown does not operate a table.
	p.Staff[0].AvailableAt = now.Add(time.Hour)
	if got := DispatchTableCount(snap, p, now); got != 2 {
		t.Errorf("table count with busy dispatcher = %d, want 2", got)
	}
}

func TestCooldownDuration(t *testing.T) {
	m := &content.MissionDef{BaseDurationMinutes: 30}
	if got := CooldownDuration(m, 10); got != 40*time.Minute {
		t.Errorf("cooldown = %v, want 40m", got)
	}
	if got := CooldownDuration(&content.MissionDef{}, 0); got != 0 {
		t.Errorf("zero cooldown = %v, want 0", got)
	}
}
