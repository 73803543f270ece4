package engine

import (
	"context"
	"testing"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/events"
	"github.com/policechief/server/internal/infra/ledger"
	"github.com/policechief/server/internal/infra/storage"
	"github.com/policechief/server/internal/platform/config"
	"github.com/policechief/server/internal/platform/logger"
	"github.com/policechief/server/internal/platform/metrics"
)

// staticCatalog serves a fixed snapshot.
type staticCatalog struct {
	snap *content.Snapshot
}

func (c staticCatalog) Current() *content.Snapshot { return c.snap }

func testSnapshot() *content.Snapshot {
	snap := &content.Snapshot{
		Missions:  make(map[string]*content.MissionDef),
		Vehicles:  make(map[string]*content.VehicleDef),
		Districts: make(map[string]*content.DistrictDef),
		Staff:     make(map[string]*content.StaffDef),
		Upgrades:  make(map[string]*content.UpgradeDef),
		Policies:  make(map[string]*content.PolicyDef),
	}

	snap.Districts["downtown"] = &content.DistrictDef{
		ID: "downtown", Name: "Downtown", RewardMultiplier: 1.0,
	}
	snap.Districts["harbor"] = &content.DistrictDef{
		ID: "harbor", Name: "Harbor", UnlockCost: 500,
		RewardMultiplier: 1.5, DifficultyModifier: 10, MinStationLevel: 2,
	}

	addVehicle(snap, &content.VehicleDef{
		ID: "patrol_car", Name: "Patrol Car", VehicleType: "patrol",
		PurchaseCost: 300, MaintenanceCost: 5, FuelEfficiency: 1.0,
		CooldownMinutes: 10,
	})
	addVehicle(snap, &content.VehicleDef{
		ID: "swat_van", Name: "SWAT Van", VehicleType: "swat",
		PurchaseCost: 1200, MaintenanceCost: 20, FuelEfficiency: 1.4,
		CooldownMinutes: 30, MinStationLevel: 3,
	})

	addStaff(snap, &content.StaffDef{
		ID: "officer", Name: "Officer", StaffType: "officer",
		HireCost: 200, SalaryPerTick: 10, SuccessBonus: 5,
		CooldownMinutes: 5,
	})
	addStaff(snap, &content.StaffDef{
		ID: "dispatcher", Name: "Dispatcher", StaffType: "dispatcher",
		HireCost: 400, SalaryPerTick: 8,
	})

	addMission(snap, &content.MissionDef{
		ID: "noise_complaint", Name: "Noise Complaint", District: "downtown",
		RequiredVehicleTypes: []string{"patrol"},
		RequiredStaffTypes:   []string{"officer"},
		BaseReward:           100, BaseDurationMinutes: 15, BaseSuccessChance: 80,
		FuelCost: 10, HeatSuccess: 1, HeatFailure: 2,
		ReputationSuccess: 2, ReputationFailure: -3,
	})
	addMission(snap, &content.MissionDef{
		ID: "robbery", Name: "Robbery in Progress", District: "downtown",
		RequiredVehicleTypes: []string{"patrol"},
		RequiredStaffTypes:   []string{"officer"},
		BaseReward:           250, BaseDurationMinutes: 30, BaseSuccessChance: 60,
		FuelCost: 15, HeatSuccess: 3, HeatFailure: 5,
		ReputationSuccess: 4, ReputationFailure: -5,
	})
	addMission(snap, &content.MissionDef{
		ID: "smuggling_ring", Name: "Smuggling Ring", District: "harbor",
		RequiredVehicleTypes: []string{"swat"},
		RequiredStaffTypes:   []string{"officer", "officer"},
		BaseReward:           600, BaseDurationMinutes: 60, BaseSuccessChance: 50,
		FuelCost: 40, HeatSuccess: 5, HeatFailure: 8,
		ReputationSuccess: 8, ReputationFailure: -8, MinStationLevel: 2,
	})

	snap.Upgrades["dispatch_center"] = &content.UpgradeDef{
		ID: "dispatch_center", Name: "Dispatch Center",
		Cost: 1000, EffectType: content.EffectAutomation,
	}
	snap.Upgrades["extra_table"] = &content.UpgradeDef{
		ID: "extra_table", Name: "Extra Dispatch Table",
		Cost: 800, EffectType: content.EffectDispatchCapacity, EffectValue: 1,
		RequiredUpgrade: "dispatch_center",
	}

	snap.Policies["aggressive"] = &content.PolicyDef{
		ID: "aggressive", Name: "Chase the Money", Rule: content.RuleHighestReward,
	}
	snap.Policies["spread"] = &content.PolicyDef{
		ID: "spread", Name: "Spread Thin", Rule: content.RuleRoundRobin,
	}
	snap.Policies["cautious"] = &content.PolicyDef{
		ID: "cautious", Name: "Small Jobs Only", Rule: content.RuleHighestReward,
		Filters: content.PolicyFilters{MaxReward: 150},
	}
	return snap
}

func addMission(snap *content.Snapshot, m *content.MissionDef) {
	snap.Missions[m.ID] = m
	snap.MissionOrder = append(snap.MissionOrder, m.ID)
}

func addVehicle(snap *content.Snapshot, v *content.VehicleDef) {
	snap.Vehicles[v.ID] = v
	snap.VehicleOrder = append(snap.VehicleOrder, v.ID)
}

func addStaff(snap *content.Snapshot, s *content.StaffDef) {
	snap.Staff[s.ID] = s
	snap.StaffOrder = append(snap.StaffOrder, s.ID)
}

type testEnv struct {
	engine   *Engine
	profiles *storage.MemoryProfileRepository
	ledger   *ledger.MemoryLedger
	events   *events.EventLog
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	log := logger.NewLogger()
	profiles := storage.NewMemoryProfileRepository()
	led := ledger.NewMemoryLedger()
	eventLog := events.NewEventLog(nil)
	collector := &metrics.Collector{StartTime: time.Now()}

	eng := New(cfg, log, staticCatalog{testSnapshot()}, profiles, led, eventLog, collector)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	eng.SetClock(func() time.Time { return now })

	return &testEnv{engine: eng, profiles: profiles, ledger: led, events: eventLog, now: now}
}

// seedProfile stores a profile whose clock anchor is offset before now.
func (env *testEnv) seedProfile(t *testing.T, id string, elapsed time.Duration, mutate func(*profile.Profile)) *profile.Profile {
	t.Helper()

	p := profile.NewProfile(id)
	p.LastProcessedTick = env.now.Add(-elapsed)
	if mutate != nil {
		mutate(p)
	}
	env.profiles.Seed(p)
	return p
}

// setBalance sets the live ledger balance together with the profile's
// committed balance view, the state a finished catch-up run leaves behind.
func (env *testEnv) setBalance(t *testing.T, id string, balance int) {
	t.Helper()

	env.ledger.SetBalance(id, balance)
	p := env.mustProfile(t, id)
	p.LedgerBalance = balance
	env.profiles.Seed(p)
}

func (env *testEnv) mustProfile(t *testing.T, id string) *profile.Profile {
	t.Helper()

	p, err := env.profiles.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("load profile %s: %v", id, err)
	}
	return p
}
