package engine

import (
	"math/rand"
	"testing"
)

func TestResolveDeterministicForSeed(t *testing.T) {
	snap := testSnapshot()
	p := selectorProfile("patrol_car", "officer")
	m := snap.Missions["robbery"]
	units := append(p.Vehicles, p.Staff...)
	r := Resolver{HeatPenaltyRate: 0.25}

	first := r.Resolve(snap, p, m, units, rand.New(rand.NewSource(42)))
	second := r.Resolve(snap, p, m, units, rand.New(rand.NewSource(42)))

	if first != second {
		t.Errorf("same seed produced different outcomes: %+v vs %+v", first, second)
	}
}

func TestResolveChanceComposition(t *testing.T) {
	snap := testSnapshot()
	p := selectorProfile("patrol_car", "officer")
	p.Heat = 40
	m := snap.Missions["robbery"] // base 60
	units := append(p.Vehicles, p.Staff...)
	r := Resolver{HeatPenaltyRate: 0.25}

	out := r.Resolve(snap, p, m, units, rand.New(rand.NewSource(1)))

	// 60 base + 5 officer bonus - 10 heat penalty (40 * 0.25).
	if out.Chance != 55 {
		t.Errorf("chance = %d, want 55", out.Chance)
	}
}

func TestResolveChanceClampedToZero(t *testing.T) {
	snap := testSnapshot()
	p := selectorProfile("patrol_car")
	p.Heat = 100
	cp := *snap.Missions["noise_complaint"]
	cp.BaseSuccessChance = 10
	m := &cp
	r := Resolver{HeatPenaltyRate: 1.0}

	for seed := int64(0); seed < 20; seed++ {
		out := r.Resolve(snap, p, m, p.Vehicles, rand.New(rand.NewSource(seed)))
		if out.Chance != 0 {
			t.Fatalf("chance = %d, want 0", out.Chance)
		}
		if out.Success {
			t.Fatal("zero-chance mission succeeded")
		}
	}
}

func TestResolveFuelSpentOnFailure(t *testing.T) {
	snap := testSnapshot()
	p := selectorProfile("patrol_car")
	cp := *snap.Missions["noise_complaint"]
	cp.BaseSuccessChance = 0
	m := &cp
	r := Resolver{}

	out := r.Resolve(snap, p, m, p.Vehicles, rand.New(rand.NewSource(7)))

	if out.Success {
		t.Fatal("expected failure")
	}
	if out.FuelSpent != m.FuelCost {
		t.Errorf("fuel spent = %d, want %d", out.FuelSpent, m.FuelCost)
	}
	if out.Reward != 0 {
		t.Errorf("failed mission paid %d", out.Reward)
	}
	if out.ReputationDelta != m.ReputationFailure {
		t.Errorf("reputation delta = %d, want %d", out.ReputationDelta, m.ReputationFailure)
	}
	if out.HeatDelta != m.HeatFailure {
		t.Errorf("heat delta = %d, want %d", out.HeatDelta, m.HeatFailure)
	}
}

func TestResolveGuaranteedSuccess(t *testing.T) {
	snap := testSnapshot()
	p := selectorProfile("patrol_car", "officer")
	cp := *snap.Missions["noise_complaint"]
	cp.BaseSuccessChance = 100
	m := &cp
	units := append(p.Vehicles, p.Staff...)
	r := Resolver{}

	out := r.Resolve(snap, p, m, units, rand.New(rand.NewSource(3)))

	if !out.Success {
		t.Fatal("chance 100 must succeed")
	}
	if out.Reward <= 0 {
		t.Errorf("reward = %d, want positive", out.Reward)
	}
	if out.Reward <= out.FuelSpent {
		t.Errorf("reward %d does not clear fuel %d", out.Reward, out.FuelSpent)
	}
}
