package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/policechief/server/internal/domain/profile"
)

func TestGetOrCreateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.engine.GetOrCreateProfile(ctx, "chief-1")
	if err != nil {
		t.Fatalf("GetOrCreateProfile: %v", err)
	}
	if p.StationLevel != 1 || p.Reputation != profile.DefaultReputation {
		t.Errorf("unexpected starting state: %+v", p)
	}
	if !p.HasDistrict(profile.DefaultDistrict) {
		t.Error("starting district should be unlocked")
	}
	if !p.LastProcessedTick.Equal(env.now) {
		t.Errorf("anchor = %s, want %s", p.LastProcessedTick, env.now)
	}

	again, err := env.engine.GetOrCreateProfile(ctx, "chief-1")
	if err != nil {
		t.Fatalf("second GetOrCreateProfile: %v", err)
	}
	if again.ID != p.ID {
		t.Error("second call should load the same profile")
	}
}

func TestPurchaseVehicle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, nil)
	env.ledger.SetBalance("chief-1", 500)

	u, err := env.engine.PurchaseVehicle(ctx, "chief-1", "patrol_car")
	if err != nil {
		t.Fatalf("PurchaseVehicle: %v", err)
	}
	if u.Kind != profile.KindVehicle || u.TypeID != "patrol_car" {
		t.Errorf("unexpected unit: %+v", u)
	}

	bal, _ := env.ledger.Balance(ctx, "chief-1")
	if bal != 200 {
		t.Errorf("balance = %d, want 200", bal)
	}
	p := env.mustProfile(t, "chief-1")
	if len(p.Vehicles) != 1 {
		t.Errorf("vehicle count = %d, want 1", len(p.Vehicles))
	}
}

func TestPurchaseVehicleInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, nil)
	env.ledger.SetBalance("chief-1", 299)

	_, err := env.engine.PurchaseVehicle(ctx, "chief-1", "patrol_car")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
	if p := env.mustProfile(t, "chief-1"); len(p.Vehicles) != 0 {
		t.Error("failed purchase must not add a unit")
	}
}

func TestPurchaseVehicleUnknownType(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "chief-1", 0, nil)

	_, err := env.engine.PurchaseVehicle(context.Background(), "chief-1", "hoverboard")
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("got %v, want ErrUnknownEntity", err)
	}
}

func TestPurchaseVehicleLevelGate(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "chief-1", 0, nil)
	env.ledger.SetBalance("chief-1", 5000)

	_, err := env.engine.PurchaseVehicle(context.Background(), "chief-1", "swat_van")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState for level gate", err)
	}
}

func TestSellUnitRefundsHalf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var unitID string
	env.seedProfile(t, "chief-1", 0, func(p *profile.Profile) {
		u := profile.NewUnit("patrol_car", profile.KindVehicle)
		unitID = u.ID
		p.AddUnit(u)
	})

	if err := env.engine.SellUnit(ctx, "chief-1", unitID); err != nil {
		t.Fatalf("SellUnit: %v", err)
	}

	bal, _ := env.ledger.Balance(ctx, "chief-1")
	if bal != 150 {
		t.Errorf("refund balance = %d, want 150", bal)
	}
	if p := env.mustProfile(t, "chief-1"); len(p.Vehicles) != 0 {
		t.Error("sold unit still present")
	}
}

func TestSellUnitOnCooldown(t *testing.T) {
	env := newTestEnv(t)
	var unitID string
	env.seedProfile(t, "chief-1", 0, func(p *profile.Profile) {
		u := profile.NewUnit("patrol_car", profile.KindVehicle)
		u.AvailableAt = env.now.Add(time.Hour)
		unitID = u.ID
		p.AddUnit(u)
	})

	err := env.engine.SellUnit(context.Background(), "chief-1", unitID)
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("got %v, want ErrResourceUnavailable", err)
	}
}

func TestPurchaseUpgradeChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, nil)
	env.ledger.SetBalance("chief-1", 5000)

	// extra_table requires dispatch_center first.
	err := env.engine.PurchaseUpgrade(ctx, "chief-1", "extra_table")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState for missing prerequisite", err)
	}

	if err := env.engine.PurchaseUpgrade(ctx, "chief-1", "dispatch_center"); err != nil {
		t.Fatalf("PurchaseUpgrade(dispatch_center): %v", err)
	}
	if err := env.engine.PurchaseUpgrade(ctx, "chief-1", "extra_table"); err != nil {
		t.Fatalf("PurchaseUpgrade(extra_table): %v", err)
	}

	err = env.engine.PurchaseUpgrade(ctx, "chief-1", "dispatch_center")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState for duplicate purchase", err)
	}
}

func TestUnlockDistrict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, func(p *profile.Profile) {
		p.StationLevel = 2
	})
	env.ledger.SetBalance("chief-1", 600)

	if err := env.engine.UnlockDistrict(ctx, "chief-1", "harbor"); err != nil {
		t.Fatalf("UnlockDistrict: %v", err)
	}
	p := env.mustProfile(t, "chief-1")
	if !p.HasDistrict("harbor") {
		t.Error("harbor not unlocked")
	}
	bal, _ := env.ledger.Balance(ctx, "chief-1")
	if bal != 100 {
		t.Errorf("balance = %d, want 100", bal)
	}
}

func TestSetAutomationRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, nil)

	err := env.engine.SetAutomation(ctx, "chief-1", true)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState without the upgrade", err)
	}

	env.seedProfile(t, "chief-2", 0, func(p *profile.Profile) {
		p.OwnedUpgrades = []string{"dispatch_center"}
	})
	if err := env.engine.SetAutomation(ctx, "chief-2", true); err != nil {
		t.Fatalf("SetAutomation: %v", err)
	}
	if p := env.mustProfile(t, "chief-2"); !p.AutomationEnabled {
		t.Error("automation flag not saved")
	}

	// Disabling never needs the upgrade.
	if err := env.engine.SetAutomation(ctx, "chief-1", false); err != nil {
		t.Errorf("disable: %v", err)
	}
}

func TestSetPoliciesValidatesIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, nil)

	err := env.engine.SetPolicies(ctx, "chief-1", []string{"aggressive", "no-such-policy"})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("got %v, want ErrUnknownEntity", err)
	}

	if err := env.engine.SetPolicies(ctx, "chief-1", []string{"aggressive", "cautious"}); err != nil {
		t.Fatalf("SetPolicies: %v", err)
	}
	p := env.mustProfile(t, "chief-1")
	if len(p.ActivePolicies) != 2 {
		t.Errorf("active policies = %v", p.ActivePolicies)
	}
}

func TestManualDispatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProfile(t, "chief-1", 0, func(p *profile.Profile) {
		p.AddUnit(profile.NewUnit("patrol_car", profile.KindVehicle))
		p.AddUnit(profile.NewUnit("officer", profile.KindStaff))
	})
	env.ledger.SetBalance("chief-1", 1000)

	result, err := env.engine.ManualDispatch(ctx, "chief-1", "noise_complaint")
	if err != nil {
		t.Fatalf("ManualDispatch: %v", err)
	}
	if result.MissionID != "noise_complaint" {
		t.Errorf("dispatched %s", result.MissionID)
	}
	if len(result.UnitIDs) != 2 {
		t.Errorf("assigned %d units, want 2", len(result.UnitIDs))
	}

	p := env.mustProfile(t, "chief-1")
	for _, u := range append(p.Vehicles, p.Staff...) {
		if u.Available(env.now) {
			t.Errorf("unit %s should be on cooldown after dispatch", u.ID)
		}
	}

	// Units are busy now: a second dispatch cannot be staffed.
	_, err = env.engine.ManualDispatch(ctx, "chief-1", "noise_complaint")
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("got %v, want ErrResourceUnavailable", err)
	}
}

func TestManualDispatchUnknownMission(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "chief-1", 0, nil)

	_, err := env.engine.ManualDispatch(context.Background(), "chief-1", "alien-invasion")
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("got %v, want ErrUnknownEntity", err)
	}
}

func TestManualDispatchBalanceGate(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "chief-1", 0, func(p *profile.Profile) {
		p.AddUnit(profile.NewUnit("patrol_car", profile.KindVehicle))
		p.AddUnit(profile.NewUnit("officer", profile.KindStaff))
	})
	env.ledger.SetBalance("chief-1", 50)

	_, err := env.engine.ManualDispatch(context.Background(), "chief-1", "noise_complaint")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestAdminReleaseUnit(t *testing.T) {
	env := newTestEnv(t)
	var unitID string
	env.seedProfile(t, "chief-1", 0, func(p *profile.Profile) {
		u := profile.NewUnit("patrol_car", profile.KindVehicle)
		u.AvailableAt = env.now.Add(time.Hour)
		unitID = u.ID
		p.AddUnit(u)
	})

	if err := env.engine.AdminReleaseUnit(context.Background(), "chief-1", unitID); err != nil {
		t.Fatalf("AdminReleaseUnit: %v", err)
	}
	p := env.mustProfile(t, "chief-1")
	if !p.FindUnit(unitID).Available(env.now) {
		t.Error("released unit still on cooldown")
	}
}
