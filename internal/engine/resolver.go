package engine

import (
	"math/rand"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/domain/rules"
)

// Outcome is the result of resolving one mission dispatch. The resolver has
// no side effects; callers apply the deltas.
type Outcome struct {
	Success         bool
	Chance          int // probability actually used, 0-100
	Reward          int // credits earned, zero on failure
	FuelSpent       int // spent on success and failure alike
	ReputationDelta int
	HeatDelta       int
}

// Resolver computes success probabilities and draws mission outcomes.
// The random source is injected per call so resolution is deterministic and
// reproducible for a given seed.
type Resolver struct {
	// HeatPenaltyRate converts current heat into success-chance points lost.
	HeatPenaltyRate float64
}

// Resolve computes the outcome of dispatching mission m with the assigned
// units, against the profile's current modifiers. A single draw in [0,100)
// compared against the clamped probability decides success.
func (r Resolver) Resolve(snap *content.Snapshot, p *profile.Profile, m *content.MissionDef, assigned []*profile.Unit, rng *rand.Rand) Outcome {
	district, _ := snap.GetDistrict(m.District)

	staffBonus := rules.StaffQualityBonus(snap, assigned)
	upgradeBonus := rules.UpgradeSuccessBonus(snap, p)
	chance := rules.SuccessChance(m, district, staffBonus, upgradeBonus, p.Heat, r.HeatPenaltyRate)

	fuel := rules.FuelCost(snap, p, m, assigned)

	roll := rng.Intn(100)
	if roll < chance {
		return Outcome{
			Success:         true,
			Chance:          chance,
			Reward:          rules.MissionReward(snap, p, m, fuel),
			FuelSpent:       fuel,
			ReputationDelta: m.ReputationSuccess,
			HeatDelta:       m.HeatSuccess,
		}
	}

	// Fuel is burned either way; failure usually costs reputation.
	return Outcome{
		Success:         false,
		Chance:          chance,
		FuelSpent:       fuel,
		ReputationDelta: m.ReputationFailure,
		HeatDelta:       m.HeatFailure,
	}
}
