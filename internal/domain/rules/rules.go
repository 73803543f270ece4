// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
)

// Economy shaping constants carried over from the original balance.
const (
	ProfitMargin   = 0.1   // minimum profit relative to dispatch cost on success
	ProfitPerLevel = 0.015 // extra reward per station level above 1

	// BaseDispatchTables is the number of dispatch slots without any
	// dispatcher staff or capacity upgrades.
	BaseDispatchTables = 1

	// DispatcherStaffType is the staff type tag that operates dispatch tables.
	DispatcherStaffType = "dispatcher"
)

// SuccessChance computes the final mission success probability in [0,100].
// The combination is additive: base chance, plus staff and upgrade bonuses,
// minus a heat penalty that grows linearly with current heat, minus the
// district difficulty modifier.
func SuccessChance(m *content.MissionDef, district *content.DistrictDef, staffBonus, upgradeBonus, heat int, heatPenaltyRate float64) int {
	chance := m.BaseSuccessChance + staffBonus + upgradeBonus
	chance -= int(float64(heat) * heatPenaltyRate)
	if district != nil {
		chance -= district.DifficultyModifier
	}
	return clampChance(chance)
}

func clampChance(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// StaffQualityBonus sums the success-chance points contributed by the
// assigned staff units. Unknown type ids contribute nothing.
func StaffQualityBonus(snap *content.Snapshot, assigned []*profile.Unit) int {
	bonus := 0
	for _, u := range assigned {
		if u.Kind != profile.KindStaff {
			continue
		}
		if def, ok := snap.GetStaffType(u.TypeID); ok {
			bonus += def.SuccessBonus
		}
	}
	return bonus
}

// UpgradeSuccessBonus sums success-chance points from owned success_boost
// upgrades. Effect values are fractions (0.05 = +5 points).
func UpgradeSuccessBonus(snap *content.Snapshot, p *profile.Profile) int {
	bonus := 0.0
	for _, id := range p.OwnedUpgrades {
		if u, ok := snap.GetUpgrade(id); ok && u.EffectType == content.EffectSuccessBoost {
			bonus += u.EffectValue * 100
		}
	}
	return int(bonus)
}

// MissionReward computes the credit reward for a successful dispatch:
// base reward scaled by station level, district multiplier and income
// upgrades, floored so a success always clears the fuel spent plus margin.
func MissionReward(snap *content.Snapshot, p *profile.Profile, m *content.MissionDef, fuelCost int) int {
	reward := float64(m.BaseReward)

	if p.StationLevel > 1 {
		reward *= 1.0 + float64(p.StationLevel-1)*ProfitPerLevel
	}
	if district, ok := snap.GetDistrict(m.District); ok {
		reward *= district.RewardMultiplier
	}
	for _, id := range p.OwnedUpgrades {
		if u, ok := snap.GetUpgrade(id); ok && u.EffectType == content.EffectIncomeBoost {
			reward *= 1.0 + u.EffectValue
		}
	}

	minProfitable := int(float64(fuelCost) * (1 + ProfitMargin))
	if int(reward) < minProfitable {
		return minProfitable
	}
	if reward < 1 {
		return 1
	}
	return int(reward)
}

// FuelCost computes the fuel spent on a dispatch: the mission's base fuel
// scaled by the mean efficiency of the assigned vehicles and reduced by
// cost_reduction upgrades. Minimum 1 when the mission burns fuel at all.
func FuelCost(snap *content.Snapshot, p *profile.Profile, m *content.MissionDef, assigned []*profile.Unit) int {
	if m.FuelCost <= 0 {
		return 0
	}

	cost := float64(m.FuelCost)

	effSum, effCount := 0.0, 0
	for _, u := range assigned {
		if u.Kind != profile.KindVehicle {
			continue
		}
		if def, ok := snap.GetVehicleType(u.TypeID); ok && def.FuelEfficiency > 0 {
			effSum += def.FuelEfficiency
			effCount++
		}
	}
	if effCount > 0 {
		cost *= effSum / float64(effCount)
	}

	for _, id := range p.OwnedUpgrades {
		if u, ok := snap.GetUpgrade(id); ok && u.EffectType == content.EffectCostReduction {
			cost *= 1.0 - u.EffectValue
		}
	}

	if cost < 1 {
		return 1
	}
	return int(cost)
}

// RecurringTickCosts sums the per-tick salaries and maintenance for every
// owned unit, regardless of availability. Unit types missing from the catalog
// are skipped and reported so callers can log the configuration gap.
func RecurringTickCosts(snap *content.Snapshot, p *profile.Profile) (total int, missingTypes []string) {
	for _, u := range p.Staff {
		if def, ok := snap.GetStaffType(u.TypeID); ok {
			total += def.SalaryPerTick
		} else {
			missingTypes = append(missingTypes, u.TypeID)
		}
	}
	for _, u := range p.Vehicles {
		if def, ok := snap.GetVehicleType(u.TypeID); ok {
			total += def.MaintenanceCost
		} else {
			missingTypes = append(missingTypes, u.TypeID)
		}
	}
	return total, missingTypes
}

// DispatchTableCount returns how many missions can be started in one tick:
// the base table count, raised by available dispatcher staff and by
// dispatch_capacity upgrades. Always at least 1.
func DispatchTableCount(snap *content.Snapshot, p *profile.Profile, now time.Time) int {
	dispatchers := 0
	for _, u := range p.AvailableUnits(profile.KindStaff, now) {
		if def, ok := snap.GetStaffType(u.TypeID); ok && def.StaffType == DispatcherStaffType {
			dispatchers++
		}
	}

	tables := BaseDispatchTables
	if dispatchers > tables {
		tables = dispatchers
	}
	for _, id := range p.OwnedUpgrades {
		if u, ok := snap.GetUpgrade(id); ok && u.EffectType == content.EffectDispatchCapacity {
			tables += int(u.EffectValue)
		}
	}

	if tables < 1 {
		tables = 1
	}
	return tables
}

// HasAutomationAccess reports whether the profile owns an upgrade that
// unlocks the dispatch center automation.
func HasAutomationAccess(snap *content.Snapshot, p *profile.Profile) bool {
	for _, id := range p.OwnedUpgrades {
		if u, ok := snap.GetUpgrade(id); ok && u.EffectType == content.EffectAutomation {
			return true
		}
	}
	return false
}

// CooldownDuration derives how long a unit stays busy after a dispatch:
// the mission keeps it occupied for its base duration, then the unit type's
// own rest period applies on top.
func CooldownDuration(m *content.MissionDef, typeCooldownMinutes int) time.Duration {
	minutes := m.BaseDurationMinutes + typeCooldownMinutes
	if minutes < 0 {
		minutes = 0
	}
	return time.Duration(minutes) * time.Minute
}
