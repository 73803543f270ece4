package engine

import (
	"sort"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/domain/rules"
	"github.com/policechief/server/internal/platform/logger"
)

// Assignment pairs a mission with the units that will run it.
type Assignment struct {
	Mission *content.MissionDef
	Units   []*profile.Unit
}

// BalanceFunc returns the balance dispatch selection gates against. During
// catch-up this is the profile's committed balance view, so a replayed tick
// selects the same missions regardless of what an earlier aborted run already
// wrote to the live ledger. Failures are collaborator failures and abort
// selection.
type BalanceFunc func() (int, error)

// Selector chooses which missions an automation policy dispatches in one
// tick. A mission is skipped silently when its requirements cannot be met or
// the balance gate fails; skipping is never an error.
type Selector struct {
	MinimumBalance int
	Logger         *logger.Logger
}

// SelectDispatches filters the catalog down to eligible missions, ranks them
// by the policy rule and greedily assigns available units until no further
// mission can be satisfied or maxDispatches is reached. Each unit is consumed
// by at most one assignment per pass. Ties keep catalog insertion order.
func (s *Selector) SelectDispatches(
	snap *content.Snapshot,
	p *profile.Profile,
	policies []*content.PolicyDef,
	now time.Time,
	maxDispatches int,
	balance BalanceFunc,
) ([]Assignment, error) {
	if maxDispatches <= 0 {
		return nil, nil
	}

	pool := s.buildPool(snap, p, now)
	eligible := s.eligibleMissions(snap, p, policies)
	ranked := rankMissions(eligible, selectionRule(policies))

	var selected []Assignment
	for _, m := range ranked {
		if len(selected) >= maxDispatches {
			break
		}

		units, ok := pool.take(m)
		if !ok {
			continue // required unit types unavailable: silent skip
		}

		// The balance gate applies only to dispatches that spend credits
		// up front. Recurring costs are not gated and purchase costs
		// already spent never block a dispatch.
		fuel := rules.FuelCost(snap, p, m, units)
		if fuel > 0 {
			bal, err := balance()
			if err != nil {
				pool.putBack(m, units)
				return selected, retryable(err)
			}
			gate := s.MinimumBalance
			if fuel > gate {
				gate = fuel
			}
			if bal < gate {
				pool.putBack(m, units)
				continue // InsufficientFunds: silent skip
			}
		}

		selected = append(selected, Assignment{Mission: m, Units: units})
	}
	return selected, nil
}

// eligibleMissions filters the catalog in insertion order: district unlocked,
// station level met, policy filters passed. Requirements are checked later
// against the live pool.
func (s *Selector) eligibleMissions(snap *content.Snapshot, p *profile.Profile, policies []*content.PolicyDef) []*content.MissionDef {
	var eligible []*content.MissionDef
	for _, id := range snap.MissionOrder {
		m := snap.Missions[id]
		if !p.HasDistrict(m.District) {
			continue
		}
		if m.MinStationLevel > p.StationLevel {
			continue
		}
		if !matchesAnyPolicy(m, policies) {
			continue
		}
		eligible = append(eligible, m)
	}
	return eligible
}

// matchesAnyPolicy mirrors the policy filter semantics: with no policies
// everything matches; otherwise at least one policy's filters must accept
// the mission.
func matchesAnyPolicy(m *content.MissionDef, policies []*content.PolicyDef) bool {
	if len(policies) == 0 {
		return true
	}
	for _, pol := range policies {
		if matchesFilters(m, pol.Filters) {
			return true
		}
	}
	return false
}

func matchesFilters(m *content.MissionDef, f content.PolicyFilters) bool {
	if f.MinReward > 0 && m.BaseReward < f.MinReward {
		return false
	}
	if f.MaxReward > 0 && m.BaseReward > f.MaxReward {
		return false
	}
	if len(f.Districts) > 0 {
		found := false
		for _, d := range f.Districts {
			if d == m.District {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// selectionRule picks the ordering rule: the first active policy that
// declares one wins, defaulting to highest-reward-first.
func selectionRule(policies []*content.PolicyDef) string {
	for _, pol := range policies {
		if pol.Rule != "" {
			return pol.Rule
		}
	}
	return content.RuleHighestReward
}

// rankMissions orders eligible missions per the rule. The input is already in
// catalog insertion order, so stable sorting preserves it for ties.
func rankMissions(eligible []*content.MissionDef, rule string) []*content.MissionDef {
	switch rule {
	case content.RuleRoundRobin:
		return roundRobinByDistrict(eligible)
	default: // RuleHighestReward
		ranked := append([]*content.MissionDef(nil), eligible...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].BaseReward > ranked[j].BaseReward
		})
		return ranked
	}
}

// roundRobinByDistrict interleaves missions one district at a time, districts
// ordered by first appearance, missions within a district keeping insertion
// order.
func roundRobinByDistrict(eligible []*content.MissionDef) []*content.MissionDef {
	var districtOrder []string
	byDistrict := make(map[string][]*content.MissionDef)
	for _, m := range eligible {
		if _, seen := byDistrict[m.District]; !seen {
			districtOrder = append(districtOrder, m.District)
		}
		byDistrict[m.District] = append(byDistrict[m.District], m)
	}

	ranked := make([]*content.MissionDef, 0, len(eligible))
	for len(ranked) < len(eligible) {
		for _, d := range districtOrder {
			if queue := byDistrict[d]; len(queue) > 0 {
				ranked = append(ranked, queue[0])
				byDistrict[d] = queue[1:]
			}
		}
	}
	return ranked
}

// unitPool tracks which available units remain unassigned during one
// selection pass, keyed by their catalog type tag.
type unitPool struct {
	vehiclesByTag map[string][]*profile.Unit
	staffByTag    map[string][]*profile.Unit
}

// buildPool indexes the profile's currently available units by type tag.
// Units whose catalog type no longer exists are skipped with a warning.
func (s *Selector) buildPool(snap *content.Snapshot, p *profile.Profile, now time.Time) *unitPool {
	pool := &unitPool{
		vehiclesByTag: make(map[string][]*profile.Unit),
		staffByTag:    make(map[string][]*profile.Unit),
	}
	for _, u := range p.AvailableUnits(profile.KindVehicle, now) {
		def, ok := snap.GetVehicleType(u.TypeID)
		if !ok {
			s.Logger.Warn("Vehicle type %s (unit %s) missing from catalog, skipping", u.TypeID, u.ID)
			continue
		}
		pool.vehiclesByTag[def.VehicleType] = append(pool.vehiclesByTag[def.VehicleType], u)
	}
	for _, u := range p.AvailableUnits(profile.KindStaff, now) {
		def, ok := snap.GetStaffType(u.TypeID)
		if !ok {
			s.Logger.Warn("Staff type %s (unit %s) missing from catalog, skipping", u.TypeID, u.ID)
			continue
		}
		pool.staffByTag[def.StaffType] = append(pool.staffByTag[def.StaffType], u)
	}
	return pool
}

// take attempts to satisfy the mission's full requirements, consuming units
// from the pool. Returns false (pool untouched) when any requirement cannot
// be met.
func (pl *unitPool) take(m *content.MissionDef) ([]*profile.Unit, bool) {
	needVehicles := countTags(m.RequiredVehicleTypes)
	needStaff := countTags(m.RequiredStaffTypes)

	for tag, n := range needVehicles {
		if len(pl.vehiclesByTag[tag]) < n {
			return nil, false
		}
	}
	for tag, n := range needStaff {
		if len(pl.staffByTag[tag]) < n {
			return nil, false
		}
	}

	var units []*profile.Unit
	for _, tag := range m.RequiredVehicleTypes {
		queue := pl.vehiclesByTag[tag]
		units = append(units, queue[0])
		pl.vehiclesByTag[tag] = queue[1:]
	}
	for _, tag := range m.RequiredStaffTypes {
		queue := pl.staffByTag[tag]
		units = append(units, queue[0])
		pl.staffByTag[tag] = queue[1:]
	}
	return units, true
}

// putBack restores units taken for a mission that was ultimately skipped,
// walking the requirement tags in the same order take consumed them.
func (pl *unitPool) putBack(m *content.MissionDef, units []*profile.Unit) {
	i := 0
	for _, tag := range m.RequiredVehicleTypes {
		pl.vehiclesByTag[tag] = append([]*profile.Unit{units[i]}, pl.vehiclesByTag[tag]...)
		i++
	}
	for _, tag := range m.RequiredStaffTypes {
		pl.staffByTag[tag] = append([]*profile.Unit{units[i]}, pl.staffByTag[tag]...)
		i++
	}
}

func countTags(tags []string) map[string]int {
	counts := make(map[string]int)
	for _, t := range tags {
		counts[t]++
	}
	return counts
}
