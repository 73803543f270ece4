package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/domain/rules"
	"github.com/policechief/server/internal/events"
)

// ProcessCatchup advances the profile's simulated clock to now, processing
// every whole tick interval that elapsed since the last run, capped at the
// configured maximum. Ticks commit one by one: a collaborator failure aborts
// at the current tick boundary, keeps everything committed so far and returns
// a partial report alongside a retryable error.
func (e *Engine) ProcessCatchup(ctx context.Context, profileID string) (*Report, error) {
	var report *Report
	err := e.locks.withProfileLock(profileID, func() error {
		var err error
		report, err = e.runCatchup(ctx, profileID)
		return err
	})
	return report, err
}

func (e *Engine) runCatchup(ctx context.Context, profileID string) (*Report, error) {
	started := time.Now()

	snap := e.catalog.Current()
	if snap == nil {
		return nil, fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
	}

	p, err := e.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	report := &Report{ProfileID: profileID, Profile: p}

	// First contact: anchor the clock and the ledger view without
	// simulating anything.
	if p.LastProcessedTick.IsZero() {
		bal, err := e.ledger.Balance(ctx, profileID)
		if err != nil {
			return report, retryable(err)
		}
		p.LedgerBalance = bal
		p.LastProcessedTick = now
		if err := e.profiles.Save(ctx, p); err != nil {
			return report, retryable(err)
		}
		return report, nil
	}

	interval := e.cfg.Engine.TickInterval()
	ticks := int(now.Sub(p.LastProcessedTick) / interval)
	if ticks <= 0 {
		return report, nil
	}
	if maxTicks := e.cfg.Engine.MaxCatchupTicks(); ticks > maxTicks {
		ticks = maxTicks
		report.TicksCapped = true
		e.log.Warn("Profile %s catch-up capped at %d ticks", profileID, maxTicks)
	}

	// Anchor stays fixed for the whole run: each tick lands an exact
	// multiple of the interval after it, so the sub-interval remainder
	// survives into the next run.
	anchor := p.LastProcessedTick
	committed := p
	var runErr error

	for i := 0; i < ticks; i++ {
		tickTime := anchor.Add(time.Duration(i+1) * interval)

		working := committed.Clone()
		summary, err := e.processTick(ctx, snap, working, tickTime)
		if err != nil {
			runErr = err
			break
		}

		working.LastProcessedTick = tickTime
		committed = working
		report.addTick(summary)
	}

	report.Profile = committed
	report.ReputationDelta = committed.Reputation - p.Reputation
	report.HeatDelta = committed.Heat - p.Heat
	if report.TicksProcessed > 0 {
		if err := e.profiles.Save(ctx, committed); err != nil {
			e.metrics.RecordRun(report.TicksProcessed, time.Since(started), err)
			return report, retryable(err)
		}
		e.events.Append(events.New(events.EventTypeTickProcessed, profileID, committed.LastProcessedTick, map[string]interface{}{
			"ticks_processed": report.TicksProcessed,
			"ticks_capped":    report.TicksCapped,
			"missions":        report.MissionsDispatched,
			"net_credits":     report.NetCredits,
		}))
	}

	e.metrics.RecordRun(report.TicksProcessed, time.Since(started), runErr)
	if runErr != nil {
		e.log.Error("Profile %s catch-up aborted after %d/%d ticks: %v", profileID, report.TicksProcessed, ticks, runErr)
		return report, runErr
	}
	e.log.Info("Profile %s processed %d ticks (%d missions, net %d credits)",
		profileID, report.TicksProcessed, report.MissionsDispatched, report.NetCredits)
	return report, nil
}

// processTick runs the full per-tick sequence on the working copy: recurring
// costs, automation dispatches, resolution. Randomness and ledger idempotency
// keys both derive from (profileID, tickTime), so re-running an aborted tick
// replays identically and the ledger deduplicates the retried mutations.
func (e *Engine) processTick(ctx context.Context, snap *content.Snapshot, p *profile.Profile, tickTime time.Time) (TickSummary, error) {
	summary := TickSummary{TickTime: tickTime}
	rng := rand.New(rand.NewSource(tickSeed(p.ID, tickTime)))

	// Recurring costs come first and are unconditional; they may push the
	// ledger balance negative.
	costs, missing := rules.RecurringTickCosts(snap, p)
	for _, typeID := range missing {
		e.log.Warn("Profile %s owns unit of unknown type %s, no recurring cost applied", p.ID, typeID)
	}
	if costs > 0 {
		key := tickKey(p.ID, tickTime, "recurring")
		if _, err := e.ledger.Adjust(ctx, p.ID, -costs, key); err != nil {
			return summary, retryable(err)
		}
		p.LedgerBalance -= costs
		p.TotalExpensesPaid += costs
		summary.RecurringCosts = costs
		summary.NetCredits -= costs
		e.events.Append(events.New(events.EventTypeRecurringCosts, p.ID, tickTime, map[string]interface{}{
			"amount": costs,
		}))
	}

	if !p.AutomationEnabled || !rules.HasAutomationAccess(snap, p) {
		return summary, nil
	}

	policies := e.activePolicies(snap, p)
	maxDispatches := rules.DispatchTableCount(snap, p, tickTime)
	// Selection gates against the committed balance view carried on the
	// working copy, not the live ledger. An aborted run leaves deduplicated
	// mutations behind in the ledger; gating on p.LedgerBalance keeps the
	// retried run selecting the same missions.
	balanceFn := func() (int, error) { return p.LedgerBalance, nil }

	assignments, err := e.selector.SelectDispatches(snap, p, policies, tickTime, maxDispatches, balanceFn)
	if err != nil {
		return summary, err
	}

	for i, a := range assignments {
		result, err := e.dispatch(ctx, snap, p, a, tickTime, rng, tickKey(p.ID, tickTime, fmt.Sprintf("m%d-%s", i, a.Mission.ID)))
		if err != nil {
			return summary, err
		}
		summary.Missions = append(summary.Missions, result)
		summary.NetCredits += result.Reward - result.FuelSpent
	}
	return summary, nil
}

// dispatch reserves the assigned units, resolves the outcome and applies the
// deltas to profile and ledger. One net ledger adjustment covers fuel and
// reward together.
func (e *Engine) dispatch(
	ctx context.Context,
	snap *content.Snapshot,
	p *profile.Profile,
	a Assignment,
	tickTime time.Time,
	rng *rand.Rand,
	idempotencyKey string,
) (MissionResult, error) {
	unitIDs := make([]string, 0, len(a.Units))
	for _, u := range a.Units {
		cooldown := rules.CooldownDuration(a.Mission, e.unitTypeCooldown(snap, u))
		if _, err := e.cooldown.Reserve(u, tickTime, cooldown); err != nil {
			return MissionResult{}, err
		}
		unitIDs = append(unitIDs, u.ID)
	}

	e.events.Append(events.New(events.EventTypeMissionDispatch, p.ID, tickTime, map[string]interface{}{
		"mission_id": a.Mission.ID,
		"district":   a.Mission.District,
		"unit_ids":   unitIDs,
	}))

	outcome := e.resolver.Resolve(snap, p, a.Mission, a.Units, rng)

	net := outcome.Reward - outcome.FuelSpent
	if net != 0 {
		if _, err := e.ledger.Adjust(ctx, p.ID, net, idempotencyKey); err != nil {
			return MissionResult{}, retryable(err)
		}
	}
	// Track the delta locally rather than taking the balance the ledger
	// returns: on a replayed tick the adjustment deduplicates and the live
	// balance already includes it.
	p.LedgerBalance += net

	p.ApplyReputationDelta(outcome.ReputationDelta)
	p.ApplyHeatDelta(outcome.HeatDelta)
	p.TotalExpensesPaid += outcome.FuelSpent
	if outcome.Success {
		p.TotalMissionsCompleted++
		p.TotalIncomeEarned += outcome.Reward
	} else {
		p.TotalMissionsFailed++
	}
	e.metrics.RecordMission(outcome.Success)

	e.events.Append(events.New(events.EventTypeMissionResolved, p.ID, tickTime, map[string]interface{}{
		"mission_id": a.Mission.ID,
		"success":    outcome.Success,
		"chance":     outcome.Chance,
		"reward":     outcome.Reward,
		"fuel_spent": outcome.FuelSpent,
	}))

	return MissionResult{
		MissionID: a.Mission.ID,
		District:  a.Mission.District,
		UnitIDs:   unitIDs,
		Success:   outcome.Success,
		Chance:    outcome.Chance,
		Reward:    outcome.Reward,
		FuelSpent: outcome.FuelSpent,
		TickTime:  tickTime,
	}, nil
}

// activePolicies resolves the profile's policy ids against the catalog.
// Unknown ids are a content gap, not an error.
func (e *Engine) activePolicies(snap *content.Snapshot, p *profile.Profile) []*content.PolicyDef {
	var policies []*content.PolicyDef
	for _, id := range p.ActivePolicies {
		pol, ok := snap.GetPolicy(id)
		if !ok {
			e.log.Warn("Profile %s references unknown policy %s", p.ID, id)
			continue
		}
		policies = append(policies, pol)
	}
	return policies
}

func (e *Engine) unitTypeCooldown(snap *content.Snapshot, u *profile.Unit) int {
	if u.Kind == profile.KindVehicle {
		if def, ok := snap.GetVehicleType(u.TypeID); ok {
			return def.CooldownMinutes
		}
		return 0
	}
	if def, ok := snap.GetStaffType(u.TypeID); ok {
		return def.CooldownMinutes
	}
	return 0
}

// tickSeed derives the deterministic random seed for one profile tick.
func tickSeed(profileID string, tickTime time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(profileID))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(tickTime.UTC().UnixNano()))
	h.Write(buf[:])
	return int64(h.Sum64())
}

// tickKey builds the deterministic ledger idempotency key for one mutation
// within one profile tick.
func tickKey(profileID string, tickTime time.Time, suffix string) string {
	return fmt.Sprintf("%s|%s|%s", profileID, tickTime.UTC().Format(time.RFC3339), suffix)
}
