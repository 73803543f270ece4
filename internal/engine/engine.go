package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/domain/rules"
	"github.com/policechief/server/internal/events"
	"github.com/policechief/server/internal/infra/ledger"
	"github.com/policechief/server/internal/infra/storage"
	"github.com/policechief/server/internal/platform/config"
	"github.com/policechief/server/internal/platform/logger"
	"github.com/policechief/server/internal/platform/metrics"
)

// Fraction of the original cost refunded when a unit is sold or dismissed.
const sellRefundRate = 0.5

// CatalogProvider serves the current content snapshot.
type CatalogProvider interface {
	Current() *content.Snapshot
}

// Engine is the facade over the simulation: catch-up processing, manual
// dispatch and all profile mutations. Every mutating operation runs under
// the per-profile lock and persists through the repository.
type Engine struct {
	cfg      *config.Config
	log      *logger.Logger
	catalog  CatalogProvider
	profiles storage.ProfileRepository
	ledger   ledger.Ledger
	events   *events.EventLog
	metrics  *metrics.Collector

	locks    *lockRegistry
	resolver Resolver
	selector *Selector
	cooldown CooldownTracker
	clock    func() time.Time
}

// New wires an engine from its collaborators.
func New(
	cfg *config.Config,
	log *logger.Logger,
	catalog CatalogProvider,
	profiles storage.ProfileRepository,
	led ledger.Ledger,
	eventLog *events.EventLog,
	collector *metrics.Collector,
) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      log,
		catalog:  catalog,
		profiles: profiles,
		ledger:   led,
		events:   eventLog,
		metrics:  collector,
		locks:    newLockRegistry(),
		resolver: Resolver{HeatPenaltyRate: cfg.Engine.HeatPenaltyRate},
		selector: &Selector{MinimumBalance: cfg.Engine.MinimumBalance, Logger: log},
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the wall-clock source. Test hook.
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// GetOrCreateProfile loads a profile, creating it with default starting
// resources on first contact.
func (e *Engine) GetOrCreateProfile(ctx context.Context, profileID string) (*profile.Profile, error) {
	var p *profile.Profile
	err := e.locks.withProfileLock(profileID, func() error {
		var err error
		p, err = e.profiles.Load(ctx, profileID)
		if errors.Is(err, storage.ErrNotFound) {
			p, err = e.profiles.Create(ctx, profileID)
			if err != nil {
				return retryable(err)
			}
			bal, err := e.ledger.Balance(ctx, profileID)
			if err != nil {
				return retryable(err)
			}
			p.LedgerBalance = bal
			p.LastProcessedTick = e.clock()
			if err := e.profiles.Save(ctx, p); err != nil {
				return retryable(err)
			}
			e.log.Info("Created profile %s", profileID)
			return nil
		}
		if err != nil {
			return retryable(err)
		}
		return nil
	})
	return p, err
}

// GetProfile loads an existing profile without creating it.
func (e *Engine) GetProfile(ctx context.Context, profileID string) (*profile.Profile, error) {
	p, err := e.profiles.Load(ctx, profileID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: profile %s", ErrUnknownEntity, profileID)
	}
	if err != nil {
		return nil, retryable(err)
	}
	return p, nil
}

// Balance returns the profile's current ledger balance.
func (e *Engine) Balance(ctx context.Context, profileID string) (int, error) {
	bal, err := e.ledger.Balance(ctx, profileID)
	if err != nil {
		return 0, retryable(err)
	}
	return bal, nil
}

// Catalog returns the active content snapshot.
func (e *Engine) Catalog() *content.Snapshot {
	return e.catalog.Current()
}

// ManualDispatch runs a single player-initiated dispatch of the given
// mission. Pending catch-up ticks are drained first so the dispatch sees
// current state. Unlike automation, unmet conditions surface as errors.
func (e *Engine) ManualDispatch(ctx context.Context, profileID, missionID string) (*MissionResult, error) {
	if _, err := e.ProcessCatchup(ctx, profileID); err != nil {
		return nil, err
	}

	var result *MissionResult
	err := e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}
		m, ok := snap.GetMission(missionID)
		if !ok {
			return fmt.Errorf("%w: mission %s", ErrUnknownEntity, missionID)
		}

		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if !p.HasDistrict(m.District) {
			return fmt.Errorf("%w: district %s is locked", ErrInvalidState, m.District)
		}
		if m.MinStationLevel > p.StationLevel {
			return fmt.Errorf("%w: mission %s requires station level %d", ErrInvalidState, missionID, m.MinStationLevel)
		}

		now := e.clock()
		pool := e.selector.buildPool(snap, p, now)
		units, ok := pool.take(m)
		if !ok {
			return fmt.Errorf("%w: mission %s", ErrResourceUnavailable, missionID)
		}

		fuel := rules.FuelCost(snap, p, m, units)
		if fuel > 0 {
			bal, err := e.ledger.Balance(ctx, profileID)
			if err != nil {
				return retryable(err)
			}
			gate := e.cfg.Engine.MinimumBalance
			if fuel > gate {
				gate = fuel
			}
			if bal < gate {
				return fmt.Errorf("%w: balance %d below %d", ErrInsufficientFunds, bal, gate)
			}
		}

		rng := rand.New(rand.NewSource(now.UnixNano()))
		r, err := e.dispatch(ctx, snap, p, Assignment{Mission: m, Units: units}, now, rng, uuid.NewString())
		if err != nil {
			return err
		}
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}
		result = &r
		return nil
	})
	return result, err
}

// PurchaseVehicle buys one unit of a vehicle type.
func (e *Engine) PurchaseVehicle(ctx context.Context, profileID, typeID string) (*profile.Unit, error) {
	return e.acquireUnit(ctx, profileID, typeID, profile.KindVehicle)
}

// HireStaff hires one unit of a staff type.
func (e *Engine) HireStaff(ctx context.Context, profileID, typeID string) (*profile.Unit, error) {
	return e.acquireUnit(ctx, profileID, typeID, profile.KindStaff)
}

func (e *Engine) acquireUnit(ctx context.Context, profileID, typeID string, kind profile.Kind) (*profile.Unit, error) {
	var unit *profile.Unit
	err := e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}

		var cost, minLevel int
		var eventType events.EventType
		if kind == profile.KindVehicle {
			def, ok := snap.GetVehicleType(typeID)
			if !ok {
				return fmt.Errorf("%w: vehicle type %s", ErrUnknownEntity, typeID)
			}
			cost, minLevel, eventType = def.PurchaseCost, def.MinStationLevel, events.EventTypeVehiclePurchased
		} else {
			def, ok := snap.GetStaffType(typeID)
			if !ok {
				return fmt.Errorf("%w: staff type %s", ErrUnknownEntity, typeID)
			}
			cost, minLevel, eventType = def.HireCost, def.MinStationLevel, events.EventTypeStaffHired
		}

		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if minLevel > p.StationLevel {
			return fmt.Errorf("%w: %s requires station level %d", ErrInvalidState, typeID, minLevel)
		}
		if err := e.spend(ctx, p, cost); err != nil {
			return err
		}

		u := profile.NewUnit(typeID, kind)
		p.AddUnit(u)
		p.TotalExpensesPaid += cost
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}

		e.events.Append(events.New(eventType, profileID, e.clock(), map[string]interface{}{
			"type_id": typeID,
			"unit_id": u.ID,
			"cost":    cost,
		}))
		unit = u
		return nil
	})
	return unit, err
}

// SellUnit removes a unit and refunds part of its original cost. Units still
// on cooldown cannot be sold.
func (e *Engine) SellUnit(ctx context.Context, profileID, unitID string) error {
	return e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}
		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		u := p.FindUnit(unitID)
		if u == nil {
			return fmt.Errorf("%w: unit %s", ErrUnknownEntity, unitID)
		}
		if !u.Available(e.clock()) {
			return fmt.Errorf("%w: unit %s is on cooldown", ErrResourceUnavailable, unitID)
		}

		cost := 0
		if u.Kind == profile.KindVehicle {
			if def, ok := snap.GetVehicleType(u.TypeID); ok {
				cost = def.PurchaseCost
			}
		} else {
			if def, ok := snap.GetStaffType(u.TypeID); ok {
				cost = def.HireCost
			}
		}
		refund := int(float64(cost) * sellRefundRate)

		p.RemoveUnit(unitID)
		if refund > 0 {
			newBal, err := e.ledger.Adjust(ctx, profileID, refund, uuid.NewString())
			if err != nil {
				return retryable(err)
			}
			p.LedgerBalance = newBal
			p.TotalIncomeEarned += refund
		}
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}

		e.events.Append(events.New(events.EventTypeUnitRemoved, profileID, e.clock(), map[string]interface{}{
			"unit_id": unitID,
			"type_id": u.TypeID,
			"refund":  refund,
		}))
		return nil
	})
}

// PurchaseUpgrade buys a station upgrade, honoring its prerequisite chain.
func (e *Engine) PurchaseUpgrade(ctx context.Context, profileID, upgradeID string) error {
	return e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}
		def, ok := snap.GetUpgrade(upgradeID)
		if !ok {
			return fmt.Errorf("%w: upgrade %s", ErrUnknownEntity, upgradeID)
		}

		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if p.HasUpgrade(upgradeID) {
			return fmt.Errorf("%w: upgrade %s already owned", ErrInvalidState, upgradeID)
		}
		if def.MinStationLevel > p.StationLevel {
			return fmt.Errorf("%w: upgrade %s requires station level %d", ErrInvalidState, upgradeID, def.MinStationLevel)
		}
		if def.RequiredUpgrade != "" && !p.HasUpgrade(def.RequiredUpgrade) {
			return fmt.Errorf("%w: upgrade %s requires %s first", ErrInvalidState, upgradeID, def.RequiredUpgrade)
		}
		if err := e.spend(ctx, p, def.Cost); err != nil {
			return err
		}

		p.OwnedUpgrades = append(p.OwnedUpgrades, upgradeID)
		p.TotalExpensesPaid += def.Cost
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}

		e.events.Append(events.New(events.EventTypeUpgradePurchased, profileID, e.clock(), map[string]interface{}{
			"upgrade_id": upgradeID,
			"cost":       def.Cost,
		}))
		return nil
	})
}

// UnlockDistrict pays the unlock cost and adds the district to the profile.
func (e *Engine) UnlockDistrict(ctx context.Context, profileID, districtID string) error {
	return e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}
		def, ok := snap.GetDistrict(districtID)
		if !ok {
			return fmt.Errorf("%w: district %s", ErrUnknownEntity, districtID)
		}

		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if p.HasDistrict(districtID) {
			return fmt.Errorf("%w: district %s already unlocked", ErrInvalidState, districtID)
		}
		if def.MinStationLevel > p.StationLevel {
			return fmt.Errorf("%w: district %s requires station level %d", ErrInvalidState, districtID, def.MinStationLevel)
		}
		if err := e.spend(ctx, p, def.UnlockCost); err != nil {
			return err
		}

		p.UnlockedDistricts = append(p.UnlockedDistricts, districtID)
		p.TotalExpensesPaid += def.UnlockCost
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}

		e.events.Append(events.New(events.EventTypeDistrictUnlocked, profileID, e.clock(), map[string]interface{}{
			"district_id": districtID,
			"cost":        def.UnlockCost,
		}))
		return nil
	})
}

// SetAutomation flips the automation switch. Enabling requires an
// automation-access upgrade.
func (e *Engine) SetAutomation(ctx context.Context, profileID string, enabled bool) error {
	return e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}
		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if enabled && !rules.HasAutomationAccess(snap, p) {
			return fmt.Errorf("%w: automation requires a dispatch center upgrade", ErrInvalidState)
		}

		p.AutomationEnabled = enabled
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}

		e.events.Append(events.New(events.EventTypeAutomationToggle, profileID, e.clock(), map[string]interface{}{
			"enabled": enabled,
		}))
		return nil
	})
}

// SetPolicies replaces the profile's active automation policies. Every id
// must exist in the catalog.
func (e *Engine) SetPolicies(ctx context.Context, profileID string, policyIDs []string) error {
	return e.locks.withProfileLock(profileID, func() error {
		snap := e.catalog.Current()
		if snap == nil {
			return fmt.Errorf("%w: content catalog not loaded", ErrInvalidState)
		}
		for _, id := range policyIDs {
			if _, ok := snap.GetPolicy(id); !ok {
				return fmt.Errorf("%w: policy %s", ErrUnknownEntity, id)
			}
		}

		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		p.ActivePolicies = append([]string(nil), policyIDs...)
		return e.saveOrRetry(ctx, p)
	})
}

// AdminReleaseUnit clears a unit's cooldown immediately. Operator tooling.
func (e *Engine) AdminReleaseUnit(ctx context.Context, profileID, unitID string) error {
	return e.locks.withProfileLock(profileID, func() error {
		p, err := e.loadProfile(ctx, profileID)
		if err != nil {
			return err
		}
		u := p.FindUnit(unitID)
		if u == nil {
			return fmt.Errorf("%w: unit %s", ErrUnknownEntity, unitID)
		}

		e.cooldown.Release(u)
		if err := e.profiles.Save(ctx, p); err != nil {
			return retryable(err)
		}

		e.events.Append(events.New(events.EventTypeAdminRelease, profileID, e.clock(), map[string]interface{}{
			"unit_id": unitID,
		}))
		e.log.Event("ADMIN_COOLDOWN_RELEASE", profileID, "unit "+unitID)
		return nil
	})
}

// spend withdraws cost from the ledger after checking it is covered.
// Purchases must be fully funded; the negative-balance allowance applies to
// recurring tick costs only. The committed balance view on the profile is
// resynced from the ledger's answer.
func (e *Engine) spend(ctx context.Context, p *profile.Profile, cost int) error {
	if cost <= 0 {
		return nil
	}
	bal, err := e.ledger.Balance(ctx, p.ID)
	if err != nil {
		return retryable(err)
	}
	if bal < cost {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, bal, cost)
	}
	newBal, err := e.ledger.Adjust(ctx, p.ID, -cost, uuid.NewString())
	if err != nil {
		return retryable(err)
	}
	p.LedgerBalance = newBal
	return nil
}

func (e *Engine) loadProfile(ctx context.Context, profileID string) (*profile.Profile, error) {
	p, err := e.profiles.Load(ctx, profileID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: profile %s", ErrUnknownEntity, profileID)
	}
	if err != nil {
		return nil, retryable(err)
	}
	return p, nil
}

func (e *Engine) saveOrRetry(ctx context.Context, p *profile.Profile) error {
	if err := e.profiles.Save(ctx, p); err != nil {
		return retryable(err)
	}
	return nil
}
