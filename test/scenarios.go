// Package test holds the offline simulation harness: full catch-up scenarios
// run against the real content packs with in-memory infrastructure. The
// sim-runner binary executes these before a balance change ships.
package test

import (
	"context"
	"fmt"
	"time"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/engine"
	"github.com/policechief/server/internal/events"
	"github.com/policechief/server/internal/infra/ledger"
	"github.com/policechief/server/internal/infra/storage"
	"github.com/policechief/server/internal/platform/config"
	"github.com/policechief/server/internal/platform/logger"
	"github.com/policechief/server/internal/platform/metrics"
)

// ScenarioResult captures the outcome of one scenario.
type ScenarioResult struct {
	Name   string
	Passed bool
	Reason string
}

// Harness wires an engine against real content packs and in-memory
// infrastructure, then drives it through scripted absence scenarios.
type Harness struct {
	contentDir string
	schemaDir  string
	logger     *logger.Logger
	results    []ScenarioResult
}

// NewHarness creates a scenario harness reading packs from the given dirs.
func NewHarness(contentDir, schemaDir string) *Harness {
	return &Harness{
		contentDir: contentDir,
		schemaDir:  schemaDir,
		logger:     logger.NewLogger(),
	}
}

// Results returns the outcomes recorded so far.
func (h *Harness) Results() []ScenarioResult {
	return h.results
}

type simEnv struct {
	engine   *engine.Engine
	profiles *storage.MemoryProfileRepository
	ledger   *ledger.MemoryLedger
	now      time.Time
}

// outageLedger passes calls through until the failAt-th one, which fails.
// Calls after that succeed again, so a retried run can complete.
type outageLedger struct {
	inner  *ledger.MemoryLedger
	calls  int
	failAt int
}

func (o *outageLedger) tick() bool {
	o.calls++
	return o.calls == o.failAt
}

func (o *outageLedger) Balance(ctx context.Context, profileID string) (int, error) {
	if o.tick() {
		return 0, ledger.ErrUnavailable
	}
	return o.inner.Balance(ctx, profileID)
}

func (o *outageLedger) Adjust(ctx context.Context, profileID string, delta int, key string) (int, error) {
	if o.tick() {
		return 0, ledger.ErrUnavailable
	}
	return o.inner.Adjust(ctx, profileID, delta, key)
}

func (h *Harness) newEnv(led ledger.Ledger) (*simEnv, error) {
	loader := content.NewLoader(h.contentDir, h.schemaDir, h.logger)
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	cfg := config.Default()
	profiles := storage.NewMemoryProfileRepository()
	mem := ledger.NewMemoryLedger()
	if led == nil {
		led = mem
	} else if o, ok := led.(*outageLedger); ok {
		o.inner = mem
	}
	eventLog := events.NewEventLog(nil)

	eng := engine.New(cfg, h.logger, loader, profiles, led, eventLog, metrics.Get())

	env := &simEnv{
		engine:   eng,
		profiles: profiles,
		ledger:   mem,
		now:      time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	eng.SetClock(func() time.Time { return env.now })
	return env, nil
}

// seedChief creates an automation-ready chief: dispatch center owned, a
// patrol car and an officer hired, absent since the given duration.
func (env *simEnv) seedChief(id string, absence time.Duration, balance int) {
	p := profile.NewProfile(id)
	p.LastProcessedTick = env.now.Add(-absence)
	p.OwnedUpgrades = []string{"dispatch_center"}
	p.AutomationEnabled = true
	p.ActivePolicies = []string{"chase_the_money"}
	p.AddUnit(profile.NewUnit("patrol_car", profile.KindVehicle))
	p.AddUnit(profile.NewUnit("officer", profile.KindStaff))
	p.LedgerBalance = balance
	env.profiles.Seed(p)
	env.ledger.SetBalance(id, balance)
}

func (h *Harness) record(name string, passed bool, reason string) {
	h.results = append(h.results, ScenarioResult{Name: name, Passed: passed, Reason: reason})
	status := "PASS"
	if !passed {
		status = "FAIL"
	}
	fmt.Printf("  [%s] %s: %s\n", status, name, reason)
}

// RunAll executes every scenario and returns the results.
func (h *Harness) RunAll(ctx context.Context) []ScenarioResult {
	h.runOvernightIdle(ctx)
	h.runCappedAbsence(ctx)
	h.runLedgerOutageResume(ctx)
	h.runBrokeChief(ctx)
	return h.results
}

// runOvernightIdle: 8 hours away resolves exactly 96 ticks and the chief
// comes back to a coherent report.
func (h *Harness) runOvernightIdle(ctx context.Context) {
	const name = "overnight idle"

	env, err := h.newEnv(nil)
	if err != nil {
		h.record(name, false, err.Error())
		return
	}
	env.seedChief("sim-overnight", 8*time.Hour, 2000)

	report, err := env.engine.ProcessCatchup(ctx, "sim-overnight")
	if err != nil {
		h.record(name, false, fmt.Sprintf("run failed: %v", err))
		return
	}
	if report.TicksProcessed != 96 {
		h.record(name, false, fmt.Sprintf("processed %d ticks, want 96", report.TicksProcessed))
		return
	}
	if report.TicksCapped {
		h.record(name, false, "run unexpectedly capped")
		return
	}
	balance, _ := env.ledger.Balance(ctx, "sim-overnight")
	h.record(name, true, fmt.Sprintf("96 ticks, %d missions, balance %d", report.MissionsDispatched, balance))
}

// runCappedAbsence: three days away still only processes the 24h cap.
func (h *Harness) runCappedAbsence(ctx context.Context) {
	const name = "capped absence"

	env, err := h.newEnv(nil)
	if err != nil {
		h.record(name, false, err.Error())
		return
	}
	env.seedChief("sim-capped", 72*time.Hour, 2000)

	report, err := env.engine.ProcessCatchup(ctx, "sim-capped")
	if err != nil {
		h.record(name, false, fmt.Sprintf("run failed: %v", err))
		return
	}
	if !report.TicksCapped || report.TicksProcessed != 288 {
		h.record(name, false, fmt.Sprintf("capped=%v ticks=%d, want capped 288", report.TicksCapped, report.TicksProcessed))
		return
	}
	h.record(name, true, "absence capped at 288 ticks")
}

// runLedgerOutageResume: a mid-run ledger outage aborts cleanly and the
// retried run converges to the same final state as an uninterrupted one.
func (h *Harness) runLedgerOutageResume(ctx context.Context) {
	const name = "ledger outage resume"

	baseline, err := h.newEnv(nil)
	if err != nil {
		h.record(name, false, err.Error())
		return
	}
	baseline.seedChief("sim-outage", 2*time.Hour, 2000)
	if _, err := baseline.engine.ProcessCatchup(ctx, "sim-outage"); err != nil {
		h.record(name, false, fmt.Sprintf("baseline run failed: %v", err))
		return
	}
	wantBalance, _ := baseline.ledger.Balance(ctx, "sim-outage")

	// Cut the ledger partway through the run, after a few ticks commit.
	env, err := h.newEnv(&outageLedger{failAt: 9})
	if err != nil {
		h.record(name, false, err.Error())
		return
	}
	env.seedChief("sim-outage", 2*time.Hour, 2000)

	_, firstErr := env.engine.ProcessCatchup(ctx, "sim-outage")
	if firstErr == nil {
		h.record(name, false, "outage run unexpectedly completed")
		return
	}
	if !engine.IsRetryable(firstErr) {
		h.record(name, false, fmt.Sprintf("outage error not retryable: %v", firstErr))
		return
	}
	if _, err := env.engine.ProcessCatchup(ctx, "sim-outage"); err != nil {
		h.record(name, false, fmt.Sprintf("retry failed: %v", err))
		return
	}

	gotBalance, _ := env.ledger.Balance(ctx, "sim-outage")
	if gotBalance != wantBalance {
		h.record(name, false, fmt.Sprintf("balance %d after resume, want %d", gotBalance, wantBalance))
		return
	}
	h.record(name, true, fmt.Sprintf("resumed to balance %d", gotBalance))
}

// runBrokeChief: recurring costs keep accruing below zero but automation
// stops dispatching under the minimum balance.
func (h *Harness) runBrokeChief(ctx context.Context) {
	const name = "broke chief"

	env, err := h.newEnv(nil)
	if err != nil {
		h.record(name, false, err.Error())
		return
	}
	env.seedChief("sim-broke", time.Hour, 0)

	report, err := env.engine.ProcessCatchup(ctx, "sim-broke")
	if err != nil {
		h.record(name, false, fmt.Sprintf("run failed: %v", err))
		return
	}
	if report.MissionsDispatched != 0 {
		h.record(name, false, fmt.Sprintf("%d missions dispatched on empty ledger", report.MissionsDispatched))
		return
	}
	balance, _ := env.ledger.Balance(ctx, "sim-broke")
	if balance >= 0 {
		h.record(name, false, fmt.Sprintf("balance %d, expected recurring costs below zero", balance))
		return
	}
	h.record(name, true, fmt.Sprintf("no dispatches, balance drained to %d", balance))
}
