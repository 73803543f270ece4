package engine

import (
	"context"
	"testing"
	"time"

	"github.com/policechief/server/internal/domain/profile"
	"github.com/policechief/server/internal/platform/logger"
)

func TestSchedulerSweepProcessesAutomatedProfiles(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "automated", 15*time.Minute, func(p *profile.Profile) {
		p.AutomationEnabled = true
	})
	env.seedProfile(t, "manual", 15*time.Minute, nil)

	s := NewScheduler(env.engine, env.profiles, logger.NewLogger(), time.Minute)
	s.sweep(context.Background())

	// The automated profile's clock advanced, the manual one's did not.
	automated := env.mustProfile(t, "automated")
	if !automated.LastProcessedTick.Equal(env.now) {
		t.Errorf("automated anchor = %s, want %s", automated.LastProcessedTick, env.now)
	}
	manual := env.mustProfile(t, "manual")
	if !manual.LastProcessedTick.Equal(env.now.Add(-15 * time.Minute)) {
		t.Error("manual profile should not be swept")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	env := newTestEnv(t)
	s := NewScheduler(env.engine, env.profiles, logger.NewLogger(), 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
