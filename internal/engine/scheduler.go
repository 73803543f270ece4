package engine

import (
	"context"
	"time"

	"github.com/policechief/server/internal/infra/storage"
	"github.com/policechief/server/internal/platform/logger"
)

// Scheduler periodically sweeps profiles with automation enabled and runs
// their catch-up, so idle stations keep simulating even when no client polls
// them. Each sweep processes profiles sequentially; the per-profile lock
// already prevents overlap with client-driven runs.
type Scheduler struct {
	engine   *Engine
	profiles storage.ProfileRepository
	log      *logger.Logger
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewScheduler creates a sweep scheduler. A non-positive interval disables it.
func NewScheduler(engine *Engine, profiles storage.ProfileRepository, log *logger.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		profiles: profiles,
		log:      log,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("Background sweep disabled")
		close(s.done)
		return
	}
	s.log.Info("Background sweep every %s", s.interval)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop shuts the loop down and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) sweep(ctx context.Context) {
	ids, err := s.profiles.ListAutomationEnabled(ctx)
	if err != nil {
		s.log.Error("Sweep: listing automated profiles failed: %v", err)
		return
	}

	swept, failed := 0, 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		if _, err := s.engine.ProcessCatchup(ctx, id); err != nil {
			failed++
			s.log.Warn("Sweep: catch-up for %s failed: %v", id, err)
			continue
		}
		swept++
	}
	if swept > 0 || failed > 0 {
		s.log.Info("Sweep complete: %d profiles processed, %d failed", swept, failed)
	}
}
