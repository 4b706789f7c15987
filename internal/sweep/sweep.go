// Package sweep runs the periodic storage hygiene pass.
//
// Expiry is enforced lazily wherever a subscription is read, so the
// sweeper is hygiene, not correctness: it keeps rows for idle users
// from sitting in Active state long after their term ended, and drops
// quota counters for finished days so the counter set stays bounded.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/metrics"
	"github.com/moodmate/moodgate/internal/service"
)

// CounterPruner drops quota counters for days before a cutoff.
// Both store backends implement it.
type CounterPruner interface {
	PruneCountersBefore(ctx context.Context, beforeDayKey string) (int, error)
}

// Sweeper periodically expires lapsed subscriptions in batches and
// prunes quota counters from finished days.
type Sweeper struct {
	subs     service.SubscriptionService
	counters CounterPruner
	calendar clock.Calendar
	clock    clock.Clock
	config   Config
	logger   *slog.Logger

	// Synchronization
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a new Sweeper with the given configuration.
// The sweeper must be started with Start() and stopped with Stop().
func New(subs service.SubscriptionService, counters CounterPruner, calendar clock.Calendar, clk clock.Clock, config Config, logger *slog.Logger) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Sweeper{
		subs:     subs,
		counters: counters,
		calendar: calendar,
		clock:    clk,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start runs one pass immediately to clear any backlog, then sweeps on
// the configured interval until Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Sweeper started", "interval", s.config.Interval, "batch_limit", s.config.BatchLimit)
}

// Stop signals the sweeper to stop and waits for an in-flight pass to
// finish. It respects the configured ShutdownTimeout.
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping sweeper...")
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sweeper stopped gracefully")
	case <-time.After(s.config.ShutdownTimeout):
		s.logger.Warn("Sweeper shutdown timeout exceeded, a pass may still be running")
	}
}

// run is the sweeper loop. It continues until stopCh is closed.
func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	if err := s.runSweep(ctx); err != nil {
		s.logger.Error("Initial sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.Debug("Sweeper stopping")
			return
		case <-ticker.C:
			if err := s.runSweep(ctx); err != nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

// runSweep expires due subscriptions in batches until a batch comes
// back short, meaning the backlog is drained, then prunes counters
// from finished quota days.
func (s *Sweeper) runSweep(ctx context.Context) error {
	start := time.Now()
	expired := 0

	for {
		count, err := s.subs.ExpireDue(ctx, s.config.BatchLimit)
		if err != nil {
			metrics.SweepFailed()
			return fmt.Errorf("expire due subscriptions: %w", err)
		}
		expired += count
		if count < s.config.BatchLimit {
			break
		}
	}

	// Keep today and yesterday so a pass racing the day rollover never
	// drops a counter that could still be read.
	cutoff := s.calendar.DayKey(s.clock.Now().AddDate(0, 0, -1))
	pruned, err := s.counters.PruneCountersBefore(ctx, cutoff)
	if err != nil {
		metrics.SweepFailed()
		return fmt.Errorf("prune quota counters: %w", err)
	}

	metrics.SweepCompleted(time.Since(start))

	if expired > 0 || pruned > 0 {
		s.logger.Info("Sweep completed", "expired", expired, "counters_pruned", pruned, "duration", time.Since(start))
	} else {
		s.logger.Debug("Sweep completed, nothing to do")
	}

	return nil
}
