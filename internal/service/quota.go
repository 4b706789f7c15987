// Package service contains the business logic layer.
//
// This file implements the quota ledger: atomic reservation of the
// daily analysis allowance, keyed by user and quota day.
package service

import (
	"context"
	"log/slog"

	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaLedger reserves and reports daily analysis allowance. An
// admitted request consumes exactly one unit on attempt; there is no
// refund operation, so work that fails after admission stays counted.
type QuotaLedger interface {
	// TryReserve atomically consumes one unit of today's allowance when
	// consumption is below ceiling. The check and the increment are one
	// step; two racing calls can never both win the last unit. Denial is
	// a *domain.Denial carrying the time until the quota day resets, and
	// leaves the counter untouched.
	TryReserve(ctx context.Context, userID string, ceiling int) (*domain.Reservation, error)

	// Peek reports today's usage against the given ceiling without
	// consuming anything.
	Peek(ctx context.Context, userID string, ceiling int) (*domain.QuotaUsage, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaLedger struct {
	counters store.CounterStore
	calendar clock.Calendar
	clock    clock.Clock
	logger   *slog.Logger
}

// NewQuotaLedger creates a QuotaLedger over the given counter store.
// The ceiling is supplied per call by the entitlement resolver; the
// ledger itself never decides plans.
func NewQuotaLedger(counters store.CounterStore, calendar clock.Calendar, clk clock.Clock, logger *slog.Logger) QuotaLedger {
	return &quotaLedger{
		counters: counters,
		calendar: calendar,
		clock:    clk,
		logger:   logger,
	}
}

// TryReserve atomically consumes one unit of today's allowance.
func (l *quotaLedger) TryReserve(ctx context.Context, userID string, ceiling int) (*domain.Reservation, error) {
	const op = "quota.try_reserve"

	now := l.clock.Now()
	key := domain.CounterKey{UserID: userID, DayKey: l.calendar.DayKey(now)}

	// A non-positive ceiling can never admit; don't touch the store.
	if ceiling <= 0 {
		return nil, domain.QuotaExhausted(op, "", ceiling, l.calendar.UntilReset(now))
	}

	consumed, ok, err := l.counters.CompareAndIncrement(ctx, key, ceiling)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to reserve quota")
	}

	if !ok {
		l.logger.Info("Daily quota exhausted",
			"user_id", userID,
			"quota_day", key.DayKey,
			"consumed", consumed,
			"ceiling", ceiling,
		)
		return nil, domain.QuotaExhausted(op, "", ceiling, l.calendar.UntilReset(now))
	}

	return &domain.Reservation{
		UserID:    userID,
		DayKey:    key.DayKey,
		Consumed:  consumed,
		Ceiling:   ceiling,
		Remaining: ceiling - consumed,
	}, nil
}

// Peek reports today's usage without consuming anything.
func (l *quotaLedger) Peek(ctx context.Context, userID string, ceiling int) (*domain.QuotaUsage, error) {
	const op = "quota.peek"

	now := l.clock.Now()
	key := domain.CounterKey{UserID: userID, DayKey: l.calendar.DayKey(now)}

	consumed, err := l.counters.QuotaConsumed(ctx, key)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read quota counter")
	}

	return &domain.QuotaUsage{
		UserID:   userID,
		DayKey:   key.DayKey,
		Consumed: consumed,
		Ceiling:  ceiling,
		ResetsIn: l.calendar.UntilReset(now),
	}, nil
}
