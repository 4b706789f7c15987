// Package service contains the business logic layer.
//
// This file implements the admission gate guarding every analysis
// request: entitlement resolution, the per-minute throttle, and the
// daily quota reservation, in that order.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/metrics"
	"github.com/moodmate/moodgate/internal/ratelimit"
)

// AdmissionService decides whether a request may proceed. Admission is
// one logical check-and-reserve: there is no separate pre-check for
// callers to race against, and an admitted request has already spent
// its quota unit.
type AdmissionService interface {
	Admit(ctx context.Context, userID string) (*domain.Admission, error)
}

type admissionService struct {
	entitlements EntitlementService
	limiter      *ratelimit.Limiter
	quota        QuotaLedger
	logger       *slog.Logger
}

// NewAdmissionService creates an AdmissionService.
func NewAdmissionService(entitlements EntitlementService, limiter *ratelimit.Limiter, quota QuotaLedger, logger *slog.Logger) AdmissionService {
	return &admissionService{
		entitlements: entitlements,
		limiter:      limiter,
		quota:        quota,
		logger:       logger,
	}
}

// Admit runs the rate limiter before the quota ledger so that bursts
// are rejected without burning daily allowance. Both denials carry the
// wait time the caller should surface.
func (s *admissionService) Admit(ctx context.Context, userID string) (*domain.Admission, error) {
	const op = "admission.admit"

	ent, err := s.entitlements.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ok, retryAfter := s.limiter.Allow(userID, ent.PerMinuteLimit); !ok {
		metrics.AdmissionsTotal.WithLabelValues("rate_limited").Inc()
		s.logger.Info("Request rate limited",
			"user_id", userID,
			"plan", ent.Plan,
			"limit", ent.PerMinuteLimit,
			"retry_after", retryAfter,
		)
		return nil, domain.RateLimited(op, ent.Plan, ent.PerMinuteLimit, retryAfter)
	}

	res, err := s.quota.TryReserve(ctx, userID, ent.DailyLimit)
	if err != nil {
		var denial *domain.Denial
		if errors.As(err, &denial) {
			metrics.AdmissionsTotal.WithLabelValues("quota_exhausted").Inc()
			metrics.QuotaDenialsTotal.WithLabelValues(string(ent.Plan)).Inc()
			return nil, domain.QuotaExhausted(op, ent.Plan, denial.Limit, denial.RetryAfter)
		}
		return nil, err
	}

	metrics.AdmissionsTotal.WithLabelValues("granted").Inc()

	return &domain.Admission{
		UserID:    userID,
		Plan:      ent.Plan,
		DayKey:    res.DayKey,
		Remaining: res.Remaining,
	}, nil
}
