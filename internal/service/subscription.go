// Package service contains the business logic layer.
//
// This file implements the subscription lifecycle: checkout initiation,
// payment confirmation, failure handling, and expiry.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/moodmate/moodgate/internal/billing"
	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/metrics"
	"github.com/moodmate/moodgate/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionService manages plan membership state.
type SubscriptionService interface {
	// Current returns the user's subscription snapshot with lazy expiry
	// applied: an Active row whose term has ended is persisted as Expired
	// before it is returned. Users without a row get a synthetic Free
	// subscription.
	Current(ctx context.Context, userID string) (*domain.Subscription, error)

	// InitiateCheckout starts (or resumes) a payment for a paid plan.
	// Idempotent per outstanding checkout: an existing PENDING checkout
	// for the same plan is returned as-is without a second provider
	// call; a pending checkout for a different plan is superseded.
	InitiateCheckout(ctx context.Context, userID string, planCode domain.PlanCode, phone, email string) (*domain.Checkout, error)

	// ConfirmPayment activates the plan. The new term extends from the
	// current expiry when one is still in the future, otherwise from now.
	// Accepted regardless of local state; payment is the source of truth.
	ConfirmPayment(ctx context.Context, userID string, planCode domain.PlanCode) (*domain.Subscription, error)

	// HandlePaymentFailure records a failed or cancelled payment. A
	// pending subscription stays pending awaiting retry; an Active
	// subscription whose term already lapsed is moved to Expired.
	HandlePaymentFailure(ctx context.Context, userID string) error

	// ExpireDue applies the Expired transition to Active subscriptions
	// whose term has ended, up to limit rows. Returns how many expired.
	ExpireDue(ctx context.Context, limit int) (int, error)

	// Plans lists purchasable plans, cheapest first.
	Plans() []domain.Plan
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	subs      store.SubscriptionStore
	checkouts store.CheckoutStore
	provider  billing.Service
	catalog   domain.Catalog
	baseURL   string
	clock     clock.Clock
	logger    *slog.Logger
}

// NewSubscriptionService creates a SubscriptionService. baseURL is the
// public origin used to build post-payment redirect URLs.
func NewSubscriptionService(
	subs store.SubscriptionStore,
	checkouts store.CheckoutStore,
	provider billing.Service,
	catalog domain.Catalog,
	baseURL string,
	clk clock.Clock,
	logger *slog.Logger,
) SubscriptionService {
	return &subscriptionService{
		subs:      subs,
		checkouts: checkouts,
		provider:  provider,
		catalog:   catalog,
		baseURL:   baseURL,
		clock:     clk,
		logger:    logger,
	}
}

// Current returns the user's subscription with lazy expiry applied.
func (s *subscriptionService) Current(ctx context.Context, userID string) (*domain.Subscription, error) {
	const op = "subscription.current"

	now := s.clock.Now()

	sub, err := s.subs.GetSubscription(ctx, userID)
	if store.IsNotFound(err) {
		return domain.NewFreeSubscription(userID, now), nil
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load subscription")
	}

	if sub.IsLapsed(now) {
		if err := sub.MarkExpired(now); err != nil {
			return nil, domain.Internal(err, op, "failed to expire subscription")
		}
		// A failed persist cannot grant access: the snapshot is already
		// Expired, so resolution yields free ceilings either way.
		if err := s.subs.UpsertSubscription(ctx, sub); err != nil {
			s.logger.Warn("Failed to persist lazy expiry",
				"user_id", userID,
				"error", err,
			)
		} else {
			metrics.SubscriptionsExpiredTotal.Inc()
			s.logger.Info("Subscription expired",
				"user_id", userID,
				"plan", sub.Plan,
			)
		}
	}

	return sub, nil
}

// InitiateCheckout starts or resumes a payment for a paid plan.
func (s *subscriptionService) InitiateCheckout(ctx context.Context, userID string, planCode domain.PlanCode, phone, email string) (*domain.Checkout, error) {
	const op = "subscription.initiate_checkout"

	plan, ok := s.catalog[planCode]
	if !ok || !plan.Active {
		return nil, domain.NotFound(op, "plan", string(planCode))
	}
	if plan.PriceKES <= 0 {
		return nil, domain.Invalid(op, "the free plan cannot be purchased")
	}

	now := s.clock.Now()

	// Reuse or supersede an outstanding checkout before calling the
	// provider again.
	pending, err := s.checkouts.LatestPendingCheckout(ctx, userID)
	if err != nil && !store.IsNotFound(err) {
		return nil, domain.Internal(err, op, "failed to look up pending checkout")
	}
	if err == nil {
		if pending.Plan == planCode {
			s.logger.Info("Reusing outstanding checkout",
				"user_id", userID,
				"checkout_id", pending.ID,
				"plan", planCode,
			)
			return pending, nil
		}
		if err := s.checkouts.MarkCheckoutStatus(ctx, pending.ID, domain.CheckoutStatusReplaced); err != nil {
			return nil, domain.Internal(err, op, "failed to supersede pending checkout")
		}
		s.logger.Info("Superseded pending checkout",
			"user_id", userID,
			"checkout_id", pending.ID,
			"old_plan", pending.Plan,
			"new_plan", planCode,
		)
	}

	id := uuid.New()
	session, err := s.provider.CreateCheckout(ctx, billing.CheckoutRequest{
		AmountKES:   plan.PriceKES,
		Email:       email,
		PhoneNumber: phone,
		Reference:   id.String(),
		RedirectURL: s.baseURL + "/payment-success",
		Comment:     fmt.Sprintf("MoodMate %s Subscription", plan.Name),
	})
	if err != nil {
		return nil, domain.Unavailable(err, op, "payment provider unavailable")
	}

	co := &domain.Checkout{
		ID:          id,
		UserID:      userID,
		Plan:        planCode,
		Reference:   id.String(),
		ProviderRef: session.ProviderRef,
		CheckoutURL: session.URL,
		AmountKES:   plan.PriceKES,
		Status:      domain.CheckoutStatusPending,
		Payload:     session.Raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.checkouts.CreateCheckout(ctx, co); err != nil {
		return nil, domain.Internal(err, op, "failed to persist checkout")
	}

	sub, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := sub.BeginCheckout(planCode, now); err != nil {
		return nil, err
	}
	if err := s.subs.UpsertSubscription(ctx, sub); err != nil {
		return nil, domain.Internal(err, op, "failed to persist subscription")
	}

	metrics.CheckoutsCreatedTotal.Inc()
	s.logger.Info("Checkout created",
		"user_id", userID,
		"checkout_id", co.ID,
		"plan", planCode,
		"amount_kes", plan.PriceKES,
	)

	return co, nil
}

// ConfirmPayment activates the plan, extending any unexpired term.
func (s *subscriptionService) ConfirmPayment(ctx context.Context, userID string, planCode domain.PlanCode) (*domain.Subscription, error) {
	const op = "subscription.confirm_payment"

	plan := s.catalog.Plan(planCode)
	now := s.clock.Now()

	sub, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Renewal extends from the current expiry, never shortens it.
	periodStart := now
	if sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
		periodStart = *sub.ExpiresAt
	}
	periodEnd := periodStart.Add(plan.Duration())

	if err := sub.Confirm(plan.Code, periodEnd, now); err != nil {
		return nil, err
	}
	if err := s.subs.UpsertSubscription(ctx, sub); err != nil {
		return nil, domain.Internal(err, op, "failed to persist subscription")
	}

	s.logger.Info("Payment confirmed",
		"user_id", userID,
		"plan", plan.Code,
		"expires_at", periodEnd,
	)

	return sub, nil
}

// HandlePaymentFailure records a failed or cancelled payment.
func (s *subscriptionService) HandlePaymentFailure(ctx context.Context, userID string) error {
	const op = "subscription.payment_failure"

	now := s.clock.Now()

	sub, err := s.Current(ctx, userID)
	if err != nil {
		return err
	}

	switch {
	case sub.Status == domain.SubscriptionStatusPending:
		// Stays pending; the user may retry the payment.
		sub.UpdatedAt = now
		if err := s.subs.UpsertSubscription(ctx, sub); err != nil {
			return domain.Internal(err, op, "failed to persist subscription")
		}
		s.logger.Warn("Payment failed; checkout still pending",
			"user_id", userID,
			"plan", sub.Plan,
		)
	case sub.IsLapsed(now):
		// Renewal failed after the term ended.
		if err := sub.MarkExpired(now); err != nil {
			return err
		}
		if err := s.subs.UpsertSubscription(ctx, sub); err != nil {
			return domain.Internal(err, op, "failed to persist subscription")
		}
		metrics.SubscriptionsExpiredTotal.Inc()
		s.logger.Warn("Renewal payment failed; subscription expired",
			"user_id", userID,
			"plan", sub.Plan,
		)
	default:
		s.logger.Warn("Payment failed; subscription state unchanged",
			"user_id", userID,
			"status", sub.Status,
		)
	}

	return nil
}

// ExpireDue sweeps Active subscriptions whose term has ended.
func (s *subscriptionService) ExpireDue(ctx context.Context, limit int) (int, error) {
	const op = "subscription.expire_due"

	now := s.clock.Now()

	due, err := s.subs.SubscriptionsDueForExpiry(ctx, now, limit)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to list due subscriptions")
	}

	expired := 0
	for _, sub := range due {
		if err := sub.MarkExpired(now); err != nil {
			// Raced with a concurrent renewal or lazy expiry; skip.
			continue
		}
		if err := s.subs.UpsertSubscription(ctx, sub); err != nil {
			s.logger.Warn("Failed to persist sweep expiry",
				"user_id", sub.UserID,
				"error", err,
			)
			continue
		}
		metrics.SubscriptionsExpiredTotal.Inc()
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired lapsed subscriptions", "count", expired)
	}

	return expired, nil
}

// Plans lists purchasable plans, cheapest first.
func (s *subscriptionService) Plans() []domain.Plan {
	plans := s.catalog.Purchasable()
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].PriceKES < plans[j].PriceKES
	})
	return plans
}
