// Package domain contains core business types and interfaces.
//
// This file defines the subscription lifecycle. Transitions accept only
// their legal predecessor states and return typed conflict errors for
// everything else; the single deliberate exception is Confirm, which is
// accepted from any state because payment webhooks may arrive for users
// with no local pending record.
package domain

import (
	"fmt"
	"time"
)

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusFree    SubscriptionStatus = "free"
	SubscriptionStatusPending SubscriptionStatus = "pending_payment"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription is a user's plan membership and its lifecycle state.
// Users without a stored row are represented by NewFreeSubscription.
type Subscription struct {
	UserID    string
	Plan      PlanCode
	Status    SubscriptionStatus
	ExpiresAt *time.Time // Set while Active on a paid plan
	RenewedAt *time.Time // Last successful payment confirmation
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFreeSubscription returns the synthetic subscription used for users
// with no stored row.
func NewFreeSubscription(userID string, now time.Time) *Subscription {
	return &Subscription{
		UserID:    userID,
		Plan:      PlanFree,
		Status:    SubscriptionStatusFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPremiumActive reports whether premium ceilings govern this
// subscription at the given instant: Active on a paid plan with an
// expiry strictly in the future.
func (s *Subscription) IsPremiumActive(now time.Time) bool {
	if s.Status != SubscriptionStatusActive || s.Plan == PlanFree {
		return false
	}
	return s.ExpiresAt != nil && now.Before(*s.ExpiresAt)
}

// IsLapsed reports whether an Active subscription's term has ended and
// the row is due for the Expired transition.
func (s *Subscription) IsLapsed(now time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// BeginCheckout marks a checkout as outstanding. Free, Expired, and
// already-pending subscriptions move to PendingPayment. An Active
// unexpired subscription keeps its status so that starting an early
// renewal never downgrades the user mid-term; the outstanding intent
// lives on the checkout record instead.
func (s *Subscription) BeginCheckout(plan PlanCode, now time.Time) error {
	if plan == PlanFree {
		return Invalid("subscription.begin_checkout", "the free plan cannot be purchased")
	}
	switch s.Status {
	case SubscriptionStatusActive:
		if s.IsPremiumActive(now) {
			s.UpdatedAt = now
			return nil
		}
		// Lapsed but not yet swept; treat like expired.
		s.Status = SubscriptionStatusPending
	case SubscriptionStatusFree, SubscriptionStatusExpired, SubscriptionStatusPending:
		s.Status = SubscriptionStatusPending
	default:
		return Conflict("subscription.begin_checkout",
			fmt.Sprintf("cannot start checkout from status %q", s.Status))
	}
	s.Plan = plan
	s.UpdatedAt = now
	return nil
}

// Confirm applies a successful payment: the subscription becomes Active
// on the given plan until periodEnd. Accepted from any state.
func (s *Subscription) Confirm(plan PlanCode, periodEnd, now time.Time) error {
	if plan == PlanFree {
		return Invalid("subscription.confirm", "cannot confirm payment for the free plan")
	}
	if !periodEnd.After(now) {
		return Invalid("subscription.confirm", "period end must be in the future")
	}
	s.Plan = plan
	s.Status = SubscriptionStatusActive
	s.ExpiresAt = &periodEnd
	s.RenewedAt = &now
	s.UpdatedAt = now
	return nil
}

// MarkExpired moves an Active subscription whose term has ended to
// Expired. Any other state, or an unexpired term, is a conflict.
func (s *Subscription) MarkExpired(now time.Time) error {
	if s.Status != SubscriptionStatusActive {
		return Conflict("subscription.mark_expired",
			fmt.Sprintf("cannot expire subscription in status %q", s.Status))
	}
	if s.ExpiresAt == nil || now.Before(*s.ExpiresAt) {
		return Conflict("subscription.mark_expired", "subscription term has not ended")
	}
	s.Status = SubscriptionStatusExpired
	s.UpdatedAt = now
	return nil
}
