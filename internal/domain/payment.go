// Package domain contains core business types and interfaces.
//
// This file defines checkout records: the durable intent created when a
// user starts a payment, later reconciled by provider webhooks.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CheckoutStatus tracks a checkout's reconciliation state.
type CheckoutStatus string

const (
	CheckoutStatusPending  CheckoutStatus = "PENDING"
	CheckoutStatusSuccess  CheckoutStatus = "SUCCESS"
	CheckoutStatusFailed   CheckoutStatus = "FAILED"
	CheckoutStatusReplaced CheckoutStatus = "REPLACED"
)

// Checkout is one payment attempt. Reference is the api_ref the
// provider echoes back in webhooks; it is how events find their user.
type Checkout struct {
	ID          uuid.UUID
	UserID      string
	Plan        PlanCode
	Reference   string // Provider-facing reference (api_ref)
	ProviderRef string // Provider's own id for the checkout, if any
	CheckoutURL string
	AmountKES   int
	Status      CheckoutStatus
	Payload     json.RawMessage // Raw provider response, kept for audit
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outstanding reports whether this checkout still awaits reconciliation.
func (c *Checkout) Outstanding() bool {
	return c.Status == CheckoutStatusPending
}
