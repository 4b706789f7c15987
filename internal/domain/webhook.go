// Package domain contains core business types and interfaces.
//
// This file defines payment webhook events and reconciliation outcomes.
// Events are authenticated by HMAC over the raw body before parsing;
// the EventID is the durable deduplication key.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Payment provider state strings, as delivered in webhook payloads.
// Providers are inconsistent about spelling success, so all known
// variants are accepted.
var (
	paymentSuccessStates = map[string]bool{
		"COMPLETE":  true,
		"COMPLETED": true,
		"SUCCESS":   true,
	}
	paymentFailureStates = map[string]bool{
		"FAILED":    true,
		"CANCELLED": true,
		"EXPIRED":   true,
	}
)

// PaymentStateClass classifies a provider state string.
type PaymentStateClass int

const (
	PaymentStateUnknown PaymentStateClass = iota
	PaymentStateSuccess
	PaymentStateFailure
)

// ClassifyPaymentState maps a raw provider state to success or failure,
// case-insensitively. Unrecognized states classify as unknown and are
// rejected as malformed upstream.
func ClassifyPaymentState(state string) PaymentStateClass {
	s := strings.ToUpper(strings.TrimSpace(state))
	switch {
	case paymentSuccessStates[s]:
		return PaymentStateSuccess
	case paymentFailureStates[s]:
		return PaymentStateFailure
	default:
		return PaymentStateUnknown
	}
}

// WebhookEvent is a verified, parsed payment provider callback.
type WebhookEvent struct {
	EventID    string   // Provider's unique event id; dedup key
	State      string   // Raw provider state string
	APIRef     string   // Checkout reference (or raw user reference)
	Plan       PlanCode // Plan code, when the payload carries one
	AmountKES  int
	Currency   string
	Payload    json.RawMessage // Raw body, kept for audit
	ReceivedAt time.Time
}

// WebhookOutcome describes what handling an event did.
type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
)

// WebhookReceipt is the result of successfully handling an event.
// Duplicates are successful no-ops: the receipt reports the prior
// outcome and nothing has changed.
type WebhookReceipt struct {
	Outcome WebhookOutcome
	EventID string
	UserID  string
	Plan    PlanCode
	State   string
}
