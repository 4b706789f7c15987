package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/moodmate/moodgate/internal/billing"
	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/metrics"
	"github.com/moodmate/moodgate/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// WebhookService reconciles payment provider callbacks against
// subscription state. Handling is idempotent per event id: redelivered
// events report duplicate and leave state untouched.
type WebhookService interface {
	// Handle verifies the signature over the raw body, parses the event,
	// and applies the payment outcome. Events for the same user are
	// serialized so redeliveries and races cannot double-apply.
	Handle(ctx context.Context, raw []byte, signature string) (*domain.WebhookReceipt, error)
}

// =============================================================================
// Implementation
// =============================================================================

// webhookPayload is the provider wire format.
type webhookPayload struct {
	EventID  string  `json:"event_id"`
	State    string  `json:"state"`
	APIRef   string  `json:"api_ref"`
	PlanCode string  `json:"plan_code"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type webhookService struct {
	provider  billing.Service
	subs      SubscriptionService
	checkouts store.CheckoutStore
	events    store.WebhookEventStore
	clock     clock.Clock
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWebhookService creates a new webhook reconciliation service.
func NewWebhookService(
	provider billing.Service,
	subs SubscriptionService,
	checkouts store.CheckoutStore,
	events store.WebhookEventStore,
	clk clock.Clock,
	logger *slog.Logger,
) WebhookService {
	return &webhookService{
		provider:  provider,
		subs:      subs,
		checkouts: checkouts,
		events:    events,
		clock:     clk,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing webhook handling for one user.
func (s *webhookService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *webhookService) Handle(ctx context.Context, raw []byte, signature string) (*domain.WebhookReceipt, error) {
	const op = "webhook.handle"

	// Authenticate before parsing. Unverified bodies are untrusted input.
	if !s.provider.VerifySignature(raw, signature) {
		metrics.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		s.logger.Warn("Webhook rejected: signature verification failed")
		return nil, domain.Unauthorized(op, "invalid webhook signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		return nil, domain.Invalid(op, "malformed webhook payload")
	}

	eventID := strings.TrimSpace(payload.EventID)
	ref := strings.TrimSpace(payload.APIRef)
	state := strings.TrimSpace(payload.State)
	if eventID == "" || ref == "" || state == "" {
		metrics.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		return nil, domain.Invalid(op, "webhook payload missing event_id, api_ref, or state")
	}

	class := domain.ClassifyPaymentState(state)
	if class == domain.PaymentStateUnknown {
		metrics.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		s.logger.Warn("Webhook rejected: unrecognized payment state",
			"event_id", eventID,
			"state", state)
		return nil, domain.Invalid(op, "unrecognized payment state "+strings.ToUpper(state))
	}

	// The reference normally names a checkout this service created. When
	// it doesn't, the provider was driven directly and the reference is
	// the user id itself.
	var (
		userID   string
		plan     domain.PlanCode
		checkout *domain.Checkout
	)
	co, err := s.checkouts.CheckoutByReference(ctx, ref)
	switch {
	case err == nil:
		checkout = co
		userID = co.UserID
		plan = co.Plan
	case store.IsNotFound(err):
		userID = ref
		plan = domain.PlanCode(strings.ToUpper(strings.TrimSpace(payload.PlanCode)))
		if plan == "" {
			plan = domain.PlanPremium
		}
	default:
		return nil, domain.Internal(err, op, "failed to resolve checkout reference")
	}

	// Per-user serialization: two deliveries for the same user cannot
	// interleave between the dedup check and the record.
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	seen, err := s.events.EventSeen(ctx, eventID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to check event history")
	}
	if seen {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		s.logger.Info("Duplicate webhook event ignored",
			"event_id", eventID,
			"user_id", userID)
		return &domain.WebhookReceipt{
			Outcome: domain.WebhookOutcomeDuplicate,
			EventID: eventID,
			UserID:  userID,
			Plan:    plan,
			State:   state,
		}, nil
	}

	switch class {
	case domain.PaymentStateSuccess:
		if _, err := s.subs.ConfirmPayment(ctx, userID, plan); err != nil {
			return nil, err
		}
		if checkout != nil {
			if err := s.checkouts.MarkCheckoutStatus(ctx, checkout.ID, domain.CheckoutStatusSuccess); err != nil {
				s.logger.Warn("Failed to mark checkout succeeded",
					"checkout_id", checkout.ID,
					"error", err)
			}
		}
	case domain.PaymentStateFailure:
		if err := s.subs.HandlePaymentFailure(ctx, userID); err != nil {
			return nil, err
		}
		if checkout != nil {
			if err := s.checkouts.MarkCheckoutStatus(ctx, checkout.ID, domain.CheckoutStatusFailed); err != nil {
				s.logger.Warn("Failed to mark checkout failed",
					"checkout_id", checkout.ID,
					"error", err)
			}
		}
	}

	// Record only after the transition committed. A crash before this
	// point redelivers the event; applying it again is safe because
	// confirmation and failure handling are state-idempotent.
	ev := &domain.WebhookEvent{
		EventID:    eventID,
		State:      state,
		APIRef:     ref,
		Plan:       plan,
		AmountKES:  int(payload.Amount),
		Currency:   payload.Currency,
		Payload:    json.RawMessage(raw),
		ReceivedAt: s.clock.Now(),
	}
	inserted, err := s.events.RecordEvent(ctx, ev)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to record webhook event")
	}
	if !inserted {
		metrics.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		return &domain.WebhookReceipt{
			Outcome: domain.WebhookOutcomeDuplicate,
			EventID: eventID,
			UserID:  userID,
			Plan:    plan,
			State:   state,
		}, nil
	}

	metrics.WebhookEventsTotal.WithLabelValues("applied").Inc()
	s.logger.Info("Webhook event applied",
		"event_id", eventID,
		"user_id", userID,
		"plan", plan,
		"state", state)

	return &domain.WebhookReceipt{
		Outcome: domain.WebhookOutcomeApplied,
		EventID: eventID,
		UserID:  userID,
		Plan:    plan,
		State:   state,
	}, nil
}
