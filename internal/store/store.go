// Package store defines the persistence capabilities the services
// depend on, with in-memory and Postgres implementations.
//
// The counter capability is the concurrency-critical piece: quota
// reservation is a single atomic compare-and-increment per
// (user, quota-day) key, so the ledger never does a read-modify-write.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/moodmate/moodgate/internal/domain"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("record not found")
)

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// Capabilities
// =============================================================================

// CounterStore is the atomic quota counter capability.
//
// CompareAndIncrement increments the counter for key if and only if its
// current value is below ceiling, returning the post-increment value and
// ok=true. When the counter has already reached ceiling it is left
// untouched and ok=false with the current value. Implementations must
// make the compare and the increment one atomic step per key; there is
// no lock shared across keys.
type CounterStore interface {
	CompareAndIncrement(ctx context.Context, key domain.CounterKey, ceiling int) (consumed int, ok bool, err error)
	QuotaConsumed(ctx context.Context, key domain.CounterKey) (int, error)
	// PruneCountersBefore drops counters for quota days lexically before
	// beforeDayKey and returns how many were removed. Day keys sort
	// chronologically, so this is strictly a retention operation; the
	// current day's counter is never touched.
	PruneCountersBefore(ctx context.Context, beforeDayKey string) (int, error)
}

// SubscriptionStore persists subscription lifecycle state.
// GetSubscription returns ErrNotFound for users with no stored row.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *domain.Subscription) error
	// SubscriptionsDueForExpiry returns Active subscriptions whose term
	// ended at or before now, oldest first, up to limit.
	SubscriptionsDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*domain.Subscription, error)
}

// WebhookEventStore is the durable seen-set for payment events.
type WebhookEventStore interface {
	EventSeen(ctx context.Context, eventID string) (bool, error)
	// RecordEvent inserts the event into the seen-set. Recording an
	// already seen event is not an error; inserted reports whether this
	// call added the record.
	RecordEvent(ctx context.Context, ev *domain.WebhookEvent) (inserted bool, err error)
}

// CheckoutStore persists payment intents.
type CheckoutStore interface {
	CreateCheckout(ctx context.Context, co *domain.Checkout) error
	// CheckoutByReference returns the checkout carrying the
	// provider-facing reference, or ErrNotFound.
	CheckoutByReference(ctx context.Context, reference string) (*domain.Checkout, error)
	// LatestPendingCheckout returns the user's most recent PENDING
	// checkout regardless of plan, or ErrNotFound.
	LatestPendingCheckout(ctx context.Context, userID string) (*domain.Checkout, error)
	MarkCheckoutStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error
}

// MoodLogStore persists mood history entries.
type MoodLogStore interface {
	InsertMoodEntry(ctx context.Context, entry *domain.MoodEntry) error
	RecentMoodEntries(ctx context.Context, userID string, limit int) ([]*domain.MoodEntry, error)
}

// Store bundles every capability a full deployment needs.
type Store interface {
	CounterStore
	SubscriptionStore
	WebhookEventStore
	CheckoutStore
	MoodLogStore
}
