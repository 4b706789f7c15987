package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/moodmate/moodgate/internal/domain"
)

// Memory is an in-process Store for single-node deployments and tests.
//
// Counters are lock-free: each (user, day) key owns an atomic integer
// and reservation is a CAS loop, so unrelated users never contend. The
// remaining collections sit behind per-collection mutexes; none of them
// are on the admission hot path.
type Memory struct {
	counters sync.Map // domain.CounterKey -> *atomic.Int64

	subMu sync.RWMutex
	subs  map[string]domain.Subscription

	eventMu sync.RWMutex
	events  map[string]domain.WebhookEvent

	checkoutMu sync.RWMutex
	checkouts  map[uuid.UUID]domain.Checkout
	byRef      map[string]uuid.UUID

	moodMu sync.RWMutex
	moods  map[string][]domain.MoodEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		subs:      make(map[string]domain.Subscription),
		events:    make(map[string]domain.WebhookEvent),
		checkouts: make(map[uuid.UUID]domain.Checkout),
		byRef:     make(map[string]uuid.UUID),
		moods:     make(map[string][]domain.MoodEntry),
	}
}

var _ Store = (*Memory)(nil)

// =============================================================================
// CounterStore
// =============================================================================

func (m *Memory) counter(key domain.CounterKey) *atomic.Int64 {
	if v, ok := m.counters.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := m.counters.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

func (m *Memory) CompareAndIncrement(ctx context.Context, key domain.CounterKey, ceiling int) (int, bool, error) {
	ctr := m.counter(key)
	for {
		cur := ctr.Load()
		if cur >= int64(ceiling) {
			return int(cur), false, nil
		}
		if ctr.CompareAndSwap(cur, cur+1) {
			return int(cur + 1), true, nil
		}
	}
}

func (m *Memory) QuotaConsumed(ctx context.Context, key domain.CounterKey) (int, error) {
	if v, ok := m.counters.Load(key); ok {
		return int(v.(*atomic.Int64).Load()), nil
	}
	return 0, nil
}

func (m *Memory) PruneCountersBefore(ctx context.Context, beforeDayKey string) (int, error) {
	var pruned int
	m.counters.Range(func(k, _ any) bool {
		if k.(domain.CounterKey).DayKey < beforeDayKey {
			m.counters.Delete(k)
			pruned++
		}
		return true
	})
	return pruned, nil
}

// =============================================================================
// SubscriptionStore
// =============================================================================

func (m *Memory) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	sub, ok := m.subs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := sub
	return &out, nil
}

func (m *Memory) UpsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subs[sub.UserID] = *sub
	return nil
}

func (m *Memory) SubscriptionsDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*domain.Subscription, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	var due []*domain.Subscription
	for _, sub := range m.subs {
		if sub.Status == domain.SubscriptionStatusActive &&
			sub.ExpiresAt != nil && !now.Before(*sub.ExpiresAt) {
			out := sub
			due = append(due, &out)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ExpiresAt.Before(*due[j].ExpiresAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// =============================================================================
// WebhookEventStore
// =============================================================================

func (m *Memory) EventSeen(ctx context.Context, eventID string) (bool, error) {
	m.eventMu.RLock()
	defer m.eventMu.RUnlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *Memory) RecordEvent(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	m.eventMu.Lock()
	defer m.eventMu.Unlock()
	if _, ok := m.events[ev.EventID]; ok {
		return false, nil
	}
	m.events[ev.EventID] = *ev
	return true, nil
}

// =============================================================================
// CheckoutStore
// =============================================================================

func (m *Memory) CreateCheckout(ctx context.Context, co *domain.Checkout) error {
	m.checkoutMu.Lock()
	defer m.checkoutMu.Unlock()
	m.checkouts[co.ID] = *co
	m.byRef[co.Reference] = co.ID
	return nil
}

func (m *Memory) CheckoutByReference(ctx context.Context, reference string) (*domain.Checkout, error) {
	m.checkoutMu.RLock()
	defer m.checkoutMu.RUnlock()
	id, ok := m.byRef[reference]
	if !ok {
		return nil, ErrNotFound
	}
	co := m.checkouts[id]
	return &co, nil
}

func (m *Memory) LatestPendingCheckout(ctx context.Context, userID string) (*domain.Checkout, error) {
	m.checkoutMu.RLock()
	defer m.checkoutMu.RUnlock()

	var latest *domain.Checkout
	for id := range m.checkouts {
		co := m.checkouts[id]
		if co.UserID != userID || !co.Outstanding() {
			continue
		}
		if latest == nil || co.CreatedAt.After(latest.CreatedAt) {
			out := co
			latest = &out
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *Memory) MarkCheckoutStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error {
	m.checkoutMu.Lock()
	defer m.checkoutMu.Unlock()
	co, ok := m.checkouts[id]
	if !ok {
		return ErrNotFound
	}
	co.Status = status
	co.UpdatedAt = time.Now()
	m.checkouts[id] = co
	return nil
}

// =============================================================================
// MoodLogStore
// =============================================================================

func (m *Memory) InsertMoodEntry(ctx context.Context, entry *domain.MoodEntry) error {
	m.moodMu.Lock()
	defer m.moodMu.Unlock()
	m.moods[entry.UserID] = append(m.moods[entry.UserID], *entry)
	return nil
}

func (m *Memory) RecentMoodEntries(ctx context.Context, userID string, limit int) ([]*domain.MoodEntry, error) {
	m.moodMu.RLock()
	defer m.moodMu.RUnlock()

	entries := m.moods[userID]
	out := make([]*domain.MoodEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		e := entries[i]
		out = append(out, &e)
	}
	return out, nil
}
