package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodmate/moodgate/internal/domain"
)

func TestCompareAndIncrementNeverExceedsCeiling(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	key := domain.CounterKey{UserID: "user-1", DayKey: "2025-06-15"}

	const (
		goroutines = 100
		ceiling    = 5
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, ok, err := m.CompareAndIncrement(ctx, key, ceiling)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, ceiling, wins, "exactly ceiling reservations may win")

	consumed, err := m.QuotaConsumed(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ceiling, consumed, "no lost or extra updates")
}

func TestCompareAndIncrementReturnsRunningCount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	key := domain.CounterKey{UserID: "user-1", DayKey: "2025-06-15"}

	for want := 1; want <= 3; want++ {
		consumed, ok, err := m.CompareAndIncrement(ctx, key, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, consumed)
	}

	consumed, ok, err := m.CompareAndIncrement(ctx, key, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, consumed, "denied call reports current count untouched")
}

func TestCompareAndIncrementIsolatesDays(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	today := domain.CounterKey{UserID: "user-1", DayKey: "2025-06-15"}
	tomorrow := domain.CounterKey{UserID: "user-1", DayKey: "2025-06-16"}

	for i := 0; i < 5; i++ {
		_, ok, err := m.CompareAndIncrement(ctx, today, 5)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, _ := m.CompareAndIncrement(ctx, today, 5)
	assert.False(t, ok)

	// A new quota day starts from zero with no reset step.
	consumed, ok, err := m.CompareAndIncrement(ctx, tomorrow, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, consumed)
}

func TestCompareAndIncrementIsolatesUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.CompareAndIncrement(ctx, domain.CounterKey{UserID: "a", DayKey: "2025-06-15"}, 1)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = m.CompareAndIncrement(ctx, domain.CounterKey{UserID: "b", DayKey: "2025-06-15"}, 1)
	require.NoError(t, err)
	assert.True(t, ok, "one user's exhaustion must not affect another")
}

func TestCompareAndIncrementZeroCeiling(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	key := domain.CounterKey{UserID: "user-1", DayKey: "2025-06-15"}

	consumed, ok, err := m.CompareAndIncrement(ctx, key, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, consumed)
}

func TestRaisedCeilingKeepsConsumption(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	key := domain.CounterKey{UserID: "user-1", DayKey: "2025-06-15"}

	for i := 0; i < 5; i++ {
		_, ok, err := m.CompareAndIncrement(ctx, key, 5)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, _ := m.CompareAndIncrement(ctx, key, 5)
	require.False(t, ok)

	// Upgrade mid-day: consumption carries over against the new ceiling.
	consumed, ok, err := m.CompareAndIncrement(ctx, key, 200)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, consumed)
}

func TestPruneCountersBefore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	old := domain.CounterKey{UserID: "u", DayKey: "2025-06-10"}
	current := domain.CounterKey{UserID: "u", DayKey: "2025-06-15"}
	m.CompareAndIncrement(ctx, old, 5)
	m.CompareAndIncrement(ctx, current, 5)

	pruned, err := m.PruneCountersBefore(ctx, "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	consumed, err := m.QuotaConsumed(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, 1, consumed)
}

func TestRecordEventIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ev := &domain.WebhookEvent{EventID: "evt-1", State: "COMPLETE", APIRef: "ref-1", ReceivedAt: time.Now()}

	inserted, err := m.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = m.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted)

	seen, err := m.EventSeen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = m.EventSeen(ctx, "evt-2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestLatestPendingCheckout(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	older := &domain.Checkout{
		ID: uuid.New(), UserID: "u", Plan: domain.PlanPremium,
		Reference: "ref-old", Status: domain.CheckoutStatusPending,
		CreatedAt: now.Add(-time.Hour),
	}
	newer := &domain.Checkout{
		ID: uuid.New(), UserID: "u", Plan: domain.PlanPremium,
		Reference: "ref-new", Status: domain.CheckoutStatusPending,
		CreatedAt: now,
	}
	settled := &domain.Checkout{
		ID: uuid.New(), UserID: "u", Plan: domain.PlanPremium,
		Reference: "ref-done", Status: domain.CheckoutStatusSuccess,
		CreatedAt: now.Add(time.Hour),
	}
	require.NoError(t, m.CreateCheckout(ctx, older))
	require.NoError(t, m.CreateCheckout(ctx, newer))
	require.NoError(t, m.CreateCheckout(ctx, settled))

	got, err := m.LatestPendingCheckout(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "ref-new", got.Reference)

	_, err = m.LatestPendingCheckout(ctx, "nobody")
	assert.True(t, IsNotFound(err))
}

func TestMarkCheckoutStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	co := &domain.Checkout{
		ID: uuid.New(), UserID: "u", Plan: domain.PlanPremium,
		Reference: "ref-1", Status: domain.CheckoutStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, m.CreateCheckout(ctx, co))

	require.NoError(t, m.MarkCheckoutStatus(ctx, co.ID, domain.CheckoutStatusSuccess))

	got, err := m.CheckoutByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusSuccess, got.Status)

	err = m.MarkCheckoutStatus(ctx, uuid.New(), domain.CheckoutStatusFailed)
	assert.True(t, IsNotFound(err))
}

func TestSubscriptionsDueForExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	lapsedOld := now.Add(-48 * time.Hour)
	lapsedNew := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, m.UpsertSubscription(ctx, &domain.Subscription{
		UserID: "lapsed-old", Plan: domain.PlanPremium,
		Status: domain.SubscriptionStatusActive, ExpiresAt: &lapsedOld,
	}))
	require.NoError(t, m.UpsertSubscription(ctx, &domain.Subscription{
		UserID: "lapsed-new", Plan: domain.PlanPremium,
		Status: domain.SubscriptionStatusActive, ExpiresAt: &lapsedNew,
	}))
	require.NoError(t, m.UpsertSubscription(ctx, &domain.Subscription{
		UserID: "current", Plan: domain.PlanPremium,
		Status: domain.SubscriptionStatusActive, ExpiresAt: &future,
	}))
	require.NoError(t, m.UpsertSubscription(ctx, &domain.Subscription{
		UserID: "expired-already", Plan: domain.PlanPremium,
		Status: domain.SubscriptionStatusExpired, ExpiresAt: &lapsedOld,
	}))

	due, err := m.SubscriptionsDueForExpiry(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "lapsed-old", due[0].UserID)
	assert.Equal(t, "lapsed-new", due[1].UserID)

	due, err = m.SubscriptionsDueForExpiry(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "lapsed-old", due[0].UserID)
}

func TestRecentMoodEntries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now()

	for i, label := range []string{"sadness", "joy", "calm"} {
		require.NoError(t, m.InsertMoodEntry(ctx, &domain.MoodEntry{
			ID: uuid.New(), UserID: "u", Label: label,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := m.RecentMoodEntries(ctx, "u", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "calm", entries[0].Label)
	assert.Equal(t, "joy", entries[1].Label)
}
