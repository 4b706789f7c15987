package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/moodmate/moodgate/internal/domain"
)

// Postgres is the durable Store. It expects the schema from
// internal/migrations and a database/sql pool on the pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// =============================================================================
// CounterStore
// =============================================================================

// CompareAndIncrement reserves one quota unit in a single upsert: the
// row-level conflict update only fires while consumed is below the
// ceiling, so the compare and the increment are one atomic statement
// and concurrent callers cannot lose updates.
func (p *Postgres) CompareAndIncrement(ctx context.Context, key domain.CounterKey, ceiling int) (int, bool, error) {
	if ceiling < 1 {
		consumed, err := p.QuotaConsumed(ctx, key)
		return consumed, false, err
	}

	const query = `
		INSERT INTO quota_counters (user_id, quota_day, consumed, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (user_id, quota_day) DO UPDATE
		SET consumed = quota_counters.consumed + 1, updated_at = now()
		WHERE quota_counters.consumed < $3
		RETURNING consumed`

	var consumed int
	err := p.db.QueryRowContext(ctx, query, key.UserID, key.DayKey, ceiling).Scan(&consumed)
	if err == sql.ErrNoRows {
		// Conflict update declined: the counter already sits at or above
		// the ceiling. Report the current value without touching it.
		current, gerr := p.QuotaConsumed(ctx, key)
		if gerr != nil {
			return 0, false, gerr
		}
		return current, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment quota counter: %w", err)
	}
	return consumed, true, nil
}

func (p *Postgres) QuotaConsumed(ctx context.Context, key domain.CounterKey) (int, error) {
	const query = `
		SELECT consumed FROM quota_counters
		WHERE user_id = $1 AND quota_day = $2`

	var consumed int
	err := p.db.QueryRowContext(ctx, query, key.UserID, key.DayKey).Scan(&consumed)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quota counter: %w", err)
	}
	return consumed, nil
}

func (p *Postgres) PruneCountersBefore(ctx context.Context, beforeDayKey string) (int, error) {
	const query = `DELETE FROM quota_counters WHERE quota_day < $1`

	res, err := p.db.ExecContext(ctx, query, beforeDayKey)
	if err != nil {
		return 0, fmt.Errorf("prune quota counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune quota counters: %w", err)
	}
	return int(n), nil
}

// =============================================================================
// SubscriptionStore
// =============================================================================

func (p *Postgres) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	const query = `
		SELECT user_id, plan, status, expires_at, renewed_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1`

	var (
		sub       domain.Subscription
		expiresAt sql.NullTime
		renewedAt sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, query, userID).Scan(
		&sub.UserID, &sub.Plan, &sub.Status, &expiresAt, &renewedAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	if renewedAt.Valid {
		sub.RenewedAt = &renewedAt.Time
	}
	return &sub, nil
}

func (p *Postgres) UpsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	const query = `
		INSERT INTO subscriptions (user_id, plan, status, expires_at, renewed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
		    status = EXCLUDED.status,
		    expires_at = EXCLUDED.expires_at,
		    renewed_at = EXCLUDED.renewed_at,
		    updated_at = now()`

	_, err := p.db.ExecContext(ctx, query,
		sub.UserID, sub.Plan, sub.Status,
		toNullTime(sub.ExpiresAt), toNullTime(sub.RenewedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (p *Postgres) SubscriptionsDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*domain.Subscription, error) {
	const query = `
		SELECT user_id, plan, status, expires_at, renewed_at, created_at, updated_at
		FROM subscriptions
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3`

	rows, err := p.db.QueryContext(ctx, query, domain.SubscriptionStatusActive, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()

	var due []*domain.Subscription
	for rows.Next() {
		var (
			sub       domain.Subscription
			expiresAt sql.NullTime
			renewedAt sql.NullTime
		)
		if err := rows.Scan(
			&sub.UserID, &sub.Plan, &sub.Status, &expiresAt, &renewedAt,
			&sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		if expiresAt.Valid {
			sub.ExpiresAt = &expiresAt.Time
		}
		if renewedAt.Valid {
			sub.RenewedAt = &renewedAt.Time
		}
		due = append(due, &sub)
	}
	return due, rows.Err()
}

// =============================================================================
// WebhookEventStore
// =============================================================================

func (p *Postgres) EventSeen(ctx context.Context, eventID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE event_id = $1)`

	var seen bool
	if err := p.db.QueryRowContext(ctx, query, eventID).Scan(&seen); err != nil {
		return false, fmt.Errorf("check event seen: %w", err)
	}
	return seen, nil
}

func (p *Postgres) RecordEvent(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	const query = `
		INSERT INTO webhook_events (event_id, state, api_ref, plan, amount_kes, currency, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`

	payload := pqtype.NullRawMessage{RawMessage: ev.Payload, Valid: len(ev.Payload) > 0}
	res, err := p.db.ExecContext(ctx, query,
		ev.EventID, ev.State, ev.APIRef, ev.Plan, ev.AmountKES, ev.Currency,
		payload, ev.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return n > 0, nil
}

// =============================================================================
// CheckoutStore
// =============================================================================

func (p *Postgres) CreateCheckout(ctx context.Context, co *domain.Checkout) error {
	const query = `
		INSERT INTO checkouts (id, user_id, plan, reference, provider_ref, checkout_url, amount_kes, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`

	payload := pqtype.NullRawMessage{RawMessage: co.Payload, Valid: len(co.Payload) > 0}
	_, err := p.db.ExecContext(ctx, query,
		co.ID, co.UserID, co.Plan, co.Reference, co.ProviderRef,
		co.CheckoutURL, co.AmountKES, co.Status, payload,
	)
	if err != nil {
		return fmt.Errorf("create checkout: %w", err)
	}
	return nil
}

func (p *Postgres) CheckoutByReference(ctx context.Context, reference string) (*domain.Checkout, error) {
	const query = `
		SELECT id, user_id, plan, reference, provider_ref, checkout_url, amount_kes, status, payload, created_at, updated_at
		FROM checkouts
		WHERE reference = $1`

	return p.scanCheckout(p.db.QueryRowContext(ctx, query, reference))
}

func (p *Postgres) LatestPendingCheckout(ctx context.Context, userID string) (*domain.Checkout, error) {
	const query = `
		SELECT id, user_id, plan, reference, provider_ref, checkout_url, amount_kes, status, payload, created_at, updated_at
		FROM checkouts
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	return p.scanCheckout(p.db.QueryRowContext(ctx, query, userID, domain.CheckoutStatusPending))
}

func (p *Postgres) MarkCheckoutStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error {
	const query = `UPDATE checkouts SET status = $2, updated_at = now() WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("mark checkout status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) scanCheckout(row *sql.Row) (*domain.Checkout, error) {
	var (
		co      domain.Checkout
		payload pqtype.NullRawMessage
	)
	err := row.Scan(
		&co.ID, &co.UserID, &co.Plan, &co.Reference, &co.ProviderRef,
		&co.CheckoutURL, &co.AmountKES, &co.Status, &payload,
		&co.CreatedAt, &co.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkout: %w", err)
	}
	if payload.Valid {
		co.Payload = payload.RawMessage
	}
	return &co, nil
}

// =============================================================================
// MoodLogStore
// =============================================================================

func (p *Postgres) InsertMoodEntry(ctx context.Context, entry *domain.MoodEntry) error {
	const query = `
		INSERT INTO mood_logs (id, user_id, label, score, intensity, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := p.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Label, entry.Score,
		entry.Intensity, entry.Note, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	return nil
}

func (p *Postgres) RecentMoodEntries(ctx context.Context, userID string, limit int) ([]*domain.MoodEntry, error) {
	const query = `
		SELECT id, user_id, label, score, intensity, note, created_at
		FROM mood_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list mood entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Label, &e.Score, &e.Intensity, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
