// Package postgres provides a PostgreSQL-backed statestore.Store
// implementation using pgx, for deployments that already carry a relational
// database and want the subscription cache queryable alongside it.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/billingkit/billingkit/pkg/gateway"
	"github.com/billingkit/billingkit/pkg/statestore"
)

// Store implements statestore.Store on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Postgres-backed store. Run Migrate first to ensure the
// schema exists.
func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("statestore/postgres: pool is required")
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Read(ctx context.Context, userID uuid.UUID) (*statestore.Record, error) {
	const query = `
		SELECT subscription_id, plan_id, status, payment_method,
		       start_date, next_billing_date, source, synced_at
		FROM subscription_cache
		WHERE user_id = $1`

	var (
		record          statestore.Record
		status, method  string
		source          string
		startDate       *time.Time
		nextBillingDate *time.Time
	)

	row := s.pool.QueryRow(ctx, query, userID)
	err := row.Scan(
		&record.Subscription.ID,
		&record.Subscription.PlanID,
		&status,
		&method,
		&startDate,
		&nextBillingDate,
		&source,
		&record.SyncedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, statestore.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	record.Subscription.UserID = userID
	record.Subscription.Status = gateway.SubscriptionStatus(status)
	record.Subscription.PaymentMethod = gateway.BillingMethod(method)
	if startDate != nil {
		record.Subscription.StartDate = *startDate
	}
	if nextBillingDate != nil {
		record.Subscription.NextBillingDate = *nextBillingDate
	}
	record.Source = statestore.Source(source)

	return &record, nil
}

func (s *Store) Write(ctx context.Context, userID uuid.UUID, record *statestore.Record) error {
	if record == nil {
		return statestore.ErrInvalidRecord
	}

	const query = `
		INSERT INTO subscription_cache (
			user_id, subscription_id, plan_id, status, payment_method,
			start_date, next_billing_date, source, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			subscription_id   = EXCLUDED.subscription_id,
			plan_id           = EXCLUDED.plan_id,
			status            = EXCLUDED.status,
			payment_method    = EXCLUDED.payment_method,
			start_date        = EXCLUDED.start_date,
			next_billing_date = EXCLUDED.next_billing_date,
			source            = EXCLUDED.source,
			synced_at         = EXCLUDED.synced_at`

	_, err := s.pool.Exec(ctx, query,
		userID,
		record.Subscription.ID,
		record.Subscription.PlanID,
		string(record.Subscription.Status),
		string(record.Subscription.PaymentMethod),
		nullableTime(record.Subscription.StartDate),
		nullableTime(record.Subscription.NextBillingDate),
		string(record.Source),
		record.SyncedAt,
	)
	return err
}

func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM subscription_cache WHERE user_id = $1`, userID)
	return err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
