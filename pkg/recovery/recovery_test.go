package recovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billingkit/billingkit/pkg/gateway"
	"github.com/billingkit/billingkit/pkg/recovery"
	"github.com/billingkit/billingkit/pkg/statestore"
	"github.com/billingkit/billingkit/pkg/statestore/memory"
)

type fakeGateway struct {
	getSubscriptionFn func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error)
	getPaymentFn      func(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error)
}

func (f *fakeGateway) CreateCustomer(ctx context.Context, input gateway.CreateCustomerInput) (*gateway.Customer, error) {
	panic("not used")
}

func (f *fakeGateway) GetCustomer(ctx context.Context, customerID string) (*gateway.Customer, error) {
	panic("not used")
}

func (f *fakeGateway) UpdateCustomer(ctx context.Context, customerID string, input gateway.UpdateCustomerInput) (*gateway.Customer, error) {
	panic("not used")
}

func (f *fakeGateway) CreateSubscription(ctx context.Context, intent gateway.SubscriptionIntent) (*gateway.CreateSubscriptionResult, error) {
	panic("not used")
}

func (f *fakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
	return f.getSubscriptionFn(ctx, subscriptionID)
}

func (f *fakeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	panic("not used")
}

func (f *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error) {
	return f.getPaymentFn(ctx, paymentID)
}

func (f *fakeGateway) ListPayments(ctx context.Context, subscriptionID string, limit int) ([]gateway.PaymentAttempt, error) {
	panic("not used")
}

func TestResync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("overwrites mirror with gateway truth", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getSubscriptionFn: func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
				return &gateway.SubscriptionRecord{ID: subscriptionID, PlanID: "plan_pro", Status: gateway.SubscriptionOverdue}, nil
			},
		}
		store := memory.New()
		require.NoError(t, store.Write(ctx, userID, &statestore.Record{
			Subscription: gateway.SubscriptionRecord{ID: "sub_1", UserID: userID, Status: gateway.SubscriptionActive},
			Source:       statestore.SourceGateway,
			SyncedAt:     time.Now().UTC().Add(-48 * time.Hour),
		}))

		svc := recovery.New(gw, store)
		record, err := svc.Resync(ctx, userID, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionOverdue, record.Subscription.Status)
		assert.Equal(t, statestore.SourceGateway, record.Source)
		assert.Equal(t, userID, record.Subscription.UserID)

		cached, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionOverdue, cached.Subscription.Status)
		assert.WithinDuration(t, time.Now().UTC(), cached.SyncedAt, time.Minute)
	})

	t.Run("missing subscription clears the mirror", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getSubscriptionFn: func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
				return nil, &gateway.Error{Kind: gateway.KindNotFound, Op: "GetSubscription", Message: "not found"}
			},
		}
		store := memory.New()
		require.NoError(t, store.Write(ctx, userID, &statestore.Record{
			Subscription: gateway.SubscriptionRecord{ID: "sub_gone", UserID: userID, Status: gateway.SubscriptionActive},
			Source:       statestore.SourceGateway,
			SyncedAt:     time.Now().UTC(),
		}))

		svc := recovery.New(gw, store)
		_, err := svc.Resync(ctx, userID, "sub_gone")
		require.Error(t, err)
		assert.True(t, gateway.IsNotFound(err))

		_, err = store.Read(ctx, userID)
		require.ErrorIs(t, err, statestore.ErrRecordNotFound)
	})

	t.Run("unreachable gateway leaves the mirror alone", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getSubscriptionFn: func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
				return nil, &gateway.Error{Kind: gateway.KindUnreachable, Op: "GetSubscription", Message: "timeout"}
			},
		}
		store := memory.New()
		require.NoError(t, store.Write(ctx, userID, &statestore.Record{
			Subscription: gateway.SubscriptionRecord{ID: "sub_1", UserID: userID, Status: gateway.SubscriptionActive},
			Source:       statestore.SourceGateway,
			SyncedAt:     time.Now().UTC(),
		}))

		svc := recovery.New(gw, store)
		_, err := svc.Resync(ctx, userID, "sub_1")
		require.Error(t, err)
		assert.True(t, gateway.IsUnreachable(err))

		cached, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "sub_1", cached.Subscription.ID)
	})
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("confirmed payment activates the rebuilt record", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getPaymentFn: func(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error) {
				return &gateway.PaymentAttempt{ID: paymentID, SubscriptionID: "sub_1", Status: gateway.PaymentConfirmed}, nil
			},
			getSubscriptionFn: func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
				return &gateway.SubscriptionRecord{ID: subscriptionID, PlanID: "plan_pro", Status: gateway.SubscriptionPending}, nil
			},
		}
		store := memory.New()

		svc := recovery.New(gw, store)
		record, err := svc.Rebuild(ctx, userID, "sub_1", "pay_1")
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionActive, record.Subscription.Status)
		assert.Equal(t, statestore.SourceGateway, record.Source)
		assert.Equal(t, "plan_pro", record.Subscription.PlanID)
		assert.Equal(t, userID, record.Subscription.UserID)

		cached, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionActive, cached.Subscription.Status)
		assert.Equal(t, "sub_1", cached.Subscription.ID)
	})

	t.Run("unconfirmed payment keeps the gateway status", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getPaymentFn: func(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error) {
				return &gateway.PaymentAttempt{ID: paymentID, SubscriptionID: "sub_1", Status: gateway.PaymentPending}, nil
			},
			getSubscriptionFn: func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
				return &gateway.SubscriptionRecord{ID: subscriptionID, Status: gateway.SubscriptionPending}, nil
			},
		}
		store := memory.New()

		record, err := recovery.New(gw, store).Rebuild(ctx, userID, "sub_1", "pay_1")
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionPending, record.Subscription.Status)

		cached, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionPending, cached.Subscription.Status)
	})

	t.Run("payment from another subscription is rejected", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getPaymentFn: func(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error) {
				return &gateway.PaymentAttempt{ID: paymentID, SubscriptionID: "sub_other", Status: gateway.PaymentConfirmed}, nil
			},
		}
		store := memory.New()

		_, err := recovery.New(gw, store).Rebuild(ctx, userID, "sub_1", "pay_1")
		require.ErrorIs(t, err, recovery.ErrPaymentMismatch)

		_, err = store.Read(ctx, userID)
		require.ErrorIs(t, err, statestore.ErrRecordNotFound)
	})

	t.Run("missing payment propagates without a write", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getPaymentFn: func(ctx context.Context, paymentID string) (*gateway.PaymentAttempt, error) {
				return nil, &gateway.Error{Kind: gateway.KindNotFound, Op: "GetPayment", Message: "not found"}
			},
		}
		store := memory.New()

		_, err := recovery.New(gw, store).Rebuild(ctx, userID, "sub_1", "pay_gone")
		require.Error(t, err)
		assert.True(t, gateway.IsNotFound(err))

		_, err = store.Read(ctx, userID)
		require.ErrorIs(t, err, statestore.ErrRecordNotFound)
	})
}

func TestForceActivate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("writes a forced record", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		svc := recovery.New(&fakeGateway{}, store)

		record, err := svc.ForceActivate(ctx, userID, "plan_pro")
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionActive, record.Subscription.Status)
		assert.Equal(t, statestore.SourceForced, record.Source)
		assert.Equal(t, userID, record.Subscription.UserID)
		assert.Equal(t, "plan_pro", record.Subscription.PlanID)

		cached, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, statestore.SourceForced, cached.Source)
		assert.Equal(t, gateway.SubscriptionActive, cached.Subscription.Status)
	})

	t.Run("later resync overwrites the forced record", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{
			getSubscriptionFn: func(ctx context.Context, subscriptionID string) (*gateway.SubscriptionRecord, error) {
				return &gateway.SubscriptionRecord{ID: subscriptionID, Status: gateway.SubscriptionActive}, nil
			},
		}
		store := memory.New()
		svc := recovery.New(gw, store)

		_, err := svc.ForceActivate(ctx, userID, "plan_pro")
		require.NoError(t, err)

		record, err := svc.Resync(ctx, userID, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, statestore.SourceGateway, record.Source)
	})
}

func TestNewPanicsOnNilDeps(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { recovery.New(nil, memory.New()) })
	assert.Panics(t, func() { recovery.New(&fakeGateway{}, nil) })
}
