package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billingkit/billingkit/pkg/gateway"
	"github.com/billingkit/billingkit/pkg/statestore"
	"github.com/billingkit/billingkit/pkg/statestore/memory"
)

func testRecord(userID uuid.UUID) *statestore.Record {
	return &statestore.Record{
		Subscription: gateway.SubscriptionRecord{
			ID:            "sub_000001",
			UserID:        userID,
			PlanID:        "plan_pro",
			Status:        gateway.SubscriptionActive,
			PaymentMethod: gateway.BillingMethodPix,
		},
		Source:   statestore.SourceGateway,
		SyncedAt: time.Now().UTC(),
	}
}

func TestStore_ReadWriteClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	userID := uuid.New()

	t.Run("read before write returns not found", func(t *testing.T) {
		_, err := store.Read(ctx, userID)
		assert.ErrorIs(t, err, statestore.ErrRecordNotFound)
	})

	t.Run("write then read round-trips", func(t *testing.T) {
		record := testRecord(userID)
		require.NoError(t, store.Write(ctx, userID, record))

		got, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, record.Subscription, got.Subscription)
		assert.Equal(t, statestore.SourceGateway, got.Source)
	})

	t.Run("read returns a copy", func(t *testing.T) {
		got, err := store.Read(ctx, userID)
		require.NoError(t, err)

		got.Subscription.Status = gateway.SubscriptionCanceled

		again, err := store.Read(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, gateway.SubscriptionActive, again.Subscription.Status)
	})

	t.Run("clear removes the record", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, userID))

		_, err := store.Read(ctx, userID)
		assert.ErrorIs(t, err, statestore.ErrRecordNotFound)

		// Clearing again is not an error.
		assert.NoError(t, store.Clear(ctx, userID))
	})

	t.Run("nil record is rejected", func(t *testing.T) {
		err := store.Write(ctx, userID, nil)
		assert.ErrorIs(t, err, statestore.ErrInvalidRecord)
	})
}
