package statestore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/billingkit/billingkit/pkg/statestore"
)

func TestSnapshotAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("fresh record is not stale", func(t *testing.T) {
		t.Parallel()

		record := &statestore.Record{SyncedAt: now.Add(-time.Hour)}
		snap := statestore.SnapshotAt(record, now, 24*time.Hour)

		assert.False(t, snap.Stale)
		assert.Equal(t, time.Hour, snap.Age)
	})

	t.Run("record older than threshold is stale", func(t *testing.T) {
		t.Parallel()

		record := &statestore.Record{SyncedAt: now.Add(-25 * time.Hour)}
		snap := statestore.SnapshotAt(record, now, 24*time.Hour)

		assert.True(t, snap.Stale)
	})

	t.Run("zero threshold falls back to default", func(t *testing.T) {
		t.Parallel()

		record := &statestore.Record{SyncedAt: now.Add(-23 * time.Hour)}
		snap := statestore.SnapshotAt(record, now, 0)

		assert.False(t, snap.Stale)

		record.SyncedAt = now.Add(-statestore.DefaultStalenessThreshold - time.Minute)
		snap = statestore.SnapshotAt(record, now, 0)
		assert.True(t, snap.Stale)
	})
}
