package statestore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/billingkit/billingkit/pkg/gateway"
)

// DefaultStalenessThreshold is the maximum age of a cached record before it
// must be treated as advisory-only rather than authoritative.
const DefaultStalenessThreshold = 24 * time.Hour

// Source records what kind of evidence backed a write, so that operator
// overrides remain distinguishable from gateway-confirmed state in audits.
type Source string

const (
	// SourceGateway means the record mirrors a confirming gateway read.
	SourceGateway Source = "gateway"
	// SourceForced means an operator asserted the record without any gateway
	// confirmation (recovery.ForceActivate).
	SourceForced Source = "forced"
)

// Record is the locally cached mirror of a user's subscription. The
// authoritative copy lives at the gateway; this one exists so the UI can show
// something when the gateway or backend is unreachable.
type Record struct {
	Subscription gateway.SubscriptionRecord `json:"subscription"`
	Source       Source                     `json:"source"`
	SyncedAt     time.Time                  `json:"synced_at"` // when the mirror was last written from evidence
}

// Store is the narrow persistence interface for cached subscription state.
// Pure key-value semantics keyed by user ID, no network assumptions beyond
// what the backend itself needs.
//
// The engine is the only writer; UI collaborators are readers.
type Store interface {
	// Read returns the cached record for a user.
	// Returns ErrRecordNotFound when nothing is cached.
	Read(ctx context.Context, userID uuid.UUID) (*Record, error)

	// Write creates or replaces the cached record for a user.
	Write(ctx context.Context, userID uuid.UUID, record *Record) error

	// Clear removes the cached record for a user. Clearing an absent record
	// is not an error.
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Snapshot is the read model handed to UI collaborators: the cached record
// plus an explicit staleness verdict. A stale snapshot must never be rendered
// as a confirmed subscription state.
type Snapshot struct {
	Record *Record
	Age    time.Duration
	Stale  bool
}

// SnapshotAt evaluates a record's staleness against a threshold at a given
// time. A zero threshold falls back to DefaultStalenessThreshold.
func SnapshotAt(record *Record, now time.Time, threshold time.Duration) Snapshot {
	if threshold <= 0 {
		threshold = DefaultStalenessThreshold
	}

	age := now.Sub(record.SyncedAt)
	return Snapshot{
		Record: record,
		Age:    age,
		Stale:  age > threshold,
	}
}
