package reconcile

import (
	"github.com/google/uuid"

	"github.com/billingkit/billingkit/pkg/gateway"
	"github.com/billingkit/billingkit/pkg/statestore"
)

// Outcome is the single authoritative verdict of a reconciliation run.
type Outcome string

const (
	// OutcomeActive means the gateway confirmed the payment; the local cache
	// has been updated.
	OutcomeActive Outcome = "active"
	// OutcomePending means the subscription verifiably exists at the gateway
	// and is awaiting a payment that has not failed. Render as "pending".
	OutcomePending Outcome = "pending"
	// OutcomeFailed means the payment or a creation step failed terminally.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnknown means the run ended with ambiguous evidence: the
	// payment may still confirm, or a creation call died mid-flight. Render
	// as "pending, check back", never as a failure.
	OutcomeUnknown Outcome = "unknown"
)

// User is the caller-side identity handed to Subscribe. CustomerID carries
// the gateway customer ID when the user already has one; TaxID may be empty,
// in which case subscribing suspends with ErrNeedsTaxID.
type User struct {
	ID         uuid.UUID
	Name       string
	Email      string
	TaxID      string
	CustomerID string
}

// Diagnostic carries the raw failure evidence alongside an outcome so that
// operators can tell the terminal paths apart without re-running anything.
type Diagnostic struct {
	State      State             // state in which the run ended
	ErrorKind  gateway.ErrorKind // classification of the underlying gateway error, if any
	ReasonCode string            // gateway reason code, if any
	Message    string
}

// Result is produced once per reconciliation run. It is recomputed from
// gateway truth on every run and never persisted.
type Result struct {
	Outcome      Outcome
	Subscription *gateway.SubscriptionRecord // set when the run established an authoritative record
	// LastKnown is the cached record attached as advisory-only context on
	// Failed/Unknown outcomes. It was NOT written by this run.
	LastKnown  *statestore.Record
	Diagnostic *Diagnostic
}
