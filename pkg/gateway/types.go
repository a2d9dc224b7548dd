package gateway

import (
	"time"

	"github.com/google/uuid"
)

// BillingMethod identifies how a subscription is charged.
type BillingMethod string

const (
	BillingMethodPix    BillingMethod = "PIX"
	BillingMethodCard   BillingMethod = "CARD"
	BillingMethodBoleto BillingMethod = "BOLETO"
)

// PaymentStatus represents the state of a single payment attempt at the gateway.
// The set is open: unrecognized wire values are preserved as-is and callers
// must treat anything outside the known constants as non-terminal/unknown.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCanceled  PaymentStatus = "canceled"
)

// IsTerminal reports whether the payment will not change state without a new
// explicit operation. Unknown statuses are not terminal: the gateway may still
// move them.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentConfirmed, PaymentOverdue, PaymentRefunded, PaymentCanceled:
		return true
	}
	return false
}

// SubscriptionStatus represents the state of a subscription at the gateway.
// Open set: unrecognized wire values map to SubscriptionUnknown.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionOverdue  SubscriptionStatus = "overdue"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionUnknown  SubscriptionStatus = "unknown"
)

// Money represents a monetary amount in the smallest currency unit.
// R$ 49,90 would be Amount: 4990, Currency: "BRL".
type Money struct {
	Amount   int64
	Currency string
}

// Customer is the gateway-side billing profile for a user.
// ID is empty until the customer has been created at the gateway.
// TaxID (CPF/CNPJ) may be absent at signup; a subscription cannot be created
// until it is supplied.
type Customer struct {
	ID     string
	UserID uuid.UUID
	Name   string
	Email  string
	TaxID  string
}

// HasTaxID reports whether the customer can be billed.
func (c *Customer) HasTaxID() bool {
	return c != nil && c.TaxID != ""
}

// CreateCustomerInput carries the fields for customer creation.
type CreateCustomerInput struct {
	UserID uuid.UUID
	Name   string
	Email  string
	TaxID  string // optional; billing is deferred until present
}

// UpdateCustomerInput carries the fields that may be patched after creation,
// typically a tax ID supplied late.
type UpdateCustomerInput struct {
	Name  string
	Email string
	TaxID string
}

// SubscriptionIntent is the ephemeral input to subscription creation. It is
// not persisted beyond the call that produces a SubscriptionRecord.
type SubscriptionIntent struct {
	PlanID        string
	UserID        uuid.UUID
	CustomerID    string
	BillingMethod BillingMethod
	Value         Money
}

// CreateSubscriptionResult is returned by subscription creation: the new
// subscription plus the identifier of the first payment attempt the gateway
// opened for it.
type CreateSubscriptionResult struct {
	SubscriptionID string
	PaymentID      string
	Status         SubscriptionStatus
}

// SubscriptionRecord is the authoritative subscription state as reported by
// the gateway. Local copies of it are advisory mirrors.
type SubscriptionRecord struct {
	ID              string
	UserID          uuid.UUID
	PlanID          string
	Status          SubscriptionStatus
	StartDate       time.Time
	NextBillingDate time.Time
	PaymentMethod   BillingMethod
}

// IsCurrent reports whether this record counts as the user's current
// subscription. At most one non-canceled record per user is current.
func (r *SubscriptionRecord) IsCurrent() bool {
	return r != nil && r.Status != SubscriptionCanceled
}

// PaymentAttempt is a single charge opened by the gateway when a subscription
// is created or renews. It is immutable once in a terminal status.
type PaymentAttempt struct {
	ID             string
	SubscriptionID string
	Value          Money
	Status         PaymentStatus
	DueDate        time.Time
	PaidDate       *time.Time

	// PixPayload holds the copy-and-paste PIX code when the billing method is
	// PIX and the payment is still payable. Empty otherwise.
	PixPayload string
}
