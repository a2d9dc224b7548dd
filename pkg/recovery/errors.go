package recovery

import "errors"

// ErrPaymentMismatch means the payment handed to Rebuild belongs to a
// different subscription. Nothing was written; the mirror is unchanged.
var ErrPaymentMismatch = errors.New("recovery: payment does not belong to subscription")
