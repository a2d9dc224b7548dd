package reconcile

import "errors"

var (
	// ErrNeedsTaxID signals a legitimate suspension point, not a failure:
	// the user must supply a tax ID (CPF/CNPJ) before a subscription can be
	// created. Callers should prompt for it and re-invoke Subscribe.
	ErrNeedsTaxID = errors.New("reconcile: tax ID required before subscribing")

	ErrPlanNotFound             = errors.New("reconcile: plan not found")
	ErrInvalidPlanConfiguration = errors.New("reconcile: invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("reconcile: failed to load plans")
	ErrBillingMethodNotAllowed  = errors.New("reconcile: billing method not allowed for plan")
)
