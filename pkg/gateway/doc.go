// Package gateway provides a typed client for the external payment provider's
// customer, subscription and payment endpoints.
//
// The gateway is the system of record for billing: subscriptions and payments
// live there, keyed by opaque string identifiers, and everything this module
// keeps locally is an advisory mirror. The client's job is to make the wire
// API safe to build on: request/response structs instead of raw JSON, status
// strings normalized into open enums, and every failure classified into the
// Error taxonomy (Unreachable, NotFound, Validation, Rejected) so callers can
// decide between retrying and aborting without string-matching error text.
//
// # Error Classification
//
// All operations return *Error values. Use the predicate helpers:
//
//	payment, err := client.GetPayment(ctx, paymentID)
//	switch {
//	case gateway.IsUnreachable(err):
//		// transient - retry with backoff
//	case gateway.IsNotFound(err):
//		// data-linkage problem - do not retry
//	case gateway.IsRejected(err):
//		reason := gateway.ReasonCode(err) // e.g. "missing_cpf"
//	}
//
// Business-rule rejections carry the gateway's reason code; the
// reconciliation engine inspects it to distinguish a recoverable
// missing-tax-ID condition from an unrecoverable rejection.
//
// # Open Status Sets
//
// Gateway status enums are treated as open sets. Unrecognized payment
// statuses are preserved as non-terminal values and unrecognized subscription
// statuses map to SubscriptionUnknown; neither can crash a caller.
//
// # Idempotency
//
// Money-moving POST requests carry a generated Idempotency-Key header so a
// network-level retry of a submit cannot create a duplicate charge.
package gateway
