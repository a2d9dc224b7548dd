// Package reconcile drives a subscription checkout from intent to a single
// authoritative outcome by reconciling payment-gateway truth against a local
// cache.
//
// The engine treats the gateway as the source of truth and the local store as
// an advisory mirror. Every run recomputes its verdict from live gateway
// state; cached records are only written on Active outcomes and only attached
// as advisory context otherwise.
//
// A run moves through an explicit state machine: customer resolution,
// subscription creation, payment polling, then exactly one of four terminal
// outcomes. Active means the payment confirmed. Pending means the
// subscription verifiably exists and awaits a payment that has not failed.
// Failed means a step or the payment terminally failed. Unknown means the
// evidence is ambiguous, for example the gateway went unreachable mid-call or
// the payment was still pending when polling stopped; Unknown must never be
// rendered to users as a failure.
//
// A missing tax ID is a suspension, not an outcome: Subscribe returns
// ErrNeedsTaxID and the caller re-invokes once the user supplied one.
// Concurrent Subscribe calls for the same user coalesce onto one in-flight
// run, so the gateway never sees duplicate subscriptions.
//
// Usage:
//
//	engine, err := reconcile.New(ctx,
//		reconcile.NewYAMLSource(catalogFile),
//		gatewayClient,
//		store,
//		reconcile.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	result, err := engine.Subscribe(ctx, user, "plan_pro", gateway.BillingMethodPix)
//	switch {
//	case errors.Is(err, reconcile.ErrNeedsTaxID):
//		// prompt for CPF/CNPJ and re-invoke
//	case err != nil:
//		return err
//	}
//	switch result.Outcome {
//	case reconcile.OutcomeActive:
//		// unlock the product
//	case reconcile.OutcomePending, reconcile.OutcomeUnknown:
//		// show "payment processing", offer PollExisting later
//	case reconcile.OutcomeFailed:
//		// show the failure, offer retry
//	}
package reconcile
