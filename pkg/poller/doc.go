// Package poller drives a payment identifier to a terminal status with
// bounded retries and backoff.
//
// After checkout the gateway settles a payment asynchronously: a PIX charge
// usually confirms within seconds, a boleto can take days. The poller gives
// the interactive flow a disciplined way to wait (a fixed attempt budget, a
// linearly growing delay between attempts, and a hard deadline) instead of
// the ad hoc retry loops that tend to accumulate in checkout screens.
//
// The three outcomes are deliberate:
//
//   - OutcomeConfirmed: the money cleared. Returned on the first observation.
//   - OutcomeFailed: the payment reached a terminal failure (overdue,
//     refunded, canceled). These do not self-heal, so polling stops
//     immediately.
//   - OutcomeUnknown: budget or deadline ran out while still pending. This is
//     NOT a failure: the payment may confirm after the client gave up, so
//     callers must render it as "pending, check back" rather than an error.
//
// Unreachable gateway errors are retried within the loop (consuming the
// attempt budget); any other gateway error propagates immediately. Cancelling
// the context stops the poll without reporting a result.
//
// Use InteractiveConfig for checkout screens and ResumeConfig when the user
// returns to the app after paying out-of-band.
package poller
