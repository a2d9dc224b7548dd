// Package recovery provides operator-driven repair actions for subscription
// mirrors that drifted from gateway truth.
//
// Three actions with increasing force:
//
//   - Resync overwrites the mirror with a fresh gateway read. Safe to run
//     any time; it cannot invent state the gateway does not report.
//   - Rebuild reconstructs the mirror from a subscription ID and payment ID
//     obtained out-of-band, for when the local user-to-subscription link was
//     lost. The mirror reads Active only when the payment is Confirmed.
//   - ForceActivate writes an active mirror on the operator's authority
//     alone, with no gateway read. Records written this way carry
//     SourceForced so they are always distinguishable in audits, and the
//     write is logged at Warn.
//
// All three are idempotent and safe to retry.
package recovery
