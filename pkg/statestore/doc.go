// Package statestore defines the durable client-side cache of the last-known
// subscription snapshot, used as a degraded-mode fallback when the gateway is
// unreachable.
//
// The cache is never a substitute for a successful reconciliation decision:
// readers receive a Snapshot carrying an explicit staleness flag, and a
// record older than the configured threshold must be treated as advisory
// display data only. The reconciliation engine is the sole writer; a run that
// ends in a failed or ambiguous outcome leaves the cache untouched so stale
// truth is never overwritten by a worse guess.
//
// Backends live in subpackages behind the Store interface: memory (tests and
// single-process use), redis and postgres. Swapping backends does not touch
// the engine.
package statestore
