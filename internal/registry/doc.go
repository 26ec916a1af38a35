// Package registry implements the authorization core of the POS licensing
// gate: the durable company/device registry and the pure verdict evaluator.
//
// A device row is created exactly once, on first check-in, with status
// PENDING. Status changes only through explicit admin action. Descriptive
// metadata follows a fill-if-empty policy: the first non-empty value wins
// per field, and routine check-ins never overwrite it.
package registry
