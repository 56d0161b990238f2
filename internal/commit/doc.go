// Package commit binds off-ledger payloads to on-ledger records.
//
// A payload is reduced to a Value tree, serialised as RFC 8785 canonical
// JSON and hashed with SHA-256 under a fixed domain prefix. Field order,
// whitespace and number spelling in the source document do not affect the
// resulting Hash, so two independently produced encodings of the same
// payload commit to the same value.
//
// This package imports nothing internal.
package commit
