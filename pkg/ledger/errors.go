// Copyright 2025 Certen Protocol
//
// Package ledger owns the per-container append-only chain: sequence and
// hash chaining, derived state, and Merkle anchoring.
package ledger

import "errors"

// Sentinel errors surfaced by Store when the underlying KV cannot satisfy
// a read or write. Validation rejections are never reported as Go errors
// — they come back as a membrane.Decision so a REJECTED commit can never
// be confused with a transient failure.
var (
	// ErrStorageUnavailable wraps any KV failure encountered while loading
	// or persisting container state.
	ErrStorageUnavailable = errors.New("ledger: storage unavailable")
)
