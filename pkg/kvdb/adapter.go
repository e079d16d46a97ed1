// Copyright 2025 Certen Protocol
//
// Package kvdb adapts a cometbft-db dbm.DB to ledger.KV, so the ledger
// engine can run on an in-memory map, a goleveldb file store, or any other
// dbm.DB backend without caring which. It also recognizes the ledger
// package's own key scheme (ledger:meta:<container_id> and
// ledger:entry:<container_id>:<sequence>) well enough to label storage
// failures by the container they belong to, rather than surfacing them as
// one undifferentiated counter.
package kvdb

import (
	"strings"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/ubl-core/ledger-core/pkg/metrics"
)

const (
	metaPrefix  = "ledger:meta:"
	entryPrefix = "ledger:entry:"
)

// KVAdapter wraps a cometbft-db dbm.DB and exposes the ledger.KV interface.
type KVAdapter struct {
	db dbm.DB
}

// NewKVAdapter creates a new KVAdapter for the given underlying DB.
func NewKVAdapter(db dbm.DB) *KVAdapter {
	return &KVAdapter{db: db}
}

// containerIDFromKey recovers the container_id a ledger key belongs to, so
// a storage failure can be attributed to the container that caused it. Keys
// outside the ledger package's own scheme (e.g. the health probe key) yield
// "_unscoped" rather than an empty label.
func containerIDFromKey(key []byte) string {
	s := string(key)
	switch {
	case strings.HasPrefix(s, metaPrefix):
		return strings.TrimPrefix(s, metaPrefix)
	case strings.HasPrefix(s, entryPrefix):
		// entryKey is "ledger:entry:<container_id>:<sequence>", where
		// <sequence> is 8 raw big-endian bytes that may themselves contain a
		// ':' byte — split on the first ':', not the last, so the raw
		// suffix can never be mistaken for part of the container_id.
		rest := strings.TrimPrefix(s, entryPrefix)
		if i := strings.Index(rest, ":"); i >= 0 {
			return rest[:i]
		}
		return rest
	default:
		return "_unscoped"
	}
}

// Get implements ledger.KV.Get. A nil db reads as an empty store rather than
// failing, matching dbm.DB's own "absent means empty" convention.
func (a *KVAdapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}

	v, err := a.db.Get(key)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(containerIDFromKey(key), "get").Inc()
		return nil, err
	}
	// v may be nil if key not found - that's fine, ledger treats nil as "not present".
	return v, nil
}

// Set implements ledger.KV.Set using SetSync, so a commit's append is
// durable before Store ever publishes the new state to its cache.
func (a *KVAdapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}

	if err := a.db.SetSync(key, value); err != nil {
		metrics.StorageErrors.WithLabelValues(containerIDFromKey(key), "set").Inc()
		return err
	}
	return nil
}
