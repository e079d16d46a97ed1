// Copyright 2025 Certen Protocol
//
// Package metrics exposes Prometheus counters and histograms for commit
// outcomes and validation latency, served over promhttp.Handler().
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsAccepted counts ACCEPTed commits, labeled by container_id.
	CommitsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ubl_commits_accepted_total",
		Help: "Total number of LinkCommit submissions accepted by the membrane.",
	}, []string{"container_id"})

	// CommitsRejected counts rejected commits, labeled by container_id and
	// the membrane reject code (V1_INVALID_VERSION, V5_SEQUENCE_MISMATCH, ...).
	CommitsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ubl_commits_rejected_total",
		Help: "Total number of LinkCommit submissions rejected by the membrane, by reject code.",
	}, []string{"container_id", "code"})

	// ValidationDuration measures how long a commit request's Store.Commit
	// call takes: waiting for the container lock, canonicalization, membrane
	// validation, and, for an accepted commit, the storage writes.
	ValidationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ubl_validation_duration_seconds",
		Help:    "Time spent committing a LinkCommit, including membrane validation and, when accepted, persistence.",
		Buckets: prometheus.DefBuckets,
	}, []string{"container_id"})

	// StorageErrors counts KV failures encountered by the ledger engine.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ubl_storage_errors_total",
		Help: "Total number of storage failures encountered while committing or reading state.",
	}, []string{"container_id", "op"})
)
