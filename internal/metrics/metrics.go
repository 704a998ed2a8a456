package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestDocuments counts per-document ingestion outcomes:
	// uploaded, split, skipped, failed.
	IngestDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copium_ingest_documents_total",
		Help: "Documents processed by ingestion, by outcome",
	}, []string{"outcome"})

	// IngestSplitParts counts parts uploaded from split documents.
	IngestSplitParts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copium_ingest_split_parts_total",
		Help: "Split document parts uploaded",
	})

	// GenerationJobs counts jobs that reached a terminal status.
	GenerationJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copium_generation_jobs_total",
		Help: "Generation jobs finished, by terminal status",
	}, []string{"status"})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "copium_generation_duration_seconds",
		Help:    "Wall time of a generation job from claim to terminal status",
		Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17m
	})

	ReadinessPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copium_generation_readiness_polls_total",
		Help: "Document status polls issued while waiting for indexing",
	})

	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copium_memory_session_transitions_total",
		Help: "Memory session resolutions, by resulting state",
	}, []string{"state"})
)
