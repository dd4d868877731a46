package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vibematch"

// Ranking outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeTargetNotFound = "target_not_found"
	OutcomeError          = "error"
)

// Ranking Prometheus metrics.
var (
	RankingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_requests_total",
			Help:      "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RankingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Time spent scoring and ordering candidates",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)

	RankingCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_candidates",
			Help:      "Candidates per request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"stage"}, // "supplied" / "eligible"
	)

	RecommendationsServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_served_total",
			Help:      "Total number of recommended users returned",
		},
	)

	HistoryWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_write_failures_total",
			Help:      "Exposure ledger appends that failed after ranking succeeded",
		},
	)

	// Streams are append-only; this tracks how much each read has to fold.
	ExposureLedgerEntries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exposure_ledger_entries",
			Help:      "Stream entries read per exposure ledger load",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

var rankMetricsOnce sync.Once

// RegisterRankingMetrics registers ranking metrics on the default registry. Safe to call repeatedly.
func RegisterRankingMetrics() {
	rankMetricsOnce.Do(func() {
		prometheus.MustRegister(
			RankingRequestsTotal,
			RankingDuration,
			RankingCandidates,
			RecommendationsServedTotal,
			HistoryWriteFailuresTotal,
			ExposureLedgerEntries,
		)
	})
}
