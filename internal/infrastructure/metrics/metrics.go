package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionDecisions counts inbound events by admission verdict and deny reason.
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_admission_decisions_total",
		Help: "Inbound events by admission verdict",
	}, []string{"verdict", "reason"})

	// RateLimited counts events dropped by the per-user rate limit.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_rate_limited_total",
		Help: "Inbound events dropped by the per-user rate limit",
	})

	AlbumsFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_albums_flushed_total",
		Help: "Album batches handed to the order submitter",
	})

	AlbumsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_albums_dropped_total",
		Help: "Album batches dropped unflushed at shutdown",
	})

	AlbumSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_album_size",
		Help:    "Photos per flushed batch",
		Buckets: []float64{1, 2, 3, 5, 10},
	})

	// Submissions counts order submissions by outcome: created, replaced, rejected, failed.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_order_submissions_total",
		Help: "Order submissions by outcome",
	}, []string{"outcome"})

	ReviewerDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_reviewer_deliveries_total",
		Help: "Verification notice deliveries by destination kind and outcome",
	}, []string{"kind", "outcome"})

	VerificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_verification_decisions_total",
		Help: "Reviewer decisions by result",
	}, []string{"result"})
)

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
