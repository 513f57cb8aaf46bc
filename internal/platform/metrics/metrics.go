package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cocoa_evaluation_submissions_total",
		Help: "Total evaluation submissions received, by outcome",
	}, []string{"status"})

	rankingRecomputesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cocoa_ranking_recomputes_total",
		Help: "Total leaderboard recomputes committed",
	})

	rankingRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cocoa_ranking_recompute_duration_seconds",
		Help:    "Time to recompute one contest leaderboard",
		Buckets: prometheus.DefBuckets,
	})

	outliersDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cocoa_outliers_detected_total",
		Help: "Judge scores flagged as outliers during recomputes",
	})
)

func ObserveSubmission(status string) {
	evaluationSubmissionsTotal.WithLabelValues(status).Inc()
}

func IncRecompute() {
	rankingRecomputesTotal.Inc()
}

func ObserveRecomputeDuration(seconds float64) {
	rankingRecomputeDuration.Observe(seconds)
}

func AddOutliersDetected(n int) {
	outliersDetectedTotal.Add(float64(n))
}
