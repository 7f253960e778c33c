package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Evaluated document pairs and submissions by source and status",
		},
		[]string{"source", "status"},
	)

	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_failures_total",
			Help: "Completions from which no evaluation record could be extracted",
		},
		[]string{"reason"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_duration_seconds",
			Help:    "Latency of completion endpoint calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)

	ScoreMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_mismatches_total",
			Help: "Records whose reported weighted scores or total disagreed with the rubric",
		},
	)

	UploadsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "uploads_active",
			Help: "Upload batches currently being evaluated",
		},
	)
)
