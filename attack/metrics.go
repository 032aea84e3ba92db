package attack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("geffe.attack")

var (
	// runsTotal counts attacks by outcome.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geffe_attack_runs_total",
		Help: "Total attacks by result",
	}, []string{"result"})

	// stageDuration tracks how long each pipeline stage takes.
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geffe_attack_stage_duration_seconds",
		Help:    "Attack stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"stage"})

	// survivors tracks how many candidates or pairs each stage keeps.
	survivors = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geffe_attack_survivors",
		Help:    "Candidates or pairs kept per stage",
		Buckets: []float64{0, 1, 2, 5, 10, 100, 1000, 10000, 100000},
	}, []string{"stage"})

	// cacheLookups counts candidate cache hits and misses.
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geffe_attack_cache_lookups_total",
		Help: "Candidate cache lookups by result",
	}, []string{"result"})
)
