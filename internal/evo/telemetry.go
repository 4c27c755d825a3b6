package evo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lgp.evo")

var (
	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lgp_generations_total",
		Help: "Total generations completed across all runs",
	})

	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lgp_fitness_evaluations_total",
		Help: "Total program fitness evaluations",
	})

	operatorNoopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lgp_operator_noops_total",
		Help: "Generations whose variation step degraded to a no-op, by operator",
	}, []string{"operator"})

	runsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lgp_runs_active",
		Help: "Evolutionary runs currently executing",
	})

	runBestFitness = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lgp_run_best_fitness",
		Help:    "Best-ever fitness at the end of each run",
		Buckets: prometheus.ExponentialBuckets(1e-6, 10, 12),
	})
)
