package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trial outcomes
const (
	OutcomeOK      = "ok"
	OutcomeMissing = "missing"
)

var (
	trialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosim_trials_total",
		Help: "Total simulated trials by generator, analyzer and outcome",
	}, []string{"generator", "analyzer", "outcome"})

	trialDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gosim_trial_duration_seconds",
		Help:    "Time to generate and analyze one trial",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"generator", "analyzer"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosim_runs_total",
		Help: "Total simulation runs by final status",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gosim_run_duration_seconds",
		Help:    "Wall time of a complete simulation run",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gosim_runs_in_flight",
		Help: "Simulation runs currently executing",
	})
)

// ObserveTrial records one finished trial
func ObserveTrial(generator, analyzer string, missing bool, elapsed time.Duration) {
	outcome := OutcomeOK
	if missing {
		outcome = OutcomeMissing
	}
	trialsTotal.WithLabelValues(generator, analyzer, outcome).Inc()
	trialDuration.WithLabelValues(generator, analyzer).Observe(elapsed.Seconds())
}

// RunStarted marks a run in flight and returns the function that completes it
func RunStarted() func(status string) {
	start := time.Now()
	runsInFlight.Inc()
	return func(status string) {
		runsInFlight.Dec()
		runsTotal.WithLabelValues(status).Inc()
		runDuration.Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
