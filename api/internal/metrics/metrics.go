package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess     = "success"
	OutcomeAnalysisErr = "analysis_error"
	OutcomeConfigErr   = "config_error"
)

var (
	once sync.Once

	// AnalysesTotal counts finished analyses by engine and outcome.
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chartsignal",
		Subsystem: "analysis",
		Name:      "requests_total",
		Help:      "Total number of chart analyses, labeled by engine and outcome.",
	}, []string{"engine", "outcome"})

	// AnalysisDurationSeconds is the wall time of one remote model call.
	AnalysisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chartsignal",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Time spent in one model call, including decoding.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"engine", "outcome"})

	// SignalsTotal counts returned signals by direction and class.
	SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chartsignal",
		Subsystem: "analysis",
		Name:      "signals_total",
		Help:      "Signals returned by the model, labeled by signal and signal type.",
	}, []string{"signal", "signal_type"})

	InconsistentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chartsignal",
		Subsystem: "analysis",
		Name:      "inconsistent_results_total",
		Help:      "Results that departed from the signal protocol (served with warnings).",
	}, []string{"engine"})

	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chartsignal",
		Subsystem: "analysis",
		Name:      "in_flight",
		Help:      "Analyses currently waiting for the model.",
	})

	// RejectedTotal counts uploads refused before any engine call: unsupported
	// or corrupt images and bodies over the upload limit.
	RejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chartsignal",
		Subsystem: "intake",
		Name:      "rejected_total",
		Help:      "Images rejected before analysis, labeled by front-end.",
	}, []string{"source"})

	JournalErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chartsignal",
		Subsystem: "journal",
		Name:      "write_errors_total",
		Help:      "Failed writes to the analysis journal.",
	})
)

// Register registers the collectors with the default registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			AnalysisDurationSeconds,
			SignalsTotal,
			InconsistentTotal,
			InFlight,
			RejectedTotal,
			JournalErrorsTotal,
		)
	})
}

// ObserveAnalysis records one finished call.
func ObserveAnalysis(engine, outcome string, took time.Duration) {
	AnalysesTotal.WithLabelValues(engine, outcome).Inc()
	AnalysisDurationSeconds.WithLabelValues(engine, outcome).Observe(took.Seconds())
}

// ObserveRejected records one upload refused by intake.
func ObserveRejected(source string) {
	RejectedTotal.WithLabelValues(source).Inc()
}
