package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successfully processed incidents.
	OutcomeSuccess = "success"
	// OutcomeError labels incidents whose processing failed.
	OutcomeError = "error"
)

var (
	incidentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsforge_analytics",
			Name:      "incidents_total",
			Help:      "Total number of incidents processed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	incidentDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opsforge_analytics",
			Name:      "incident_seconds",
			Help:      "Incident processing latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	alertsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opsforge_analytics",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts folded into an incident cluster as duplicates of the root cause.",
		},
	)

	forecastSeriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsforge_analytics",
			Name:      "forecast_series_total",
			Help:      "Metric series seen by the forecaster, partitioned by fitted vs skipped.",
		},
		[]string{"state"},
	)

	suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsforge_analytics",
			Name:      "suggestions_total",
			Help:      "Learned selection lookups, partitioned by served vs declined.",
		},
		[]string{"state"},
	)

	thresholdAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsforge_analytics",
			Name:      "threshold_adjustments_total",
			Help:      "Engagement threshold shifts driven by outcome history, by direction.",
		},
		[]string{"direction"},
	)

	outcomesRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opsforge_analytics",
			Name:      "outcomes_recorded_total",
			Help:      "Selection outcome observations appended to the history store.",
		},
	)
)

// Register attaches the engine's collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		incidentsTotal,
		incidentDurationSeconds,
		alertsSuppressedTotal,
		forecastSeriesTotal,
		suggestionsTotal,
		thresholdAdjustmentsTotal,
		outcomesRecordedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIncident records a processing duration and outcome label.
func ObserveIncident(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	incidentsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	incidentDurationSeconds.Observe(duration.Seconds())
}

// AddSuppressedAlerts counts alerts suppressed as cluster duplicates.
func AddSuppressedAlerts(n int) {
	if n > 0 {
		alertsSuppressedTotal.Add(float64(n))
	}
}

// ObserveForecastSeries counts fitted and skipped series in a batch.
func ObserveForecastSeries(fitted, skipped int) {
	if fitted > 0 {
		forecastSeriesTotal.WithLabelValues("fitted").Add(float64(fitted))
	}
	if skipped > 0 {
		forecastSeriesTotal.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// ObserveSuggestion counts whether a learned suggestion was served.
func ObserveSuggestion(served bool) {
	state := "declined"
	if served {
		state = "served"
	}
	suggestionsTotal.WithLabelValues(state).Inc()
}

// ObserveThresholdAdjustment counts a history-driven threshold shift.
func ObserveThresholdAdjustment(base, adjusted int) {
	switch {
	case adjusted < base:
		thresholdAdjustmentsTotal.WithLabelValues("lowered").Inc()
	case adjusted > base:
		thresholdAdjustmentsTotal.WithLabelValues("raised").Inc()
	}
}

// ObserveOutcomeRecorded counts a history append.
func ObserveOutcomeRecorded() {
	outcomesRecordedTotal.Inc()
}
