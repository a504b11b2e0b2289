package models

import "time"

// ForecastResult holds the fitted trajectory for one (host, metric) series.
// Forecast carries at most the display cap worth of points; the underlying
// model horizon may be longer.
type ForecastResult struct {
	Host         string    `json:"host"`
	Metric       string    `json:"metric"`
	LastValue    float64   `json:"last_value"`
	Trend        float64   `json:"trend"`
	Forecast     []float64 `json:"forecast"`
	AnomalyScore float64   `json:"anomaly_score"`
}

// ForecastSummary aggregates per-series forecasts for a metric batch.
type ForecastSummary struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Horizon      int              `json:"horizon"`
	Series       []ForecastResult `json:"series"`
	TopAnomalies []ForecastResult `json:"top_anomalies"`
	Capped       bool             `json:"capped"`
}
