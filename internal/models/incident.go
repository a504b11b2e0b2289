package models

import "time"

// IncidentRequest bundles the signals for one incident processing pass.
// RelevanceScores are produced upstream (keyword heuristics or an LLM
// selector); the analytics core only learns to bias them.
type IncidentRequest struct {
	IncidentID      string         `json:"incident_id,omitempty"`
	Alerts          []AlertRecord  `json:"alerts"`
	Metrics         []MetricPoint  `json:"metrics,omitempty"`
	RelevanceScores map[string]int `json:"relevance_scores,omitempty"`
	BaseThreshold   int            `json:"base_threshold,omitempty"`

	// ObservedQuality, when set, replays the resolution quality of an already
	// handled incident so the learner can absorb it.
	ObservedQuality *float64 `json:"observed_quality,omitempty"`
}

// IncidentAnalysis is the aggregate outcome of one pipeline pass.
type IncidentAnalysis struct {
	IncidentID       string            `json:"incident_id"`
	Correlation      CorrelationResult `json:"correlation"`
	Forecast         *ForecastSummary  `json:"forecast,omitempty"`
	Signature        []string          `json:"signature"`
	SelectedAgents   []string          `json:"selected_agents"`
	EngagedThreshold int               `json:"engaged_threshold"`
	ProcessedAt      time.Time         `json:"processed_at"`
}
