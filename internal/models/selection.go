package models

import "time"

// SelectionObservation records which specialist agents handled an incident
// matching a keyword signature and how well it resolved. Observations are
// append-only; the learner mines the full history per signature.
type SelectionObservation struct {
	Agents         []string  `json:"agents"`
	OutcomeQuality float64   `json:"outcome_quality"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Suggestion is a learned specialist recommendation for a signature.
type Suggestion struct {
	Agents       []string `json:"agents"`
	Confidence   float64  `json:"confidence"`
	Observations int      `json:"observations"`
}
