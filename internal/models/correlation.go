package models

// CorrelationResult summarises the dominant incident cluster found in a batch
// of alerts. Created fresh per correlation call and never persisted by the
// engine itself.
type CorrelationResult struct {
	PrimaryAlertID  string   `json:"primary_alert_id"`
	RelatedAlertIDs []string `json:"related_alert_ids"`
	Confidence      float64  `json:"confidence"`
	RootCause       string   `json:"root_cause"`
	Reasoning       []string `json:"reasoning"`
	SuppressedCount int      `json:"suppressed_count"`
}
