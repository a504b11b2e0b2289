package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsforge/analytics-engine/internal/utils"
)

// Severity captures alert impact levels, ordered from least to most severe.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of the severity (info=0 .. critical=4).
// Unknown severities rank below info.
func (s Severity) Rank() int {
	if rank, ok := severityRank[s]; ok {
		return rank
	}
	return -1
}

// ParseSeverity maps a string onto a known severity level.
func ParseSeverity(value string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := severityRank[s]; !ok {
		return "", fmt.Errorf("unknown severity %q", value)
	}
	return s, nil
}

// AlertRecord is a single ingested alert. Records are immutable once ingested;
// the analytics core only ever reads them.
type AlertRecord struct {
	ID          string    `json:"alert_id"`
	Title       string    `json:"title"`
	Host        string    `json:"host"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// Validate checks the fields every consumer relies on. Records missing any of
// them are rejected rather than repaired.
func (a AlertRecord) Validate() error {
	if a.ID == "" {
		return utils.NewMalformedInput("alert.Validate", "alert id is required", nil)
	}
	if a.Title == "" {
		return utils.NewMalformedInput("alert.Validate", fmt.Sprintf("alert %s has no title", a.ID), nil)
	}
	if a.Host == "" {
		return utils.NewMalformedInput("alert.Validate", fmt.Sprintf("alert %s has no host", a.ID), nil)
	}
	if a.Timestamp.IsZero() {
		return utils.NewMalformedInput("alert.Validate", fmt.Sprintf("alert %s has no usable timestamp", a.ID), nil)
	}
	return nil
}
