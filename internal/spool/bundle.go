// Package spool ingests incident bundles dropped as JSON files into a watched
// directory and writes analysis results next to them.
package spool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsforge/analytics-engine/internal/models"
	"github.com/opsforge/analytics-engine/internal/utils"
)

// Wire representation of a bundle. Timestamps travel as strings so alert
// timestamps can be validated strictly while metric timestamps stay lenient.
type wireBundle struct {
	IncidentID      string         `json:"incident_id"`
	Alerts          []wireAlert    `json:"alerts"`
	Metrics         []wireMetric   `json:"metrics"`
	RelevanceScores map[string]int `json:"relevance_scores"`
	BaseThreshold   int            `json:"base_threshold"`
	ObservedQuality *float64       `json:"observed_quality"`
}

type wireAlert struct {
	ID          string `json:"alert_id"`
	Title       string `json:"title"`
	Host        string `json:"host"`
	Severity    string `json:"severity"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

type wireMetric struct {
	Host      string  `json:"host"`
	Name      string  `json:"metric_name"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// DecodeBundle parses a raw incident bundle. Alert timestamps must be valid
// RFC3339; metric points with unparseable timestamps are kept and stamped with
// the current time, since forecasting only uses them for ordering.
func DecodeBundle(data []byte, logger *slog.Logger) (models.IncidentRequest, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var wire wireBundle
	if err := json.Unmarshal(data, &wire); err != nil {
		return models.IncidentRequest{}, utils.NewMalformedInput("decode_bundle", "invalid JSON", err)
	}

	req := models.IncidentRequest{
		IncidentID:      wire.IncidentID,
		RelevanceScores: wire.RelevanceScores,
		BaseThreshold:   wire.BaseThreshold,
		ObservedQuality: wire.ObservedQuality,
	}

	req.Alerts = make([]models.AlertRecord, 0, len(wire.Alerts))
	for _, a := range wire.Alerts {
		ts, err := utils.ParseStrictTime(a.Timestamp)
		if err != nil {
			return models.IncidentRequest{}, utils.NewMalformedInput("decode_bundle",
				fmt.Sprintf("alert %s has invalid timestamp %q", a.ID, a.Timestamp), err)
		}
		var severity models.Severity
		if a.Severity != "" {
			severity, err = models.ParseSeverity(a.Severity)
			if err != nil {
				return models.IncidentRequest{}, utils.NewMalformedInput("decode_bundle",
					fmt.Sprintf("alert %s: %v", a.ID, err), nil)
			}
		}
		req.Alerts = append(req.Alerts, models.AlertRecord{
			ID:          a.ID,
			Title:       a.Title,
			Host:        a.Host,
			Severity:    severity,
			Timestamp:   ts,
			Description: a.Description,
		})
	}

	now := time.Now().UTC()
	req.Metrics = make([]models.MetricPoint, 0, len(wire.Metrics))
	for _, m := range wire.Metrics {
		ts, ok := utils.ParseLenientTime(m.Timestamp)
		if !ok {
			logger.Debug("metric timestamp unparseable, using now",
				slog.String("host", m.Host),
				slog.String("metric", m.Name),
				slog.String("timestamp", m.Timestamp))
			ts = now
		}
		req.Metrics = append(req.Metrics, models.MetricPoint{
			Host:      m.Host,
			Name:      m.Name,
			Value:     m.Value,
			Timestamp: ts,
		})
	}

	return req, nil
}
