// Package engine wires the correlation, forecasting and learned-selection
// stages into a single incident processing pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsforge/analytics-engine/internal/correlation"
	"github.com/opsforge/analytics-engine/internal/forecast"
	"github.com/opsforge/analytics-engine/internal/learning"
	"github.com/opsforge/analytics-engine/internal/metrics"
	"github.com/opsforge/analytics-engine/internal/models"
	"github.com/opsforge/analytics-engine/internal/utils"
)

const latencyLogInterval = 20

// Pipeline runs one incident through correlation, forecasting and agent
// selection. All stages are reentrant, so a single Pipeline serves concurrent
// workers.
type Pipeline struct {
	correlator *correlation.Engine
	forecaster *forecast.Summarizer
	learner    *learning.Learner
	selector   *learning.Selector
	latency    *utils.LatencyTracker
	logger     *slog.Logger
}

// NewPipeline assembles a Pipeline from its stages.
func NewPipeline(
	correlator *correlation.Engine,
	forecaster *forecast.Summarizer,
	learner *learning.Learner,
	selector *learning.Selector,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		correlator: correlator,
		forecaster: forecaster,
		learner:    learner,
		selector:   selector,
		latency:    utils.NewLatencyTracker(512),
		logger:     logger,
	}
}

// Process analyses one incident request. Missing incident IDs are assigned.
// Forecasting runs only when the request carries metric points; correlation
// failures abort the pass.
func (p *Pipeline) Process(ctx context.Context, req models.IncidentRequest) (models.IncidentAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return models.IncidentAnalysis{}, err
	}

	start := time.Now()
	incidentID := req.IncidentID
	if incidentID == "" {
		incidentID = newIncidentID()
	}

	corr, err := p.correlator.Correlate(req.Alerts)
	if err != nil {
		metrics.ObserveIncident(time.Since(start), metrics.OutcomeError)
		return models.IncidentAnalysis{}, fmt.Errorf("correlate incident %s: %w", incidentID, err)
	}
	metrics.AddSuppressedAlerts(corr.SuppressedCount)

	var summary *models.ForecastSummary
	if len(req.Metrics) > 0 {
		s := p.forecaster.Summarize(req.Metrics)
		summary = &s
		metrics.ObserveForecastSeries(len(s.Series), countSkippedSeries(req.Metrics, len(s.Series)))
	}

	signature := learning.Signature(req.Alerts)
	agents, threshold := p.selector.Select(ctx, signature, req.RelevanceScores, req.BaseThreshold)

	elapsed := time.Since(start)
	p.latency.Observe(elapsed)
	metrics.ObserveIncident(elapsed, metrics.OutcomeSuccess)

	p.logger.Info("incident processed",
		slog.String("incident_id", incidentID),
		slog.Int("alerts", len(req.Alerts)),
		slog.Int("suppressed", corr.SuppressedCount),
		slog.Any("agents", agents),
		slog.Int("threshold", threshold),
		slog.Duration("took", elapsed))
	if n := p.latency.Count(); n >= latencyLogInterval && n%latencyLogInterval == 0 {
		p.logger.Info("incident latency window",
			slog.Duration("p50", p.latency.Percentile(50)),
			slog.Duration("p95", p.latency.Percentile(95)),
			slog.Int("samples", n))
	}

	return models.IncidentAnalysis{
		IncidentID:       incidentID,
		Correlation:      corr,
		Forecast:         summary,
		Signature:        signature,
		SelectedAgents:   agents,
		EngagedThreshold: threshold,
		ProcessedAt:      time.Now().UTC(),
	}, nil
}

// RecordOutcome feeds the resolution quality of a processed incident back into
// the selection learner.
func (p *Pipeline) RecordOutcome(ctx context.Context, analysis models.IncidentAnalysis, quality float64) error {
	if err := p.learner.RecordOutcome(ctx, analysis.Signature, analysis.SelectedAgents, quality); err != nil {
		return fmt.Errorf("record outcome for %s: %w", analysis.IncidentID, err)
	}
	metrics.ObserveOutcomeRecorded()
	return nil
}

func newIncidentID() string {
	return "INC-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// countSkippedSeries reports how many (host, metric) groups fell below the
// forecaster's minimum sample count.
func countSkippedSeries(points []models.MetricPoint, fitted int) int {
	type key struct{ host, metric string }
	distinct := make(map[key]struct{}, len(points))
	for _, p := range points {
		distinct[key{p.Host, p.Name}] = struct{}{}
	}
	if skipped := len(distinct) - fitted; skipped > 0 {
		return skipped
	}
	return 0
}
