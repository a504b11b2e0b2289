package engine

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/opsforge/analytics-engine/internal/correlation"
	"github.com/opsforge/analytics-engine/internal/forecast"
	"github.com/opsforge/analytics-engine/internal/learning"
	"github.com/opsforge/analytics-engine/internal/models"
	"github.com/opsforge/analytics-engine/internal/store"
	"github.com/opsforge/analytics-engine/internal/utils"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	summarizer, err := forecast.NewSummarizer(forecast.SummarizerConfig{}, nil)
	if err != nil {
		t.Fatalf("summarizer: %v", err)
	}
	learner := learning.NewLearner(learning.Config{}, store.NewMemoryStore(0), nil)
	selector := learning.NewSelector(learning.SelectorConfig{}, learner, nil)
	return NewPipeline(correlation.NewEngine(correlation.Config{}, nil), summarizer, learner, selector, nil)
}

func testAlerts(base time.Time) []models.AlertRecord {
	return []models.AlertRecord{
		{ID: "A1", Title: "Database connection timeout", Host: "db1", Severity: models.SeverityCritical, Timestamp: base},
		{ID: "A2", Title: "Database replication lag", Host: "db1", Severity: models.SeverityHigh, Timestamp: base.Add(30 * time.Second)},
		{ID: "A3", Title: "Web latency spike", Host: "web1", Severity: models.SeverityMedium, Timestamp: base.Add(10 * time.Minute)},
	}
}

func TestProcessAssignsIncidentID(t *testing.T) {
	p := newTestPipeline(t)

	analysis, err := p.Process(context.Background(), models.IncidentRequest{
		Alerts: testAlerts(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.HasPrefix(analysis.IncidentID, "INC-") {
		t.Fatalf("expected generated incident id, got %q", analysis.IncidentID)
	}
	if analysis.ProcessedAt.IsZero() {
		t.Fatalf("expected processed timestamp")
	}
}

func TestProcessKeepsProvidedIncidentID(t *testing.T) {
	p := newTestPipeline(t)

	analysis, err := p.Process(context.Background(), models.IncidentRequest{
		IncidentID: "INC-known",
		Alerts:     testAlerts(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if analysis.IncidentID != "INC-known" {
		t.Fatalf("expected provided id to survive, got %q", analysis.IncidentID)
	}
}

func TestProcessCorrelatesAndSelects(t *testing.T) {
	p := newTestPipeline(t)

	analysis, err := p.Process(context.Background(), models.IncidentRequest{
		Alerts:          testAlerts(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		RelevanceScores: map[string]int{"AlertOps": 80, "PatchOps": 10},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if analysis.Correlation.PrimaryAlertID != "A1" {
		t.Fatalf("expected earliest clustered alert as primary, got %q", analysis.Correlation.PrimaryAlertID)
	}
	if !reflect.DeepEqual(analysis.Correlation.RelatedAlertIDs, []string{"A2"}) {
		t.Fatalf("unexpected related alerts %v", analysis.Correlation.RelatedAlertIDs)
	}
	if analysis.Forecast != nil {
		t.Fatalf("expected no forecast without metric points")
	}
	expected := []string{"Orchestrator", "AlertOps"}
	if !reflect.DeepEqual(analysis.SelectedAgents, expected) {
		t.Fatalf("expected %v, got %v", expected, analysis.SelectedAgents)
	}
	if analysis.EngagedThreshold != 60 {
		t.Fatalf("expected default threshold, got %d", analysis.EngagedThreshold)
	}
}

func TestProcessForecastsWhenMetricsPresent(t *testing.T) {
	p := newTestPipeline(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	points := make([]models.MetricPoint, 0, 6)
	for i := 0; i < 6; i++ {
		points = append(points, models.MetricPoint{
			Host:      "db1",
			Name:      "cpu_percent",
			Value:     40 + float64(i)*2,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	analysis, err := p.Process(context.Background(), models.IncidentRequest{
		Alerts:  testAlerts(base),
		Metrics: points,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if analysis.Forecast == nil || len(analysis.Forecast.Series) != 1 {
		t.Fatalf("expected one fitted series, got %+v", analysis.Forecast)
	}
	if analysis.Forecast.Series[0].Trend <= 0 {
		t.Fatalf("rising series must have positive trend, got %f", analysis.Forecast.Series[0].Trend)
	}
}

func TestProcessRejectsMalformedAlerts(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Process(context.Background(), models.IncidentRequest{
		Alerts: []models.AlertRecord{{ID: "A1", Title: "t", Host: ""}},
	})
	if !utils.IsMalformedInput(err) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
}

func TestProcessHonoursCancelledContext(t *testing.T) {
	p := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Process(ctx, models.IncidentRequest{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRecordOutcomeFeedsLearner(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := models.IncidentRequest{
		Alerts:          testAlerts(base),
		RelevanceScores: map[string]int{"PatchOps": 90},
	}

	analysis, err := p.Process(ctx, req)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := p.RecordOutcome(ctx, analysis, 0.9); err != nil {
			t.Fatalf("record outcome: %v", err)
		}
	}

	// Three strong outcomes push the learned suggestion past the override
	// confidence, so the same signature now bypasses relevance scores.
	repeat, err := p.Process(ctx, req)
	if err != nil {
		t.Fatalf("repeat process: %v", err)
	}
	if !reflect.DeepEqual(repeat.SelectedAgents, analysis.SelectedAgents) {
		t.Fatalf("expected learned agents %v, got %v", analysis.SelectedAgents, repeat.SelectedAgents)
	}

	if err := p.RecordOutcome(ctx, analysis, 1.5); err == nil {
		t.Fatalf("expected quality validation error")
	}
}
