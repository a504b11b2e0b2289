package correlation

import (
	"reflect"
	"testing"
	"time"

	"github.com/opsforge/analytics-engine/internal/models"
	"github.com/opsforge/analytics-engine/internal/utils"
)

func alert(id, host, title string, at time.Time) models.AlertRecord {
	return models.AlertRecord{ID: id, Host: host, Title: title, Severity: models.SeverityHigh, Timestamp: at}
}

func TestCorrelateClustersDatabaseAlerts(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	alerts := []models.AlertRecord{
		alert("A", "db1", "Database unresponsive", base),
		alert("B", "db1", "Database timeout", base.Add(10*time.Second)),
		alert("C", "web1", "Disk full", base.Add(500*time.Second)),
	}

	res, err := engine.Correlate(alerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PrimaryAlertID != "A" {
		t.Fatalf("expected primary A, got %s", res.PrimaryAlertID)
	}
	if !reflect.DeepEqual(res.RelatedAlertIDs, []string{"B"}) {
		t.Fatalf("expected related [B], got %v", res.RelatedAlertIDs)
	}
	if res.SuppressedCount != 1 {
		t.Fatalf("expected suppressed count 1, got %d", res.SuppressedCount)
	}
	if res.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %f", res.Confidence)
	}
	if res.RootCause != "Database unresponsive" {
		t.Fatalf("unexpected root cause %q", res.RootCause)
	}
	if len(res.Reasoning) != 3 {
		t.Fatalf("expected 3 reasoning lines, got %v", res.Reasoning)
	}
}

func TestCorrelateSingleAlertShortCircuit(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	res, err := engine.Correlate([]models.AlertRecord{
		alert("A", "db1", "Database unresponsive", time.Now()),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 1.0 || res.SuppressedCount != 0 {
		t.Fatalf("expected sentinel result, got %+v", res)
	}
	if res.PrimaryAlertID != "A" {
		t.Fatalf("expected primary A, got %s", res.PrimaryAlertID)
	}
}

func TestCorrelateEmptyBatch(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	res, err := engine.Correlate(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 1.0 || res.PrimaryAlertID != "" || res.SuppressedCount != 0 {
		t.Fatalf("expected empty sentinel, got %+v", res)
	}
}

func TestCorrelateUnrelatedAlerts(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := engine.Correlate([]models.AlertRecord{
		alert("A", "db1", "Database unresponsive", base),
		alert("B", "web7", "Certificate expiring", base.Add(2*time.Hour)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3 for unrelated alerts, got %f", res.Confidence)
	}
	if res.RootCause != "No clear correlation detected" {
		t.Fatalf("unexpected root cause %q", res.RootCause)
	}
	if res.SuppressedCount != 0 || len(res.RelatedAlertIDs) != 0 {
		t.Fatalf("expected no suppression, got %+v", res)
	}
}

func TestPairScoreMonotonicThreshold(t *testing.T) {
	// Same host + close timestamps + one shared keyword is always an edge:
	// 0.4 + 0.3 + 0.1 = 0.8 > 0.5.
	engine := NewEngine(Config{}, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := alert("A", "db1", "database stall", base)
	b := alert("B", "db1", "database recovery", base.Add(59*time.Second))

	if score := engine.PairScore(a, b); score < 0.8 {
		t.Fatalf("expected score >= 0.8, got %f", score)
	}
}

func TestPairScoreKeywordCap(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Five shared keywords on different hosts far apart in time: capped at 0.3.
	a := alert("A", "db1", "one two three four five", base)
	b := alert("B", "web1", "one two three four five", base.Add(time.Hour))

	if score := engine.PairScore(a, b); score != 0.3 {
		t.Fatalf("expected capped keyword score 0.3, got %f", score)
	}
}

func TestCorrelateIdempotent(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alerts := []models.AlertRecord{
		alert("B", "db1", "Database timeout", base.Add(10*time.Second)),
		alert("A", "db1", "Database unresponsive", base),
		alert("C", "db1", "Database replication lag", base.Add(20*time.Second)),
	}

	first, err := engine.Correlate(alerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Correlate(alerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("correlate is not idempotent: %+v vs %+v", first, second)
	}
}

func TestCorrelateDeterministicTieBreak(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Two disjoint clusters of equal size; the one with the earliest member wins.
	alerts := []models.AlertRecord{
		alert("C", "web1", "cache misses rising", base.Add(5*time.Second)),
		alert("D", "web1", "cache evictions rising", base.Add(6*time.Second)),
		alert("A", "db1", "database stalled", base),
		alert("B", "db1", "database locked", base.Add(time.Second)),
	}

	res, err := engine.Correlate(alerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PrimaryAlertID != "A" {
		t.Fatalf("expected earliest cluster to win, primary=%s", res.PrimaryAlertID)
	}
}

func TestCorrelateRejectsMalformedAlerts(t *testing.T) {
	engine := NewEngine(Config{}, nil)
	cases := []models.AlertRecord{
		{ID: "", Title: "t", Host: "h", Timestamp: time.Now()},
		{ID: "A", Title: "", Host: "h", Timestamp: time.Now()},
		{ID: "A", Title: "t", Host: "", Timestamp: time.Now()},
		{ID: "A", Title: "t", Host: "h"}, // zero timestamp
	}
	for i, bad := range cases {
		_, err := engine.Correlate([]models.AlertRecord{bad, alert("Z", "db1", "ok", time.Now())})
		if err == nil {
			t.Fatalf("case %d: expected error", i)
		}
		if !utils.IsMalformedInput(err) {
			t.Fatalf("case %d: expected MalformedInputError, got %v", i, err)
		}
	}
}
