package learning

import (
	"reflect"
	"testing"
	"time"

	"github.com/opsforge/analytics-engine/internal/models"
)

func titled(title string) models.AlertRecord {
	return models.AlertRecord{ID: "a", Host: "h", Title: title, Timestamp: time.Now()}
}

func TestSignatureExtractsSortedKeywords(t *testing.T) {
	alerts := []models.AlertRecord{
		titled("Database unresponsive"),
		titled("Timeout contacting replica"),
		titled("Connection pool exhausted"),
	}
	sig := Signature(alerts)
	expected := []string{"connection", "database", "timeout"}
	if !reflect.DeepEqual(sig, expected) {
		t.Fatalf("expected %v, got %v", expected, sig)
	}
}

func TestSignatureSkipsShortAndStopWords(t *testing.T) {
	sig := Signature([]models.AlertRecord{titled("CPU at 99% with throttling")})
	if !reflect.DeepEqual(sig, []string{"throttling"}) {
		t.Fatalf("expected [throttling], got %v", sig)
	}
}

func TestSignatureCapsAtThreeAlerts(t *testing.T) {
	alerts := []models.AlertRecord{
		titled("alpha-service down"),
		titled("bravo-service down"),
		titled("charlie-service down"),
		titled("delta-service down"),
	}
	sig := Signature(alerts)
	if len(sig) != 3 {
		t.Fatalf("expected at most 3 keywords, got %v", sig)
	}
	for _, kw := range sig {
		if kw == "delta-service" {
			t.Fatalf("fourth alert must not contribute: %v", sig)
		}
	}
}

func TestSignatureOrderIndependentKey(t *testing.T) {
	a := Signature([]models.AlertRecord{titled("Database stalled"), titled("Timeout on query")})
	b := Signature([]models.AlertRecord{titled("Timeout on query"), titled("Database stalled")})
	if Key(a) != Key(b) {
		t.Fatalf("keys differ for the same keyword set: %q vs %q", Key(a), Key(b))
	}
}

func TestSignatureNoQualifyingWords(t *testing.T) {
	if sig := Signature([]models.AlertRecord{titled("up ok yes")}); len(sig) != 0 {
		t.Fatalf("expected empty signature, got %v", sig)
	}
}
