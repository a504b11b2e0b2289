package learning

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/opsforge/analytics-engine/internal/models"
)

func TestSelectFiltersByThreshold(t *testing.T) {
	learner := newTestLearner()
	selector := NewSelector(SelectorConfig{}, learner, nil)

	scores := map[string]int{
		"AlertOps":      85,
		"PredictiveOps": 70,
		"PatchOps":      10,
		"TaskOps":       60,
	}
	selected, threshold := selector.Select(context.Background(), []string{"database"}, scores, 0)

	if threshold != 60 {
		t.Fatalf("expected default threshold 60, got %d", threshold)
	}
	expected := []string{"Orchestrator", "AlertOps", "PredictiveOps", "TaskOps"}
	if !reflect.DeepEqual(selected, expected) {
		t.Fatalf("expected %v, got %v", expected, selected)
	}
}

func TestSelectFallsBackToAlertOps(t *testing.T) {
	learner := newTestLearner()
	selector := NewSelector(SelectorConfig{}, learner, nil)

	scores := map[string]int{"PatchOps": 5, "TaskOps": 12}
	selected, _ := selector.Select(context.Background(), []string{"novel"}, scores, 0)

	expected := []string{"Orchestrator", "AlertOps"}
	if !reflect.DeepEqual(selected, expected) {
		t.Fatalf("expected baseline fallback, got %v", selected)
	}
}

func TestSelectLearnedOverride(t *testing.T) {
	learner := newTestLearner()
	selector := NewSelector(SelectorConfig{}, learner, nil)
	ctx := context.Background()
	sig := []string{"database", "timeout"}

	for i := 0; i < 4; i++ {
		if err := learner.RecordOutcome(ctx, sig, []string{"AlertOps", "PredictiveOps"}, 0.95); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	scores := map[string]int{"PatchOps": 90, "TaskOps": 90}
	selected, _ := selector.Select(ctx, sig, scores, 0)

	// High-confidence history overrides upstream scores entirely.
	expected := []string{"AlertOps", "PredictiveOps"}
	if !reflect.DeepEqual(selected, expected) {
		t.Fatalf("expected learned override %v, got %v", expected, selected)
	}
}

func TestSelectUsesAdjustedThreshold(t *testing.T) {
	learner := newTestLearner()
	// Override confidence above any achievable average keeps score filtering
	// active while the threshold adjustment still applies.
	selector := NewSelector(SelectorConfig{OverrideConfidence: 2.0}, learner, nil)
	ctx := context.Background()
	sig := []string{"disk"}

	for i := 0; i < 6; i++ {
		_ = learner.RecordOutcome(ctx, sig, []string{"TaskOps"}, 0.9)
	}

	scores := map[string]int{"TaskOps": 57}
	selected, threshold := selector.Select(ctx, sig, scores, 60)

	if threshold != 55 {
		t.Fatalf("expected lowered threshold 55, got %d", threshold)
	}
	expected := []string{"Orchestrator", "TaskOps"}
	if !reflect.DeepEqual(selected, expected) {
		t.Fatalf("expected %v, got %v", expected, selected)
	}
}

func TestSelectDegradesOnStoreFailure(t *testing.T) {
	learner := NewLearner(Config{}, failingStore{}, nil)
	selector := NewSelector(SelectorConfig{}, learner, nil)

	scores := map[string]int{"AlertOps": 80}
	selected, threshold := selector.Select(context.Background(), []string{"x"}, scores, 0)

	if threshold != 60 {
		t.Fatalf("expected base threshold on store failure, got %d", threshold)
	}
	expected := []string{"Orchestrator", "AlertOps"}
	if !reflect.DeepEqual(selected, expected) {
		t.Fatalf("expected score filtering to continue, got %v", selected)
	}
}

var errStore = errors.New("store unavailable")

type failingStore struct{}

func (failingStore) GetHistory(ctx context.Context, signature string) ([]models.SelectionObservation, error) {
	return nil, errStore
}

func (failingStore) AppendHistory(ctx context.Context, signature string, obs models.SelectionObservation) error {
	return errStore
}

func (failingStore) Close() error { return nil }
