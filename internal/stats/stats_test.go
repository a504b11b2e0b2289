package stats

import (
	"math"
	"testing"

	"github.com/opsforge/analytics-engine/internal/utils"
)

func TestMeanAndVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if m := Mean(values); m != 5 {
		t.Fatalf("expected mean 5, got %f", m)
	}
	if v := Variance(values); v != 4 {
		t.Fatalf("expected population variance 4, got %f", v)
	}
	if s := StdDev(values); s != 2 {
		t.Fatalf("expected stddev 2, got %f", s)
	}
}

func TestMeanEmpty(t *testing.T) {
	if m := Mean(nil); m != 0 {
		t.Fatalf("expected zero mean for empty input, got %f", m)
	}
	if v := Variance(nil); v != 0 {
		t.Fatalf("expected zero variance for empty input, got %f", v)
	}
}

func TestZScoreGuards(t *testing.T) {
	if z := ZScore(10, nil); z != 0 {
		t.Fatalf("expected zero z-score for empty population, got %f", z)
	}
	// Zero variance population must not divide by zero.
	if z := ZScore(10, []float64{3, 3, 3}); z != 0 {
		t.Fatalf("expected zero z-score for constant population, got %f", z)
	}
}

func TestZScoreNonNegative(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	for _, latest := range []float64{-100, 0, 3, 100} {
		if z := ZScore(latest, values); z < 0 || math.IsNaN(z) {
			t.Fatalf("z-score must be >= 0, got %f for latest %f", z, latest)
		}
	}
}

func TestValidateSmoothing(t *testing.T) {
	if err := ValidateSmoothing(0.4, 0.2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pair := range [][2]float64{{0, 0.2}, {-0.1, 0.2}, {1.1, 0.2}, {0.4, 0}, {0.4, 1.5}} {
		err := ValidateSmoothing(pair[0], pair[1])
		if err == nil {
			t.Fatalf("expected error for alpha=%f beta=%f", pair[0], pair[1])
		}
		if !utils.IsMalformedInput(err) {
			t.Fatalf("expected MalformedInputError, got %v", err)
		}
	}
}
