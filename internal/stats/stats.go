// Package stats holds the shared numeric helpers used by the correlation and
// forecasting components.
package stats

import (
	"math"

	"github.com/opsforge/analytics-engine/internal/utils"
)

// Mean returns the arithmetic mean, or zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// Variance returns the population variance, or zero for an empty slice.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// ZScore scores how far latest sits from the population of values, in
// standard deviations. Returns zero when the population is empty or has zero
// variance; it never divides by zero.
func ZScore(latest float64, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	std := StdDev(values)
	if std == 0 {
		return 0
	}
	return math.Abs(latest-Mean(values)) / std
}

// ValidateSmoothing checks Holt smoothing constants. Both must sit in (0, 1].
func ValidateSmoothing(alpha, beta float64) error {
	if alpha <= 0 || alpha > 1 {
		return utils.NewMalformedInput("stats.ValidateSmoothing", "alpha must be in (0, 1]", nil)
	}
	if beta <= 0 || beta > 1 {
		return utils.NewMalformedInput("stats.ValidateSmoothing", "beta must be in (0, 1]", nil)
	}
	return nil
}
