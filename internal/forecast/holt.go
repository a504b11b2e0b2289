// Package forecast fits double-exponential (Holt linear) smoothing models to
// metric series and scores the latest observation against fitted residuals.
package forecast

import (
	"github.com/opsforge/analytics-engine/internal/stats"
	"github.com/opsforge/analytics-engine/internal/utils"
)

// FitResult holds the smoother state and derived series after a fit.
type FitResult struct {
	Level     float64
	Trend     float64
	Fitted    []float64
	Forecast  []float64
	Residuals []float64
}

// Fit runs Holt's linear trend smoother over an ordered series and projects
// horizon points ahead by straight-line extrapolation from the final
// level/trend pair. The one-step-ahead fitted value uses the post-update
// level and trend.
//
// Degenerate inputs are defined outcomes: an empty series yields zero level,
// zero trend and a zero forecast; a single point is repeated across the
// horizon with one zero residual.
func Fit(values []float64, horizon int, alpha, beta float64) (FitResult, error) {
	if horizon <= 0 {
		return FitResult{}, utils.NewMalformedInput("forecast.Fit", "horizon must be positive", nil)
	}
	if err := stats.ValidateSmoothing(alpha, beta); err != nil {
		return FitResult{}, err
	}

	if len(values) == 0 {
		return FitResult{Forecast: make([]float64, horizon)}, nil
	}
	if len(values) == 1 {
		single := values[0]
		forecast := make([]float64, horizon)
		for k := range forecast {
			forecast[k] = single
		}
		return FitResult{
			Level:     single,
			Fitted:    []float64{single},
			Forecast:  forecast,
			Residuals: []float64{0},
		}, nil
	}

	level := values[0]
	trend := values[1] - values[0]
	fitted := make([]float64, 0, len(values))
	residuals := make([]float64, 0, len(values))

	for i, actual := range values {
		if i == 0 {
			fitted = append(fitted, level)
			residuals = append(residuals, actual-level)
			continue
		}
		lastLevel := level
		level = alpha*actual + (1-alpha)*(level+trend)
		trend = beta*(level-lastLevel) + (1-beta)*trend

		prediction := level + trend
		fitted = append(fitted, prediction)
		residuals = append(residuals, actual-prediction)
	}

	forecast := make([]float64, horizon)
	for k := range forecast {
		forecast[k] = level + float64(k+1)*trend
	}

	return FitResult{
		Level:     level,
		Trend:     trend,
		Fitted:    fitted,
		Forecast:  forecast,
		Residuals: residuals,
	}, nil
}

// AnomalyScore computes a z-score of the most recent residual against the
// full residual history. It is zero for empty or zero-variance residual sets.
func (r FitResult) AnomalyScore() float64 {
	if len(r.Residuals) == 0 {
		return 0
	}
	return stats.ZScore(r.Residuals[len(r.Residuals)-1], r.Residuals)
}
