package forecast

import (
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsforge/analytics-engine/internal/models"
	"github.com/opsforge/analytics-engine/internal/stats"
	"github.com/opsforge/analytics-engine/internal/utils"
)

// SummarizerConfig tunes the batch forecasting path.
type SummarizerConfig struct {
	Horizon      int
	Alpha        float64
	Beta         float64
	MinPoints    int
	DisplayCap   int
	TopAnomalies int
}

// DefaultSummarizerConfig returns the documented defaults.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		Horizon:      12,
		Alpha:        0.4,
		Beta:         0.2,
		MinPoints:    5,
		DisplayCap:   8,
		TopAnomalies: 5,
	}
}

// Summarizer groups raw metric points by (host, metric), fits each retained
// series and ranks anomalies. It holds no mutable state between calls.
type Summarizer struct {
	cfg    SummarizerConfig
	logger *slog.Logger
}

// NewSummarizer validates the config and constructs a Summarizer. Zero-valued
// fields fall back to defaults before validation.
func NewSummarizer(cfg SummarizerConfig, logger *slog.Logger) (*Summarizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSummarizerConfig()
	if cfg.Horizon == 0 {
		cfg.Horizon = def.Horizon
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = def.Alpha
	}
	if cfg.Beta == 0 {
		cfg.Beta = def.Beta
	}
	if cfg.MinPoints == 0 {
		cfg.MinPoints = def.MinPoints
	}
	if cfg.DisplayCap == 0 {
		cfg.DisplayCap = def.DisplayCap
	}
	if cfg.TopAnomalies == 0 {
		cfg.TopAnomalies = def.TopAnomalies
	}
	if err := stats.ValidateSmoothing(cfg.Alpha, cfg.Beta); err != nil {
		return nil, err
	}
	return &Summarizer{cfg: cfg, logger: logger}, nil
}

type seriesKey struct {
	host   string
	metric string
}

// Summarize produces one ForecastResult per (host, metric) group carrying at
// least MinPoints observations. Sparse groups are expected and silently
// excluded. Points without a timestamp are grouped as if observed now; the
// leniency applies to grouping only and is logged.
func (s *Summarizer) Summarize(points []models.MetricPoint) models.ForecastSummary {
	now := time.Now().UTC()
	grouped := make(map[seriesKey][]models.MetricPoint)
	for _, p := range points {
		if p.Timestamp.IsZero() {
			s.logger.Debug("metric point missing timestamp, grouping as now",
				slog.String("host", p.Host), slog.String("metric", p.Name))
			p.Timestamp = now
		}
		key := seriesKey{host: p.Host, metric: p.Name}
		grouped[key] = append(grouped[key], p)
	}

	keys := make([]seriesKey, 0, len(grouped))
	for key, group := range grouped {
		if len(group) < s.cfg.MinPoints {
			s.logger.Debug("series skipped",
				slog.String("host", key.host),
				slog.String("metric", key.metric),
				slog.Int("points", len(group)),
				slog.Any("reason", utils.ErrInsufficientData))
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].host != keys[j].host {
			return keys[i].host < keys[j].host
		}
		return keys[i].metric < keys[j].metric
	})

	results := make([]models.ForecastResult, len(keys))
	truncated := false

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			group := grouped[key]
			sort.SliceStable(group, func(a, b int) bool {
				return group[a].Timestamp.Before(group[b].Timestamp)
			})
			values := make([]float64, len(group))
			for n, p := range group {
				values[n] = p.Value
			}
			fit, err := Fit(values, s.cfg.Horizon, s.cfg.Alpha, s.cfg.Beta)
			if err != nil {
				return err
			}
			display := s.cfg.Horizon
			if display > s.cfg.DisplayCap {
				display = s.cfg.DisplayCap
			}
			results[i] = models.ForecastResult{
				Host:         key.host,
				Metric:       key.metric,
				LastValue:    round(values[len(values)-1], 2),
				Trend:        round(fit.Trend, 4),
				Forecast:     roundAll(fit.Forecast[:display], 2),
				AnomalyScore: round(fit.AnomalyScore(), 3),
			}
			return nil
		})
	}
	// Smoothing constants were validated at construction, so per-series fits
	// cannot fail; Wait is for pool draining.
	_ = g.Wait()

	if s.cfg.Horizon > s.cfg.DisplayCap && len(results) > 0 {
		truncated = true
	}

	anomalies := append([]models.ForecastResult(nil), results...)
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].AnomalyScore > anomalies[j].AnomalyScore
	})
	if len(anomalies) > s.cfg.TopAnomalies {
		anomalies = anomalies[:s.cfg.TopAnomalies]
		truncated = true
	}

	return models.ForecastSummary{
		GeneratedAt:  now,
		Horizon:      s.cfg.Horizon,
		Series:       results,
		TopAnomalies: anomalies,
		Capped:       truncated,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func roundAll(values []float64, places int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = round(v, places)
	}
	return out
}
