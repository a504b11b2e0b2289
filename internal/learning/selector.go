package learning

import (
	"context"
	"log/slog"
	"sort"

	"github.com/opsforge/analytics-engine/internal/metrics"
)

// Specialist names known to the orchestration layer. The orchestrator always
// participates; AlertOps is the correlation baseline when nothing else scores.
const (
	AgentOrchestrator = "Orchestrator"
	AgentAlertOps     = "AlertOps"
)

// SelectorConfig tunes learned specialist selection.
type SelectorConfig struct {
	BaseThreshold      int
	OverrideConfidence float64
}

// DefaultSelectorConfig returns the documented selection defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		BaseThreshold:      60,
		OverrideConfidence: 0.85,
	}
}

// Selector decides which specialists engage for an incident. Relevance
// scores arrive from upstream (keyword heuristics or an LLM ranker); the
// selector only applies learned history on top of them.
type Selector struct {
	cfg     SelectorConfig
	learner *Learner
	logger  *slog.Logger
}

// NewSelector constructs a Selector over a learner.
func NewSelector(cfg SelectorConfig, learner *Learner, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSelectorConfig()
	if cfg.BaseThreshold == 0 {
		cfg.BaseThreshold = def.BaseThreshold
	}
	if cfg.OverrideConfidence == 0 {
		cfg.OverrideConfidence = def.OverrideConfidence
	}
	return &Selector{cfg: cfg, learner: learner, logger: logger}
}

// Select returns the engaged specialists and the threshold actually applied.
// A sufficiently confident learned suggestion overrides scoring entirely;
// otherwise agents scoring at or above the (history-adjusted) threshold are
// engaged. History-store failures degrade to pure score filtering rather than
// failing the incident.
func (s *Selector) Select(ctx context.Context, signature []string, scores map[string]int, base int) ([]string, int) {
	if base <= 0 {
		base = s.cfg.BaseThreshold
	}

	suggestion, err := s.learner.Suggest(ctx, signature)
	if err != nil {
		s.logger.Warn("learned suggestion unavailable", slog.Any("error", err))
	}
	if suggestion != nil && suggestion.Confidence >= s.cfg.OverrideConfidence {
		s.logger.Info("using learned agent selection",
			slog.Any("agents", suggestion.Agents),
			slog.Float64("confidence", suggestion.Confidence),
			slog.Int("observations", suggestion.Observations))
		metrics.ObserveSuggestion(true)
		return append([]string(nil), suggestion.Agents...), base
	}
	metrics.ObserveSuggestion(false)

	threshold, err := s.learner.AdjustThreshold(ctx, signature, base)
	if err != nil {
		s.logger.Warn("threshold adjustment unavailable", slog.Any("error", err))
	}
	metrics.ObserveThresholdAdjustment(base, threshold)

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	selected := []string{AgentOrchestrator}
	for _, name := range names {
		if scores[name] >= threshold {
			selected = append(selected, name)
		}
	}
	if len(selected) == 1 {
		selected = append(selected, AgentAlertOps)
	}
	return selected, threshold
}
