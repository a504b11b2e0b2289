package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/opsforge/analytics-engine/internal/models"
	"github.com/opsforge/analytics-engine/internal/store"
	"github.com/opsforge/analytics-engine/internal/utils"
)

// Config tunes the learner. Suggestion and threshold adjustment use distinct
// observation minimums on purpose: a suggestion only recommends, while a
// threshold shift changes who gets engaged at all.
type Config struct {
	SuggestMinObservations   int
	ThresholdMinObservations int
	ConfidenceFloor          float64
	ThresholdFloor           int
	ThresholdCeiling         int
	ThresholdStep            int
	HighQuality              float64
	LowQuality               float64
}

// DefaultConfig returns the documented learner defaults.
func DefaultConfig() Config {
	return Config{
		SuggestMinObservations:   3,
		ThresholdMinObservations: 5,
		ConfidenceFloor:          0.7,
		ThresholdFloor:           50,
		ThresholdCeiling:         85,
		ThresholdStep:            5,
		HighQuality:              0.75,
		LowQuality:               0.4,
	}
}

// Learner owns the signature-keyed selection history. All access goes through
// RecordOutcome, Suggest and AdjustThreshold; callers never touch the table
// directly.
type Learner struct {
	cfg    Config
	store  store.HistoryStore
	logger *slog.Logger
}

// NewLearner constructs a Learner over the supplied history store.
func NewLearner(cfg Config, hs store.HistoryStore, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.SuggestMinObservations == 0 {
		cfg.SuggestMinObservations = def.SuggestMinObservations
	}
	if cfg.ThresholdMinObservations == 0 {
		cfg.ThresholdMinObservations = def.ThresholdMinObservations
	}
	if cfg.ConfidenceFloor == 0 {
		cfg.ConfidenceFloor = def.ConfidenceFloor
	}
	if cfg.ThresholdFloor == 0 {
		cfg.ThresholdFloor = def.ThresholdFloor
	}
	if cfg.ThresholdCeiling == 0 {
		cfg.ThresholdCeiling = def.ThresholdCeiling
	}
	if cfg.ThresholdStep == 0 {
		cfg.ThresholdStep = def.ThresholdStep
	}
	if cfg.HighQuality == 0 {
		cfg.HighQuality = def.HighQuality
	}
	if cfg.LowQuality == 0 {
		cfg.LowQuality = def.LowQuality
	}
	return &Learner{cfg: cfg, store: hs, logger: logger}
}

// RecordOutcome appends one observation to the signature's bucket. The agent
// set is stored sorted so equivalent sets compare equal later.
func (l *Learner) RecordOutcome(ctx context.Context, signature []string, agents []string, quality float64) error {
	if quality < 0 || quality > 1 {
		return utils.NewMalformedInput("learning.RecordOutcome",
			fmt.Sprintf("outcome quality %f outside [0, 1]", quality), nil)
	}
	sorted := append([]string(nil), agents...)
	sort.Strings(sorted)

	obs := models.SelectionObservation{
		Agents:         sorted,
		OutcomeQuality: quality,
		ObservedAt:     time.Now().UTC(),
	}
	return l.store.AppendHistory(ctx, Key(signature), obs)
}

// Suggest returns the best-performing agent set for a signature, or nil when
// the bucket is too small or no set averages at least the confidence floor.
// Absence of a suggestion is a normal outcome, not an error.
func (l *Learner) Suggest(ctx context.Context, signature []string) (*models.Suggestion, error) {
	history, err := l.store.GetHistory(ctx, Key(signature))
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if len(history) < l.cfg.SuggestMinObservations {
		return nil, nil
	}

	type comboStats struct {
		agents []string
		total  float64
		count  int
	}
	var order []string
	combos := make(map[string]*comboStats)
	for _, obs := range history {
		key := strings.Join(obs.Agents, ",")
		stats, ok := combos[key]
		if !ok {
			stats = &comboStats{agents: obs.Agents}
			combos[key] = stats
			order = append(order, key)
		}
		stats.total += obs.OutcomeQuality
		stats.count++
	}

	// First-seen order breaks ties deterministically.
	var best *comboStats
	bestAvg := 0.0
	for _, key := range order {
		stats := combos[key]
		avg := stats.total / float64(stats.count)
		if best == nil || avg > bestAvg {
			best = stats
			bestAvg = avg
		}
	}

	if best == nil || bestAvg < l.cfg.ConfidenceFloor {
		return nil, nil
	}
	return &models.Suggestion{
		Agents:       append([]string(nil), best.agents...),
		Confidence:   bestAvg,
		Observations: len(history),
	}, nil
}

// AdjustThreshold nudges a base engagement threshold by the bucket's
// historical average quality. The result is always clamped to the configured
// bounds, no matter how extreme the history or the base.
func (l *Learner) AdjustThreshold(ctx context.Context, signature []string, base int) (int, error) {
	history, err := l.store.GetHistory(ctx, Key(signature))
	if err != nil {
		return l.clampThreshold(base), fmt.Errorf("get history: %w", err)
	}
	if len(history) < l.cfg.ThresholdMinObservations {
		return l.clampThreshold(base), nil
	}

	total := 0.0
	for _, obs := range history {
		total += obs.OutcomeQuality
	}
	avg := total / float64(len(history))

	threshold := base
	switch {
	case avg >= l.cfg.HighQuality:
		threshold = base - l.cfg.ThresholdStep
	case avg <= l.cfg.LowQuality:
		threshold = base + l.cfg.ThresholdStep
	}
	return l.clampThreshold(threshold), nil
}

func (l *Learner) clampThreshold(threshold int) int {
	if threshold < l.cfg.ThresholdFloor {
		return l.cfg.ThresholdFloor
	}
	if threshold > l.cfg.ThresholdCeiling {
		return l.cfg.ThresholdCeiling
	}
	return threshold
}
