// Package correlation groups related alerts into a single incident cluster
// using a weighted similarity graph.
package correlation

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/opsforge/analytics-engine/internal/models"
)

// Config tunes the pairwise similarity scoring. Pairs scoring at or below
// EdgeThreshold are treated as unrelated regardless of individual signals.
type Config struct {
	EdgeThreshold   float64
	HostWeight      float64
	ProximityWeight float64
	KeywordWeight   float64
	KeywordCap      float64
	ProximityWindow time.Duration
}

// DefaultConfig returns the documented scoring defaults.
func DefaultConfig() Config {
	return Config{
		EdgeThreshold:   0.5,
		HostWeight:      0.4,
		ProximityWeight: 0.3,
		KeywordWeight:   0.1,
		KeywordCap:      0.3,
		ProximityWindow: 60 * time.Second,
	}
}

// Engine builds the correlation graph over an alert batch. It is pure and
// reentrant; concurrent calls need no synchronisation.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine constructs an Engine. Zero-valued config fields fall back to the
// documented defaults.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.EdgeThreshold == 0 {
		cfg.EdgeThreshold = def.EdgeThreshold
	}
	if cfg.HostWeight == 0 {
		cfg.HostWeight = def.HostWeight
	}
	if cfg.ProximityWeight == 0 {
		cfg.ProximityWeight = def.ProximityWeight
	}
	if cfg.KeywordWeight == 0 {
		cfg.KeywordWeight = def.KeywordWeight
	}
	if cfg.KeywordCap == 0 {
		cfg.KeywordCap = def.KeywordCap
	}
	if cfg.ProximityWindow == 0 {
		cfg.ProximityWindow = def.ProximityWindow
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Correlate clusters a batch of alerts and returns the dominant incident.
// Batches of fewer than two alerts short-circuit with confidence 1.0; they are
// defined outcomes, not errors. Malformed alerts fail fast.
func (e *Engine) Correlate(alerts []models.AlertRecord) (models.CorrelationResult, error) {
	if len(alerts) == 0 {
		return models.CorrelationResult{
			Confidence: 1.0,
			RootCause:  "No alerts",
			Reasoning:  []string{"Only one alert, no correlation needed"},
		}, nil
	}

	for _, alert := range alerts {
		if err := alert.Validate(); err != nil {
			return models.CorrelationResult{}, err
		}
	}

	if len(alerts) == 1 {
		return models.CorrelationResult{
			PrimaryAlertID: alerts[0].ID,
			Confidence:     1.0,
			RootCause:      alerts[0].Title,
			Reasoning:      []string{"Only one alert, no correlation needed"},
		}, nil
	}

	adjacency, edgeCount := e.buildGraph(alerts)

	if edgeCount == 0 {
		return models.CorrelationResult{
			PrimaryAlertID:  alerts[0].ID,
			RelatedAlertIDs: []string{},
			Confidence:      0.3,
			RootCause:       "No clear correlation detected",
			Reasoning:       []string{"Alerts appear unrelated"},
		}, nil
	}

	cluster := largestComponent(alerts, adjacency)

	members := make([]models.AlertRecord, len(cluster))
	for i, idx := range cluster {
		members[i] = alerts[idx]
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Timestamp.Equal(members[j].Timestamp) {
			return members[i].ID < members[j].ID
		}
		return members[i].Timestamp.Before(members[j].Timestamp)
	})

	primary := members[0]
	related := make([]string, 0, len(members)-1)
	for _, m := range members[1:] {
		related = append(related, m.ID)
	}
	span := members[len(members)-1].Timestamp.Sub(primary.Timestamp)

	return models.CorrelationResult{
		PrimaryAlertID:  primary.ID,
		RelatedAlertIDs: related,
		Confidence:      0.85,
		RootCause:       primary.Title,
		Reasoning: []string{
			fmt.Sprintf("Identified cluster of %d related alerts", len(members)),
			fmt.Sprintf("Primary alert: %s on %s", primary.Title, primary.Host),
			fmt.Sprintf("Time span: %ds", int(span.Seconds())),
		},
		SuppressedCount: len(related),
	}, nil
}

// PairScore exposes the pairwise similarity score for diagnostics and tests.
func (e *Engine) PairScore(a, b models.AlertRecord) float64 {
	score := 0.0
	if a.Host == b.Host {
		score += e.cfg.HostWeight
	}
	diff := a.Timestamp.Sub(b.Timestamp)
	if diff < 0 {
		diff = -diff
	}
	if diff < e.cfg.ProximityWindow {
		score += e.cfg.ProximityWeight
	}
	if overlap := keywordOverlap(a.Title, b.Title); overlap > 0 {
		bonus := float64(overlap) * e.cfg.KeywordWeight
		if bonus > e.cfg.KeywordCap {
			bonus = e.cfg.KeywordCap
		}
		score += bonus
	}
	return score
}

func (e *Engine) buildGraph(alerts []models.AlertRecord) (map[int][]int, int) {
	adjacency := make(map[int][]int, len(alerts))
	edges := 0
	for i := 0; i < len(alerts); i++ {
		for j := i + 1; j < len(alerts); j++ {
			if e.PairScore(alerts[i], alerts[j]) > e.cfg.EdgeThreshold {
				adjacency[i] = append(adjacency[i], j)
				adjacency[j] = append(adjacency[j], i)
				edges++
			}
		}
	}
	return adjacency, edges
}

// largestComponent returns the node indices of the largest connected
// component. Ties break deterministically: earliest member timestamp first,
// then smallest member alert ID.
func largestComponent(alerts []models.AlertRecord, adjacency map[int][]int) []int {
	visited := make([]bool, len(alerts))
	var best []int

	for start := range alerts {
		if visited[start] {
			continue
		}
		component := []int{start}
		visited[start] = true
		for cursor := 0; cursor < len(component); cursor++ {
			for _, next := range adjacency[component[cursor]] {
				if !visited[next] {
					visited[next] = true
					component = append(component, next)
				}
			}
		}
		if best == nil || betterComponent(alerts, component, best) {
			best = component
		}
	}
	return best
}

func betterComponent(alerts []models.AlertRecord, candidate, current []int) bool {
	if len(candidate) != len(current) {
		return len(candidate) > len(current)
	}
	candTime, candID := componentAnchor(alerts, candidate)
	currTime, currID := componentAnchor(alerts, current)
	if !candTime.Equal(currTime) {
		return candTime.Before(currTime)
	}
	return candID < currID
}

func componentAnchor(alerts []models.AlertRecord, component []int) (time.Time, string) {
	earliest := alerts[component[0]].Timestamp
	minID := alerts[component[0]].ID
	for _, idx := range component[1:] {
		if alerts[idx].Timestamp.Before(earliest) {
			earliest = alerts[idx].Timestamp
		}
		if alerts[idx].ID < minID {
			minID = alerts[idx].ID
		}
	}
	return earliest, minID
}

func keywordOverlap(a, b string) int {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(a)) {
		tokens[word] = struct{}{}
	}
	overlap := 0
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(b)) {
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		if _, ok := tokens[word]; ok {
			overlap++
		}
	}
	return overlap
}
