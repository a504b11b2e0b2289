package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsforge/analytics-engine/internal/config"
	"github.com/opsforge/analytics-engine/internal/correlation"
	"github.com/opsforge/analytics-engine/internal/engine"
	"github.com/opsforge/analytics-engine/internal/forecast"
	"github.com/opsforge/analytics-engine/internal/learning"
	"github.com/opsforge/analytics-engine/internal/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "analytics-engine",
		Short:         "Correlates infrastructure alerts, forecasts metric trends and learns agent selection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	root.AddCommand(newRunCommand(), newAnalyzeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildComponents wires the history store and processing stages from config.
// The returned store must be closed by the caller.
func buildComponents(cfg *config.Config, logger *slog.Logger) (*engine.Pipeline, store.HistoryStore, error) {
	var history store.HistoryStore
	switch cfg.Store.Backend {
	case "valkey":
		vs, err := store.NewValkeyStore(store.ValkeyConfig{
			Addr:            cfg.Store.Valkey.Addr,
			Username:        cfg.Store.Valkey.Username,
			Password:        cfg.Store.Valkey.Password,
			DB:              cfg.Store.Valkey.DB,
			DialTimeout:     cfg.Store.Valkey.DialTimeout,
			ReadTimeout:     cfg.Store.Valkey.ReadTimeout,
			WriteTimeout:    cfg.Store.Valkey.WriteTimeout,
			MaxRetries:      cfg.Store.Valkey.MaxRetries,
			TLS:             cfg.Store.Valkey.TLS,
			KeyPrefix:       cfg.Store.Valkey.KeyPrefix,
			MaxPerSignature: cfg.Store.MaxPerSignature,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect valkey: %w", err)
		}
		history = vs
	default:
		history = store.NewMemoryStore(cfg.Store.MaxPerSignature)
	}

	summarizer, err := forecast.NewSummarizer(forecast.SummarizerConfig{
		Horizon:      cfg.Forecast.Horizon,
		Alpha:        cfg.Forecast.Alpha,
		Beta:         cfg.Forecast.Beta,
		MinPoints:    cfg.Forecast.MinPoints,
		DisplayCap:   cfg.Forecast.DisplayCap,
		TopAnomalies: cfg.Forecast.TopAnomalies,
	}, logger)
	if err != nil {
		history.Close()
		return nil, nil, fmt.Errorf("configure forecaster: %w", err)
	}

	correlator := correlation.NewEngine(correlation.Config{
		EdgeThreshold:   cfg.Correlation.EdgeThreshold,
		HostWeight:      cfg.Correlation.HostWeight,
		ProximityWeight: cfg.Correlation.ProximityWeight,
		KeywordWeight:   cfg.Correlation.KeywordWeight,
		KeywordCap:      cfg.Correlation.KeywordCap,
		ProximityWindow: cfg.Correlation.ProximityWindow,
	}, logger)

	learner := learning.NewLearner(learning.Config{
		SuggestMinObservations:   cfg.Learning.SuggestMinObservations,
		ThresholdMinObservations: cfg.Learning.ThresholdMinObservations,
		ConfidenceFloor:          cfg.Learning.ConfidenceFloor,
		ThresholdFloor:           cfg.Learning.ThresholdFloor,
		ThresholdCeiling:         cfg.Learning.ThresholdCeiling,
		ThresholdStep:            cfg.Learning.ThresholdStep,
		HighQuality:              cfg.Learning.HighQuality,
		LowQuality:               cfg.Learning.LowQuality,
	}, history, logger)

	selector := learning.NewSelector(learning.SelectorConfig{
		BaseThreshold:      cfg.Selection.BaseThreshold,
		OverrideConfidence: cfg.Selection.OverrideConfidence,
	}, learner, logger)

	return engine.NewPipeline(correlator, summarizer, learner, selector, logger), history, nil
}
