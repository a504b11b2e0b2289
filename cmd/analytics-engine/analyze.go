package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsforge/analytics-engine/internal/config"
	"github.com/opsforge/analytics-engine/internal/spool"
	"github.com/opsforge/analytics-engine/internal/utils"
)

func newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <bundle.json>",
		Short: "Process a single incident bundle and print the analysis as JSON",
		Long: "Reads one incident bundle, runs correlation, forecasting and agent " +
			"selection against it, and prints the resulting analysis. Pass '-' to " +
			"read the bundle from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
	}
}

func runAnalyze(cmd *cobra.Command, path string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	pipeline, history, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer history.Close()

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	req, err := spool.DecodeBundle(data, logger)
	if err != nil {
		return err
	}

	analysis, err := pipeline.Process(cmd.Context(), req)
	if err != nil {
		return err
	}
	if req.ObservedQuality != nil {
		if err := pipeline.RecordOutcome(cmd.Context(), analysis, *req.ObservedQuality); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}
