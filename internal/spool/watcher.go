package spool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/opsforge/analytics-engine/internal/engine"
)

const resultSuffix = ".result.json"

// Watcher feeds incident bundle files from a spool directory through the
// pipeline. Producers must move bundles into the directory atomically (write
// elsewhere, then rename) so a create event always sees a complete file.
type Watcher struct {
	dir      string
	workers  int
	pipeline *engine.Pipeline
	logger   *slog.Logger
}

// NewWatcher constructs a Watcher over an existing pipeline.
func NewWatcher(dir string, workers int, pipeline *engine.Pipeline, logger *slog.Logger) *Watcher {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, workers: workers, pipeline: pipeline, logger: logger}
}

// Run processes bundles already present in the directory, then watches for new
// ones until the context is cancelled. Per-bundle failures are logged and do
// not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsWatcher.Close()
	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	paths := make(chan string, w.workers*2)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case path, ok := <-paths:
					if !ok {
						return nil
					}
					w.processFile(ctx, path)
				}
			}
		})
	}

	g.Go(func() error {
		defer close(paths)

		// Bundles dropped before startup never generate events.
		pending, err := w.scan()
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(pending))
		for _, path := range pending {
			seen[path] = struct{}{}
			select {
			case <-ctx.Done():
				return nil
			case paths <- path:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				path := event.Name
				if !isBundle(path) {
					continue
				}
				if _, dup := seen[path]; dup {
					continue
				}
				seen[path] = struct{}{}
				select {
				case <-ctx.Done():
					return nil
				case paths <- path:
				}
			case watchErr, ok := <-fsWatcher.Errors:
				if !ok {
					return nil
				}
				w.logger.Warn("spool watch error", slog.Any("error", watchErr))
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("scan spool dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if isBundle(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	resultPath := strings.TrimSuffix(path, ".json") + resultSuffix
	if _, err := os.Stat(resultPath); err == nil {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Error("read bundle", slog.String("path", path), slog.Any("error", err))
		}
		return
	}

	req, err := DecodeBundle(data, w.logger)
	if err != nil {
		w.logger.Error("malformed bundle", slog.String("path", path), slog.Any("error", err))
		return
	}

	analysis, err := w.pipeline.Process(ctx, req)
	if err != nil {
		w.logger.Error("process bundle", slog.String("path", path), slog.Any("error", err))
		return
	}
	if req.ObservedQuality != nil {
		if err := w.pipeline.RecordOutcome(ctx, analysis, *req.ObservedQuality); err != nil {
			w.logger.Error("record outcome", slog.String("path", path), slog.Any("error", err))
		}
	}

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		w.logger.Error("encode analysis", slog.String("path", path), slog.Any("error", err))
		return
	}
	tmp := resultPath + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		w.logger.Error("write result", slog.String("path", resultPath), slog.Any("error", err))
		return
	}
	if err := os.Rename(tmp, resultPath); err != nil {
		w.logger.Error("publish result", slog.String("path", resultPath), slog.Any("error", err))
		return
	}
	w.logger.Info("bundle processed",
		slog.String("path", path),
		slog.String("incident_id", analysis.IncidentID))
}

func isBundle(path string) bool {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	return !strings.HasSuffix(name, resultSuffix)
}
