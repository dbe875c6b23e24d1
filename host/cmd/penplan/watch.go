package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"penplan/motion/config"
)

// debounce collapses the burst of events editors emit for one save
const debounce = 200 * time.Millisecond

// watch re-plans whenever the drawing or the config file changes, until ctx
// is done. Each replan supersedes the previous one.
func watch(ctx context.Context, s *session, configPath string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories so atomic renames by editors are seen.
	targets := map[string]bool{}
	for _, p := range []string{s.inputPath, configPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
	}

	replan := func() {
		if configPath != "" {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				logger.Error("reloading config", "err", err)
				return
			}
			s.cfg = cfg
		}
		d, err := loadDrawing(s.inputPath)
		if err != nil {
			logger.Error("reloading drawing", "err", err)
			return
		}
		s.drawing = d
		go func(cfg *config.Config) {
			plan, err := s.manager.Replan(ctx, d, cfg)
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				logger.Error("replan failed", "err", err)
				return
			}
			fmt.Fprintln(s.out, plan.Summary())
		}(s.cfg)
	}

	replan()
	logger.Info("watching for changes", "input", s.inputPath, "config", configPath)

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !targets[abs] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
				timer = time.After(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		case <-timer:
			timer = nil
			replan()
		}
	}
}
