// Package replan runs the preparation and planning pipeline and lets a newer
// request supersede one that is still running.
package replan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"penplan/motion/config"
	"penplan/motion/planner"
	"penplan/motion/prep"
)

// Run prepares the drawing and plans it with the configured profiles
func Run(ctx context.Context, d prep.Drawing, cfg *config.Config) (*planner.Plan, error) {
	prepOpts, err := cfg.PrepOptions()
	if err != nil {
		return nil, fmt.Errorf("replan: %w", err)
	}
	paths, err := prep.Process(ctx, d, prepOpts)
	if err != nil {
		return nil, err
	}
	return planner.PlanPaths(ctx, paths, cfg.PlannerOptions())
}

// Manager serialises replans. Starting a new one cancels the previous call,
// which then returns context.Canceled.
type Manager struct {
	Logger *slog.Logger // optional

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc

	run func(context.Context, prep.Drawing, *config.Config) (*planner.Plan, error)
}

// NewManager creates a manager logging to logger (may be nil)
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{Logger: logger, run: Run}
}

// Replan cancels any in-flight call and plans d with cfg
func (m *Manager) Replan(ctx context.Context, d prep.Drawing, cfg *config.Config) (*planner.Plan, error) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.seq++
	id := m.seq
	m.cancel = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.seq == id {
			m.cancel = nil
		}
		m.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	run := m.run
	if run == nil {
		run = Run
	}
	plan, err := run(ctx, d, cfg)
	if err != nil {
		m.log().Debug("replan stopped", "id", id, "err", err)
		return nil, err
	}
	// A call superseded after its last checkpoint still must not win.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	sum := plan.Summary()
	m.log().Info("replanned",
		"id", id,
		"blocks", sum.Blocks,
		"strokes", sum.Strokes,
		"duration", sum.Duration,
		"elapsed", time.Since(start))
	return plan, nil
}

// Cancel stops the in-flight call, if any
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) log() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Logger
}
