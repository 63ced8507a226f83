// Package workspace wires the page store, offline queue, formula service and
// reconciliation loop together from configuration. Every binary starts from
// here.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quaderno/internal/adapters/claudecli"
	"quaderno/internal/adapters/filesystem"
	"quaderno/internal/adapters/sqlite"
	"quaderno/internal/application/formula"
	"quaderno/internal/application/reconcile"
	"quaderno/internal/config"
	"quaderno/internal/domain"
	"quaderno/internal/ports"
)

// Options tune how a workspace is assembled
type Options struct {
	Logger *slog.Logger
	Alerts ports.Alerter
	// NoResolver skips the Claude CLI even when it is installed, leaving
	// only the builtin formulas
	NoResolver bool
}

// Workspace is an opened page collection with its loop
type Workspace struct {
	Config   *config.Config
	Store    *sqlite.Store
	Queue    *filesystem.Queue
	Formulas *formula.Service
	Engine   *reconcile.Engine
	Loop     *reconcile.Loop
	Logger   *slog.Logger
}

// Open assembles a workspace and loads the user's pages. The loop is not
// running yet; call Start.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Workspace, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}
	queue, err := filesystem.NewQueue(cfg.QueueDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open offline queue: %w", err)
	}

	var resolver ports.QueryResolver
	if !opts.NoResolver {
		r := claudecli.NewResolver(claudecli.WithModel(cfg.ClaudeModel))
		if r.IsAvailable() {
			resolver = r
		} else {
			logger.Info("claude CLI not found, natural language formulas stay unanswered")
		}
	}
	formulas := formula.NewService(resolver, logger)

	engine := reconcile.NewEngine(store, queue, formulas, opts.Alerts, reconcile.Config{
		UserID: cfg.User,
		Logger: logger,
	})
	if err := engine.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}

	loop := reconcile.NewLoop(engine, reconcile.LoopConfig{
		DebounceInterval: cfg.Debounce,
		RefreshInterval:  cfg.Refresh,
		Logger:           logger,
	})

	logger.Debug("workspace opened", "db", store.Path(), "user", cfg.User, "resolver", resolver != nil)
	return &Workspace{
		Config:   cfg,
		Store:    store,
		Queue:    queue,
		Formulas: formulas,
		Engine:   engine,
		Loop:     loop,
		Logger:   logger,
	}, nil
}

// Start runs the loop in the background. The returned function stops it
// and waits for it to exit.
func (w *Workspace) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.Logger.Error("reconciliation loop stopped", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Settle pushes pending edits to the store and waits until no page is
// waiting to be saved or for formula results
func (w *Workspace) Settle(ctx context.Context) error {
	if _, err := w.Loop.Sync(ctx); err != nil {
		return err
	}
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		var busy []string
		if err := w.Loop.Inspect(ctx, func(e *reconcile.Engine) {
			for _, p := range e.Pages() {
				switch p.Status {
				case domain.StatusUserEdit, domain.StatusPendingWrite, domain.StatusEditFromSharedNodes:
					busy = append(busy, p.Title)
				}
			}
		}); err != nil {
			return err
		}
		if len(busy) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("pages still unsaved %v: %w", busy, ctx.Err())
		case <-tick.C:
		}
	}
}

// Close releases the store
func (w *Workspace) Close() error {
	return w.Store.Close()
}
