package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"quaderno/internal/adapters/editor"
	"quaderno/internal/adapters/tui"
	"quaderno/internal/config"
	"quaderno/internal/logging"
	"quaderno/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// the TUI owns the terminal, so logs only go to a file
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(cfg.Home, "quaderno.log")
	}
	logger, closer, err := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		File:    logFile,
		Service: "quaderno",
		Quiet:   true,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := context.Background()
	alerts := tui.NewAlerts(16)
	ws, err := workspace.Open(ctx, &cfg, workspace.Options{Logger: logger, Alerts: alerts})
	if err != nil {
		return err
	}
	defer ws.Close()
	stop := ws.Start(ctx)
	defer stop()

	session := tui.NewLoopSession(ws.Loop, ws.Store, cfg.User)
	app := tui.NewApp(session, ws.Loop.Updates(), alerts, editor.NewOpener(cfg.Editor))

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, runErr := p.Run()

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ws.Settle(sctx); err != nil {
		logger.Warn("exiting with unsaved pages", "error", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return runErr
}
