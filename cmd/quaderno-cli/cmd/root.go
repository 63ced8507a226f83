package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quaderno/internal/application/reconcile"
	"quaderno/internal/config"
	"quaderno/internal/domain"
	"quaderno/internal/logging"
	"quaderno/internal/workspace"
)

// skipWorkspace marks commands that run without opening the page store
const skipWorkspace = "skip-workspace"

var (
	cfg      config.Config
	userFlag string
	dbFlag   string
	logLevel string

	ws         *workspace.Workspace
	logger     *slog.Logger
	logCloser  io.Closer
	stopLoop   func()
	settleWait = 5 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "quaderno-cli",
	Short: "Command-line access to quaderno pages",
	Long: `quaderno-cli reads and edits outline pages from the command line.

Pages are markdown outlines. A line of the form "- =query" is a formula:
its answer and the matching lines from other pages are kept underneath it,
and editing one of those lines edits the page it came from.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Annotations[skipWorkspace] != "" {
			return nil
		}
		return openWorkspace(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeWorkspace(cmd.Context())
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		closeWorkspace(context.Background())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user whose pages to use (default from config)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "path to the page database (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from config)")
}

func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if userFlag != "" {
		cfg.User = userFlag
	}
	if dbFlag != "" {
		cfg.Database = config.ExpandHome(dbFlag)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg.Validate()
}

func openWorkspace(ctx context.Context) error {
	if err := loadConfig(); err != nil {
		return err
	}

	var err error
	logger, logCloser, err = logging.New(logging.Config{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Service: "quaderno-cli",
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ws, err = workspace.Open(ctx, &cfg, workspace.Options{Logger: logger})
	if err != nil {
		return err
	}
	stopLoop = ws.Start(ctx)
	return nil
}

// closeWorkspace saves whatever the command changed and shuts down
func closeWorkspace(ctx context.Context) error {
	if ws == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, settleWait)
	defer cancel()
	err := ws.Settle(sctx)

	stopLoop()
	ws.Close()
	logCloser.Close()
	ws = nil
	return err
}

// GetWorkspace returns the opened workspace
func GetWorkspace() *workspace.Workspace {
	return ws
}

// livePage looks a page up by title in the running loop
func livePage(ctx context.Context, title string) (domain.Page, error) {
	var (
		p  domain.Page
		ok bool
	)
	if err := ws.Loop.Inspect(ctx, func(e *reconcile.Engine) {
		p, ok = e.PageByTitle(title)
	}); err != nil {
		return p, err
	}
	if !ok {
		return p, fmt.Errorf("page not found: %s", title)
	}
	return p, nil
}
