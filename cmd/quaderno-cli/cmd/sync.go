package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quaderno/internal/adapters/filesystem"
	"quaderno/internal/adapters/obsidian"
	"quaderno/internal/config"
	"quaderno/internal/workspace"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued updates and pull remote changes",
	Long: `Send updates queued while the store was unreachable, pull pages changed
elsewhere and save every pending edit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := GetWorkspace().Loop.Sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Synced, %d queued updates sent\n", n)
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List updates waiting in the offline queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		updates, err := GetWorkspace().Queue.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}
		for _, u := range updates {
			fmt.Printf("%-40s rev %-4d queued %s\n", u.Title, u.ExpectedRevision, u.QueuedAt.Format(time.DateTime))
		}
		return nil
	},
}

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror pages to markdown files and keep both in step",
	Long: `Write every page to a markdown file in the mirror directory and keep
running: page changes are written to the files, and files edited by other
programs (Obsidian, an editor) are read back as page edits.

With --metrics-addr the Prometheus metrics of the reconciliation loop are
served on /metrics.

Examples:
  quaderno-cli watch
  quaderno-cli watch --metrics-addr :9464`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if metricsAddr == "" {
			metricsAddr = cfg.MetricsAddr
		}
		mirror, err := filesystem.NewMirror(cfg.MirrorDir, logger)
		if err != nil {
			return err
		}
		logger.Info("watching", "mirror", cfg.MirrorDir, "metrics", metricsAddr)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return GetWorkspace().Mirror(gctx, mirror)
		})
		if metricsAddr != "" {
			g.Go(func() error {
				return workspace.ServeMetrics(gctx, metricsAddr)
			})
		}
		return g.Wait()
	},
}

var openCmd = &cobra.Command{
	Use:   "open <title>",
	Short: "Open a page in Obsidian",
	Long: `Write the page to the mirror directory and open it in Obsidian, using the
mirror directory as the vault. Run watch to bring edits back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := livePage(ctx, args[0])
		if err != nil {
			return err
		}
		pages, err := GetWorkspace().Pages(ctx)
		if err != nil {
			return err
		}

		mirror, err := filesystem.NewMirror(cfg.MirrorDir, logger)
		if err != nil {
			return err
		}
		defer mirror.Stop()
		if err := mirror.Write(pages); err != nil {
			return err
		}
		return obsidian.NewOpener(cfg.MirrorDir).Edit(mirror.Path(p.Title))
	},
}

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default config file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipWorkspace: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		def := config.Default(config.HomeDir())
		if userFlag != "" {
			def.User = userFlag
		}
		path, err := config.WriteDefault(def)
		if err != nil {
			return err
		}
		fmt.Printf("Config: %s\n", path)
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default from config)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(initCmd)
}
