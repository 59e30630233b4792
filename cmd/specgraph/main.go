package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"specgraph/internal/config"
	"specgraph/internal/element"
	"specgraph/internal/logging"
	"specgraph/internal/pipeline"
	"specgraph/internal/render"
	"specgraph/internal/storage"
	"specgraph/internal/watch"
)

var (
	rootCmd = &cobra.Command{
		Use:               "specgraph",
		Short:             "Discover behavior specifications in Go test code",
		PersistentPreRunE: setup,
		SilenceUsage:      true,
	}
	dbPath     string
	configPath string
	logLevel   string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the snapshot database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	scanCmd.Flags().String("from", pipeline.FromSource, "Declaration source: source or packages")
	scanCmd.Flags().Bool("prune", false, "Drop invalid elements from the snapshot")
	updateCmd.Flags().Bool("force", false, "Rescan even when git reports no changes")
	treeCmd.Flags().Bool("hide-invalid", false, "Leave invalid elements out")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(treeCmd)
}

// setup loads the config, applies flag overrides and stores the logger in the command context.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(cfg.Log.Level, os.Stderr)
	if err != nil {
		return err
	}
	cmd.SetContext(log.WithContext(cmd.Context(), logger))
	return nil
}

func projectRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Project.Root
}

// openSession opens the store and restores the project's last snapshot.
func openSession(ctx context.Context, root string) (*pipeline.Session, func(), error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	session, err := pipeline.OpenSession(ctx, root, cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return session, func() {
		session.Close()
		store.Close()
	}, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan the module and update the element snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		from, _ := cmd.Flags().GetString("from")
		root := projectRoot(args)

		fmt.Printf("📂 Scanning module: %s\n", root)
		session, closeSession, err := openSession(ctx, root)
		if err != nil {
			return err
		}
		defer closeSession()

		start := time.Now()
		report, err := session.Scan(ctx, from)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Pass completed in %v: %s\n", time.Since(start), report)
		if prune, _ := cmd.Flags().GetBool("prune"); prune {
			fmt.Printf("🧹 Pruned %d invalid elements\n", session.PruneInvalid())
		}

		fmt.Println("💾 Saving to local database...")
		if err := session.Save(ctx); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		fmt.Printf("🎉 Scan complete! Database: %s\n", cfg.Storage.Path)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rescan the module when git reports changed Go files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		sync := pipeline.NewIncrementalSync(cfg.Storage.Path, cfg)
		_, err := sync.Run(cmd.Context(), force)
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rescan the module whenever a Go file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		root := projectRoot(args)

		session, closeSession, err := openSession(ctx, root)
		if err != nil {
			return err
		}
		defer closeSession()

		rescan := func(ctx context.Context, changed []string) error {
			if len(changed) > 0 {
				fmt.Printf("📝 %d files changed\n", len(changed))
			}
			report, err := session.Scan(ctx, pipeline.FromSource)
			if err != nil {
				return err
			}
			fmt.Printf("📊 %s\n", report)
			return session.Save(ctx)
		}
		if err := rescan(ctx, nil); err != nil {
			return err
		}

		w, err := watch.New(watch.Config{
			Root:     session.Root(),
			Ignore:   cfg.Scan.Ignore,
			OnChange: rescan,
			Logger:   log.FromContext(ctx),
		})
		if err != nil {
			return err
		}
		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", session.Root())
		return w.Run(ctx)
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the element tree of the last snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hideInvalid, _ := cmd.Flags().GetBool("hide-invalid")
		session, closeSession, err := openSession(cmd.Context(), projectRoot(args))
		if err != nil {
			return err
		}
		defer closeSession()

		reg := session.Registry()
		fmt.Println(render.Tree(reg, session.Project(), render.Options{HideInvalid: hideInvalid}))

		states := reg.StateCounts(session.Project())
		kinds := reg.KindCounts(session.Project())
		fmt.Printf("\n%d contexts, %d behaviors: %d valid, %d pending, %d invalid\n",
			kinds[element.KindContext], kinds[element.KindBehavior],
			states[element.Valid], states[element.Pending], states[element.Invalid])
		return nil
	},
}
