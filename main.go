package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vgnam/Library-Management-System-sub000/config"
	"github.com/vgnam/Library-Management-System-sub000/services"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "Library management backend",
	Long: `REST backend for a public library: catalog search, borrow requests,
returns with fines, reading-card infractions, acquisitions and staff
dashboards.

Settings come from a YAML file (--config) with DB_*, PORT, JWT_SECRET and
LOG_LEVEL environment overrides.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		zc := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zapcore.InfoLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, sweepCmd)
}

// openStore connects to MySQL and builds the shared service layer. push is
// nil for one-shot commands.
func openStore(ctx context.Context, push services.Pusher) (*store.MySQLStore, *services.Services, error) {
	st, err := store.NewMySQLStore(ctx, cfg.Database, logger.Named("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	env := &services.Env{
		Store:  st,
		Logger: logger.Named("services"),
		Loc:    cfg.Library.Location(),
		Push:   push,
	}
	tokens := utils.NewTokenIssuer(cfg.Auth)
	return st, services.New(env, tokens, cfg.Library.RegisterOffice), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
