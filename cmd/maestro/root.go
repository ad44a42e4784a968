// Command maestro is a client for the Maestro data warehouse service:
// it waits on table runs, streams and fetches table exports, uploads
// data for external tables, and prints Postgres DDL for a table's
// schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voxmedia/maestro-go/internal/config"
	maestrohttp "github.com/voxmedia/maestro-go/internal/http"
	"github.com/voxmedia/maestro-go/pkg/maestro"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Client for the Maestro data warehouse service",
	Long: `maestro talks to a Maestro server: it waits for table runs to
finish, streams or fetches table export files, uploads data for
external tables, and prints Postgres DDL matching a table's schema.

Configuration is resolved from a YAML file, MAESTRO_* environment
variables, and command-line flags, in that order.`,
	SilenceUsage: true,
}

// Execute runs the root command with signal-aware cancellation.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("url", "", "Maestro server URL")
	rootCmd.PersistentFlags().String("token", "", "Maestro API token")
	rootCmd.PersistentFlags().StringP("table", "t", "", "table name (dataset.table)")
	rootCmd.PersistentFlags().Float64("max-sleep", 0, "poll interval ceiling in seconds")
	rootCmd.PersistentFlags().Bool("cleanup", false, "delete fetched export files on exit")

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func initLogger() {
	logLevel, err := rootCmd.PersistentFlags().GetString("log-level")
	if err != nil || logLevel == "" {
		logLevel = os.Getenv("MAESTRO_LOG_LEVEL")
	}
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.WithError(err).Warn("invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// loadConfig resolves the effective configuration: defaults, then the
// YAML file (when given), then the environment, then flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if cfgFile != "" {
		fileCfg, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	var flags config.Config
	flags.URL, _ = cmd.Flags().GetString("url")
	flags.Token, _ = cmd.Flags().GetString("token")
	flags.Table, _ = cmd.Flags().GetString("table")
	flags.MaxSleep, _ = cmd.Flags().GetFloat64("max-sleep")
	flags.Cleanup, _ = cmd.Flags().GetBool("cleanup")
	flags.LogLevel, _ = cmd.Flags().GetString("log-level")
	cfg = cfg.Merge(flags)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openTable creates a table handle from the resolved configuration.
func openTable(ctx context.Context, cfg config.Config) (*maestro.Table, error) {
	client, err := maestro.New(cfg.URL, cfg.Token, maestro.WithClientLogger(logger))
	if err != nil {
		return nil, err
	}

	transfer := maestrohttp.DefaultOptions()
	transfer.RetryAttempts = cfg.Retry.Attempts
	transfer.RetryBackoff = cfg.Retry.Backoff
	transfer.RetryMaxBackoff = cfg.Retry.MaxBackoff

	tbl, err := client.TableByName(ctx, cfg.Table,
		maestro.WithLogger(logger),
		maestro.WithMaxSleep(cfg.MaxSleep),
		maestro.WithCleanup(cfg.Cleanup),
		maestro.WithTransferOptions(transfer),
	)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", cfg.Table, err)
	}
	return tbl, nil
}
