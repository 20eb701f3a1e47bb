// Package cli implements the markov-bot CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/markov-bot/internal/config"
	"github.com/rcliao/markov-bot/internal/logging"
	"github.com/rcliao/markov-bot/internal/markov"
	"github.com/rcliao/markov-bot/internal/store"
	"github.com/rcliao/markov-bot/internal/telemetry"
)

var (
	configPath string
	dbPath     string
	backend    string
	order      int
	verbose    bool
	formatFlag string

	cfg               *config.Config
	logger            = zap.NewNop()
	shutdownTelemetry = func(context.Context) error { return nil }
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "markov-bot",
	Short: "A Markov chain chat bot",
	Long: "A chat bot that learns word sequences from what it hears and babbles back.\n" +
		"Chains are stored in SQLite by default, or PostgreSQL, Redis or memory.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownTelemetry(context.Background())
		logger.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $MARKOV_BOT_CONFIG or ~/.markov-bot/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default: $MARKOV_BOT_DB or ~/.markov-bot/markov.db)")
	RootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "Store backend: memory, sqlite, postgres, redis")
	RootCmd.PersistentFlags().IntVarP(&order, "order", "o", 0, "Chain order (words per state)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("MARKOV_BOT_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".markov-bot", "config.yaml")
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(getConfigPath())
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.Store.Path = dbPath
	}
	if backend != "" {
		c.Store.Backend = backend
	}
	if order != 0 {
		c.Order = order
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	l, err := logging.New(c.Logging, verbose)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled: c.Telemetry.Enabled,
		Writer:  os.Stderr,
		Logger:  l,
	})
	if err != nil {
		return err
	}

	cfg, logger, shutdownTelemetry = c, l, shutdown
	return nil
}

func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg, logger)
}

// openBot opens the configured store and wraps it in a bot. The caller
// closes the returned store.
func openBot(ctx context.Context) (*markov.Bot, store.Store, error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	chain, err := markov.NewChain(s, nil, cfg.Order)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	bot := markov.NewBot(chain, nil,
		markov.WithLogger(logger.Named("bot")),
		markov.WithMaxWords(cfg.MaxWords))
	return bot, s, nil
}

func exitErr(msg string, err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
