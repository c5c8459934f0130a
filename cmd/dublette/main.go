// dublette deduplicates regional event listings across publisher feeds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dublette/internal/config"
	"dublette/internal/logging"
	"dublette/internal/resolver"
	"dublette/internal/store"
)

var (
	configPath string
	dbPath     string
	verbose    bool
	operator   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dublette",
	Short: "dublette - regional event deduplication engine",
	Long: `dublette ingests event feeds from regional publishers, scores candidate
pairs across sources, resolves ambiguous pairs via LLM, and synthesizes one
canonical event per real-world occurrence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Dir:        cfg.Logging.Dir,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config yaml (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&operator, "operator", defaultOperator(), "operator name recorded in the audit log")

	rootCmd.AddCommand(processCmd, processAllCmd, watchCmd, reviewCmd, evalCmd, statsCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultOperator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	return store.Open(cfg.DatabasePath)
}

// buildResolver wires the Gemini resolver when AI resolution is on and a key
// is present; otherwise the pipeline runs deterministically.
func buildResolver(ctx context.Context, s *store.Store) (*resolver.Resolver, error) {
	if !cfg.AI.Enabled || cfg.AI.APIKey == "" {
		if cfg.AI.Enabled {
			logger.Warn("AI resolution enabled but no API key present, running deterministically")
		}
		return nil, nil
	}
	timeout, err := time.ParseDuration(cfg.AI.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid ai.request_timeout %q: %w", cfg.AI.RequestTimeout, err)
	}
	client, err := resolver.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model,
		cfg.AI.Temperature, cfg.AI.MaxOutputTokens, timeout)
	if err != nil {
		return nil, err
	}
	return resolver.New(client, s, s, cfg.AI)
}
