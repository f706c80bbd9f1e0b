package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipca-labs/aquasentry/internal/bot"
	"github.com/sipca-labs/aquasentry/internal/config"
	"github.com/sipca-labs/aquasentry/internal/pipeline"
	"github.com/sipca-labs/aquasentry/pkg/history"
	"github.com/sipca-labs/aquasentry/pkg/notify"
	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aquasentry",
	Short: "AquaSentry - water quality alerting and operator bot core",
	Long: `AquaSentry coordinates alerts for a water-sample evaluation system.
It evaluates classification results against alerting rules, pages the bound
operator over Telegram, and runs the bot listener that answers operator
commands from the shared state written by the evaluation pipeline.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.aquasentry/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStore opens the shared state store from config.
func initStore(cfg *config.Config) (*statestore.Store, error) {
	return statestore.New(cfg.Store.Dir)
}

// initHistory opens the alert audit log, or returns nil when disabled.
func initHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.History.Path == "" {
		return nil, nil
	}
	return history.Open(cfg.History.Path)
}

// initTelegram builds the Bot API client from config. Fails when no
// token is configured.
func initTelegram(cfg *config.Config) (*notify.Telegram, error) {
	return notify.NewTelegram(
		cfg.Telegram.Token,
		cfg.Telegram.APIBase,
		parseDurationOr(cfg.Dispatch.Timeout, 10*time.Second),
		parseDurationOr(cfg.Telegram.PollTimeout, 30*time.Second),
	)
}

// initGlossary loads the info-command vocabulary, applying the optional
// override file.
func initGlossary(cfg *config.Config) (bot.Glossary, error) {
	if cfg.Glossary.Path == "" {
		return bot.DefaultGlossary(), nil
	}
	return bot.LoadGlossary(cfg.Glossary.Path)
}

// initEvaluator wires the full evaluation pipeline.
func initEvaluator(cfg *config.Config, logger *slog.Logger) (*pipeline.Evaluator, *statestore.Store, *history.Store, error) {
	store, err := initStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	hist, err := initHistory(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	tg, err := initTelegram(cfg)
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		return nil, nil, nil, err
	}

	evaluator := pipeline.NewEvaluator(store, notify.NewDispatcher(tg), hist, logger)
	return evaluator, store, hist, nil
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
