package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sipca-labs/aquasentry/internal/bot"
	"github.com/sipca-labs/aquasentry/internal/config"
	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the Telegram bot listener",
	Long: `Runs the long-lived bot listener that answers operator commands
(/start, /status, /help, /info, /report) from the shared state store.
Stops cleanly on SIGINT/SIGTERM; a persistent transport failure halts it
with an error and requires an operational restart.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

// buildListener wires the bot listener. Fails before the loop ever starts
// when no channel credential is configured.
func buildListener(cfg *config.Config, store *statestore.Store, logger *slog.Logger) (*bot.Listener, error) {
	tg, err := initTelegram(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure telegram channel: %w", err)
	}

	glossary, err := initGlossary(cfg)
	if err != nil {
		return nil, fmt.Errorf("load glossary: %w", err)
	}

	return bot.NewListener(tg, bot.NewRouter(store, glossary), logger), nil
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	listener, err := buildListener(cfg, store, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return listener.Run(ctx)
}
