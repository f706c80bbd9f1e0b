package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipca-labs/aquasentry/internal/server"
)

var serveWithListener bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sample-evaluation API server",
	Long: `Serves the evaluation API the dashboard posts completed
classifications to. With --with-listener the bot listener runs in the
same process; the two share nothing but the state store either way.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWithListener, "with-listener", false, "also run the bot listener in this process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	evaluator, store, hist, err := initEvaluator(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	if hist != nil {
		defer hist.Close()
	}

	apiServer := server.New(evaluator, store, hist, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  parseDurationOr(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: parseDurationOr(cfg.Server.WriteTimeout, 60*time.Second),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("evaluation server started", "listen", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	if serveWithListener {
		listener, listenErr := buildListener(cfg, store, logger)
		if listenErr != nil {
			return fmt.Errorf("init bot listener: %w", listenErr)
		}
		go func() {
			errCh <- listener.Run(ctx)
		}()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
