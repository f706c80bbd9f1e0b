package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the shared state: latest snapshot and operator binding",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	snap, err := store.LoadSnapshot()
	switch {
	case errors.Is(err, statestore.ErrNotFound):
		fmt.Println("No sample evaluated yet.")
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	default:
		fmt.Printf("Latest sample:\n")
		fmt.Printf("  Label:       %s\n", snap.Label)
		fmt.Printf("  pH:          %.2f\n", snap.PH)
		fmt.Printf("  Confidence:  %.1f%%\n", snap.ConfidencePct)
		fmt.Printf("  Observed at: %s\n", snap.ObservedAt)
	}

	binding, err := store.LoadBinding()
	switch {
	case errors.Is(err, statestore.ErrNotFound):
		fmt.Println("No operator connected. Send /start to the bot first.")
	case err != nil:
		return fmt.Errorf("load operator binding: %w", err)
	default:
		fmt.Printf("Alerts go to: %s (endpoint %s)\n", binding.DisplayName, binding.EndpointID)
	}

	return nil
}
