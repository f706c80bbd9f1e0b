package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sipca-labs/aquasentry/pkg/model"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one classified sample and dispatch any alert",
	Long: `Runs the evaluation pipeline once for a single classification
result, exactly as the dashboard would: the snapshot is written for the
bot's /status command, the alert rules run, and a triggered alert is
dispatched once to the bound operator.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("label", "", "classification label (POTABLE or NOT_POTABLE)")
	evaluateCmd.Flags().Float64("ph", 7.0, "measured pH value")
	evaluateCmd.Flags().Float64("confidence", 0, "model confidence percentage (0-100)")
	_ = evaluateCmd.MarkFlagRequired("label")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	label, _ := cmd.Flags().GetString("label")
	ph, _ := cmd.Flags().GetFloat64("ph")
	confidence, _ := cmd.Flags().GetFloat64("confidence")

	sample := model.Sample{
		Label:         model.SampleLabel(strings.ToUpper(label)),
		PH:            ph,
		ConfidencePct: confidence,
	}
	if !sample.Label.Valid() {
		return fmt.Errorf("label must be POTABLE or NOT_POTABLE, got %q", label)
	}

	evaluator, _, hist, err := initEvaluator(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	if hist != nil {
		defer hist.Close()
	}

	result, err := evaluator.Evaluate(cmd.Context(), sample)
	if err != nil {
		return fmt.Errorf("evaluate sample: %w", err)
	}

	fmt.Printf("Sample evaluated:\n")
	fmt.Printf("  Label:       %s\n", result.Snapshot.Label)
	fmt.Printf("  pH:          %.2f\n", result.Snapshot.PH)
	fmt.Printf("  Confidence:  %.1f%%\n", result.Snapshot.ConfidencePct)

	if !result.Event.Triggered {
		fmt.Println("No alert triggered.")
		return nil
	}

	fmt.Printf("Alert triggered:\n")
	for _, reason := range result.Event.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
	if result.Delivery.Delivered {
		fmt.Println("Alert delivered to the bound operator.")
	} else {
		fmt.Printf("Alert NOT delivered: %s\n", result.Delivery.Diagnostic)
	}

	return nil
}
