package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent alert evaluations and their delivery outcomes",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hist, err := initHistory(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if hist == nil {
		fmt.Println("History is not configured (history.path is empty).")
		return nil
	}
	defer hist.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := hist.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No evaluations recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIME\tLABEL\tPH\tTRIGGERED\tDELIVERED\tREASONS\n")
	for _, r := range records {
		delivered := "-"
		if r.Triggered {
			if r.Delivered {
				delivered = "yes"
			} else {
				delivered = "no: " + r.Diagnostic
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%v\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Label, r.PH, r.Triggered, delivered, r.Reasons,
		)
	}
	w.Flush()

	return nil
}
