package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/taxcerts/internal/batch"
	"github.com/joseph-ayodele/taxcerts/internal/common"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		inputDir string
		pattern  string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every property archive in a directory",
		Long: `Processes all archives under --input-dir that match --pattern. Different
properties run in parallel; archives of the same property run in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := batch.Discover(inputDir, pattern)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return common.NewAppError("NO_ARCHIVES", fmt.Sprintf("no zip files found in %s", inputDir), common.ErrInvalidInput)
			}
			ctrl, err := a.controller(cmd.Context())
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = a.cfg.Batch.Workers
			}

			cmd.Printf("Processing %s...\n", properties(len(paths)))
			runner := batch.NewRunner(ctrl, workers, a.cfg.Batch.RunTimeout, a.logger)
			sum, err := runner.Run(cmd.Context(), paths)
			a.printSummary(cmd.OutOrStdout(), sum)
			return err
		},
	}
	cmd.Flags().StringVar(&inputDir, "input-dir", defaultInputDir, "directory holding property archives")
	cmd.Flags().StringVar(&pattern, "pattern", batch.DefaultPattern, "doublestar pattern selecting archives")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent properties (default from TAXCERTS_WORKERS)")
	return cmd
}

func (a *app) printSummary(w io.Writer, sum batch.Summary) {
	for i, o := range sum.Outcomes {
		prefix := fmt.Sprintf("[%d/%d] %s", i+1, sum.Total, o.PropertyID)
		switch {
		case o.Path == "":
			fmt.Fprintf(w, "%s %s\n", prefix, dimStyle.Render("not started"))
		case o.Err != nil:
			fmt.Fprintf(w, "%s %s\n", prefix, errorStyle.Render(o.Err.Error()))
		case o.Issues > 0:
			fmt.Fprintf(w, "%s %s\n", prefix, warnStyle.Render(fmt.Sprintf("%s, %d validation issues", o.Method, o.Issues)))
		default:
			fmt.Fprintf(w, "%s %s\n", prefix, okStyle.Render(string(o.Method)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, headingStyle.Render("BATCH PROCESSING SUMMARY"))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\nTotal properties: %d\n", sum.Total)
	fmt.Fprintf(w, "   Successful: %d\n", sum.Succeeded)
	fmt.Fprintf(w, "   Failed: %d\n", sum.Failed)

	if sum.Succeeded > 0 {
		fmt.Fprintln(w, "\nExtraction methods:")
		fmt.Fprintf(w, "   Text-only: %d\n", sum.Text)
		fmt.Fprintf(w, "   Vision: %d\n", sum.Vision)
		if sum.Text > 0 {
			fmt.Fprintf(w, "   Cost savings: ~%.1f%% used cheaper text extraction\n", sum.TextShare()*100)
		}
	}
	fmt.Fprintf(w, "\nElapsed: %s\n", sum.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Datasets saved to: %s\n", a.savedAt("*"))
}
