package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/accuracy"
	"github.com/joseph-ayodele/taxcerts/internal/common"
)

func newAccuracyCmd(a *app) *cobra.Command {
	var (
		truthPath  string
		reportPath string
	)
	cmd := &cobra.Command{
		Use:   "accuracy [property-id...]",
		Short: "Compare stored datasets with verified ground truth",
		Long: `Reads a ground-truth JSON object keyed by property id and scores every
stored dataset (or only the given properties) field by field.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(truthPath)
			if err != nil {
				return common.NewAppError("GROUND_TRUTH_NOT_FOUND", fmt.Sprintf("cannot read %s", truthPath), common.ErrInvalidInput)
			}
			truth := gjson.ParseBytes(raw)
			if !gjson.ValidBytes(raw) || !truth.IsObject() {
				return common.NewAppError("INVALID_GROUND_TRUTH", "ground truth must be a JSON object keyed by property id", common.ErrInvalidInput)
			}
			byID := map[string]gjson.Result{}
			truth.ForEach(func(k, v gjson.Result) bool {
				byID[k.String()] = v
				return true
			})

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			ids := args
			if len(ids) == 0 {
				if ids, err = store.ListPropertyIDs(cmd.Context()); err != nil {
					return err
				}
			}

			var results []accuracy.PropertyResult
			for _, id := range ids {
				gt, ok := byID[id]
				if !ok {
					cmd.PrintErrln(warnStyle.Render(fmt.Sprintf("Warning: property %s not in ground truth, skipping", id)))
					continue
				}
				d, err := store.GetDataset(cmd.Context(), id)
				if err != nil {
					return err
				}
				if d == nil {
					cmd.PrintErrln(warnStyle.Render(fmt.Sprintf("Warning: no dataset for property %s, skipping", id)))
					continue
				}
				res, err := accuracy.Compare(id, *d, []byte(gt.Raw))
				if err != nil {
					return err
				}
				results = append(results, res)
			}

			rep := accuracy.Summarize(results)
			printReport(cmd.OutOrStdout(), rep)
			if reportPath == "" {
				return nil
			}
			f, err := os.Create(reportPath)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			defer f.Close()
			if err := writeJSON(f, rep); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			cmd.Println("Detailed results saved to: " + reportPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&truthPath, "truth", "ground_truth.json", "ground-truth JSON file")
	cmd.Flags().StringVar(&reportPath, "report", "", "also write the detailed report as JSON")
	return cmd
}

func printReport(w io.Writer, rep accuracy.Report) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, headingStyle.Render("ACCURACY REPORT"))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\nTotal properties: %d\n", len(rep.Properties))
	fmt.Fprintf(w, "Total fields tested: %d\n", rep.Total)
	fmt.Fprintf(w, "Overall accuracy: %.2f%%\n", rep.Overall()*100)
	fmt.Fprintf(w, "Perfect extractions: %d/%d\n", rep.Perfect, len(rep.Properties))

	fmt.Fprintln(w, "\nField-by-field accuracy:")
	for _, field := range constants.RequiredFields {
		rate, ok := rep.Fields[field]
		if !ok || rate.Total == 0 {
			continue
		}
		pct := float64(rate.Matches) / float64(rate.Total) * 100
		line := fmt.Sprintf("  %-25s %6.2f%% (%d/%d)", field, pct, rate.Matches, rate.Total)
		if rate.Matches == rate.Total {
			fmt.Fprintln(w, okStyle.Render(line))
		} else {
			fmt.Fprintln(w, warnStyle.Render(line))
		}
	}

	var imperfect []accuracy.PropertyResult
	for _, pr := range rep.Properties {
		if pr.Matching < pr.Total {
			imperfect = append(imperfect, pr)
		}
	}
	if len(imperfect) == 0 {
		fmt.Fprintln(w, okStyle.Render("\nAll properties extracted perfectly"))
		return
	}
	sort.Slice(imperfect, func(i, j int) bool { return imperfect[i].PropertyID < imperfect[j].PropertyID })
	fmt.Fprintf(w, "\nProperties with mismatches (%d):\n", len(imperfect))
	for _, pr := range imperfect {
		fmt.Fprintf(w, "\n  Property: %s\n", pr.PropertyID)
		fmt.Fprintf(w, "  Accuracy: %.2f%% (%d/%d)\n", pr.Accuracy()*100, pr.Matching, pr.Total)
		for _, fr := range pr.Fields {
			if fr.Match {
				continue
			}
			fmt.Fprintf(w, "    %s (%s):\n", errorStyle.Render(fr.Field), fr.Kind)
			fmt.Fprintf(w, "       Agent:        %v\n", valueOrNA(fr.Agent))
			fmt.Fprintf(w, "       Ground truth: %v\n", valueOrNA(fr.Truth))
			if fr.Difference != nil {
				fmt.Fprintf(w, "       Difference:   %.2f\n", *fr.Difference)
			}
		}
	}
}

func valueOrNA(v any) any {
	if v == nil {
		return "N/A"
	}
	return v
}
