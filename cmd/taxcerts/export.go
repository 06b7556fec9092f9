package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored dataset to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			data, err := export.NewService(store, a.logger).ExportDatasetsXLSX(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return common.WrapError(err, "write "+out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Exported to: "+out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "datasets.xlsx", "workbook path")
	return cmd
}
