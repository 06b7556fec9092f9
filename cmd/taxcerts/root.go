package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "taxcerts",
		Short: "Extract property tax data from certificate archives",
		Long: `taxcerts reads zip archives of property tax certificates, extracts the
tax year, amounts, payment dates, county and parcel number, and keeps one
dataset per property that later archives fill in incrementally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	f := root.PersistentFlags()
	f.BoolVarP(&a.opts.verbose, "verbose", "v", false, "show detailed processing logs")
	f.StringVar(&a.opts.logFile, "log-file", "", "also append logs to this file")
	f.BoolVar(&a.opts.jsonLogs, "json-logs", false, "emit logs as JSON")
	f.StringVar(&a.opts.store, "store", "", "dataset store: fs, sqlite or postgres (default from TAXCERTS_STORE)")
	f.StringVar(&a.opts.outputDir, "output-dir", "", "store root for datasets and archived documents (default from TAXCERTS_OUTPUT_DIR)")

	root.AddCommand(
		newProcessCmd(a),
		newExtractCmd(a),
		newBatchCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newAccuracyCmd(a),
		newDBHealthCmd(a),
	)
	return root
}
