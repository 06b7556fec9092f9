package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/pipeline"
	"github.com/joseph-ayodele/taxcerts/internal/validation"
)

const defaultInputDir = "tax_certificates"

func newProcessCmd(a *app) *cobra.Command {
	var propertyID string
	cmd := &cobra.Command{
		Use:   "process <archive>",
		Short: "Process one property's tax certificate archive",
		Long: `Runs the extraction pipeline for one zip archive (or a directory of PDFs).
The property id defaults to the last underscore-separated part of the archive name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.processOne(cmd, args[0], propertyID)
		},
	}
	cmd.Flags().StringVar(&propertyID, "property-id", "", "property id (defaults to the archive name)")
	return cmd
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		name     string
		inputDir string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Find a property's archive by name and process it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := common.NewValidator().Field("name", name, common.Required).Error(); err != nil {
				return err
			}
			archive, err := findArchive(inputDir, name)
			if err != nil {
				return err
			}
			cmd.Println(dimStyle.Render("Found: " + filepath.Base(archive)))
			return a.processOne(cmd, archive, "")
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "property name or id to look for")
	cmd.Flags().StringVar(&inputDir, "input-dir", defaultInputDir, "directory holding property archives")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// findArchive returns the first archive in dir whose name contains name.
func findArchive(dir, name string) (string, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return "", common.NewAppError("INPUT_NOT_FOUND", fmt.Sprintf("input directory not found: %s", dir), common.ErrInvalidInput)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+name+"*.zip"))
	if err != nil {
		return "", common.NewAppError("INVALID_NAME", err.Error(), common.ErrInvalidInput)
	}
	if len(matches) == 0 {
		return "", common.NewAppError("ARCHIVE_NOT_FOUND", fmt.Sprintf("no zip file found matching %q in %s", name, dir), common.ErrNotFound)
	}
	sort.Strings(matches)
	return matches[0], nil
}

func (a *app) processOne(cmd *cobra.Command, archive, propertyID string) error {
	if _, err := os.Stat(archive); err != nil {
		return common.NewAppError("ARCHIVE_NOT_FOUND", fmt.Sprintf("archive not found: %s", archive), common.ErrInvalidInput)
	}
	ctrl, err := a.controller(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Processing...")
	st, err := ctrl.Process(cmd.Context(), archive, propertyID)
	if err != nil {
		return err
	}
	return a.displayResults(cmd.OutOrStdout(), st)
}

func (a *app) displayResults(w io.Writer, st pipeline.State) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, headingStyle.Render("PROPERTY: "+st.PropertyID))
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "\nExtracted Data:")
	var final entity.Dataset
	if st.Final != nil {
		final = *st.Final
	}
	if err := writeJSON(w, final.Visible()); err != nil {
		return err
	}

	if len(st.Issues) > 0 {
		fmt.Fprintln(w, warnStyle.Render("\nValidation Warnings:"))
		for _, issue := range st.Issues {
			line := "  • " + issue.Message
			if issue.Severity == validation.SeverityWarning {
				line += dimStyle.Render(" (warning)")
			}
			fmt.Fprintln(w, line)
		}
	} else {
		fmt.Fprintln(w, okStyle.Render("\nNo validation issues"))
	}

	fmt.Fprintln(w, "\nProcessing Info:")
	fmt.Fprintf(w, "  • Documents: %d\n", len(st.Documents.New))
	if len(st.Skipped) > 0 {
		fmt.Fprintf(w, "  • Skipped: %d malformed\n", len(st.Skipped))
	}
	if st.Method != "" {
		fmt.Fprintf(w, "  • Method: %s-based extraction\n", st.Method)
	}
	fmt.Fprintf(w, "  • Saved to: %s\n", a.savedAt(st.PropertyID))
	return nil
}
