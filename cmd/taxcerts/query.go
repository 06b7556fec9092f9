package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/search"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"list-properties"},
		Short:   "List properties that have a stored dataset",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := store.ListPropertyIDs(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(w, "No properties found.")
				return nil
			}
			fmt.Fprintf(w, "Found %s:\n", properties(len(ids)))
			for _, id := range ids {
				fmt.Fprintf(w, "  • %s\n", id)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <property-id>",
		Short: "Print the stored dataset of one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if err := checkFormat(format, formatJSON, formatYAML); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			d, err := store.GetDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if d == nil {
				return common.NewAppError("NOT_FOUND", fmt.Sprintf("no dataset for property %s", args[0]), common.ErrNotFound)
			}
			return writeFormatted(cmd.OutOrStdout(), format, d.Visible())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json or yaml")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <property-id>",
		Short: "Remove a property's dataset and archived documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.DeleteProperty(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Info("cli.delete.ok", "property_id", args[0])
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Deleted "+args[0]))
			return nil
		},
	}
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

func newSearchCmd(a *app) *cobra.Command {
	var (
		q      search.Query
		format string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored datasets by address, parcel, county or tax year",
		Long: `Criteria combine with AND. Address, parcel and county match as
case-insensitive substrings, or by similarity with --fuzzy. Tax year is exact.`,
		Example: `  taxcerts search --address "Main Street"
  taxcerts search --parcel 210-691
  taxcerts search --county "Contra Costa" --tax-year 2025
  taxcerts search --county Contra --fuzzy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(format)
			if err := checkFormat(format, formatJSON, formatYAML, formatTable, formatCSV); err != nil {
				return err
			}
			if q.Empty() {
				return common.NewAppError("INVALID_ARGUMENT", "provide at least one search criterion", common.ErrInvalidInput)
			}
			v := common.NewValidator().
				Field("threshold", q.Threshold, common.Between(0, 1)).
				Field("tax-year", q.TaxYear, common.Matches(yearPattern, "must be a four-digit year"))
			if err := v.Error(); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			hits, err := search.NewSearcher(store, a.logger).Search(cmd.Context(), q)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(w, "No properties found matching the search criteria.")
				return nil
			}
			switch format {
			case formatCSV:
				return writeHitsCSV(w, hits)
			case formatTable:
				fmt.Fprintf(w, "Found %s:\n\n", properties(len(hits)))
				return writeHitsTable(w, hits)
			default:
				views := make([]propertyView, 0, len(hits))
				for _, h := range hits {
					views = append(views, propertyView{PropertyID: h.PropertyID, Dataset: h.Dataset.Visible()})
				}
				return writeFormatted(w, format, views)
			}
		},
	}
	f := cmd.Flags()
	f.StringVarP(&q.Address, "address", "a", "", "property address (partial match)")
	f.StringVarP(&q.Parcel, "parcel", "p", "", "parcel number (partial match)")
	f.StringVarP(&q.County, "county", "c", "", "county name (partial match)")
	f.StringVarP(&q.TaxYear, "tax-year", "y", "", "tax year (exact match)")
	f.BoolVar(&q.Fuzzy, "fuzzy", false, "match approximately instead of by substring")
	f.Float64Var(&q.Threshold, "threshold", search.DefaultThreshold, "fuzzy similarity threshold between 0 and 1")
	f.StringVarP(&format, "format", "f", formatJSON, "output format: json, yaml, table or csv")
	return cmd
}

func writeHitsTable(w io.Writer, hits []search.Hit) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY ID\tADDRESS\tPARCEL\tCOUNTY\tYEAR\tANNUAL\tCLOSING")
	for _, h := range hits {
		d := h.Dataset
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(h.PropertyID, 23),
			truncate(orNA(d.PropertyAddress), 33),
			orNA(d.ParcelNumber),
			orNA(d.County),
			orNA(d.TaxYear),
			moneyOrNA(d.AnnualizedAmountDue),
			moneyOrNA(d.AmountDueAtClosing),
		)
	}
	return tw.Flush()
}

var csvHeader = []string{
	"property_id",
	"tax_year",
	"annualized_amount_due",
	"amount_due_at_closing",
	"county",
	"parcel_number",
	"next_tax_payment_date",
	"following_tax_payment_date",
	"property_address",
}

func writeHitsCSV(w io.Writer, hits []search.Hit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, h := range hits {
		if err := cw.Write(csvRow(h.PropertyID, h.Dataset)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(id string, d entity.Dataset) []string {
	num := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return []string{
		id,
		entity.StringValue(d.TaxYear),
		num(d.AnnualizedAmountDue),
		num(d.AmountDueAtClosing),
		entity.StringValue(d.County),
		entity.StringValue(d.ParcelNumber),
		entity.StringValue(d.NextTaxPaymentDate),
		entity.StringValue(d.FollowingTaxPaymentDate),
		entity.StringValue(d.PropertyAddress),
	}
}
