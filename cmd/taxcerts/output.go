package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true)
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
)

const rule = "============================================================"

// Output formats shared by show and search.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
	formatCSV   = "csv"
)

func printError(w io.Writer, err error) {
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
		if appErr.Cause != nil && !errors.Is(appErr.Cause, common.ErrInvalidInput) {
			msg += ": " + appErr.Cause.Error()
		}
	}
	fmt.Fprintln(w, errorStyle.Render("Error: "+msg))
}

// exitCode is 2 for usage and input problems and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrNotFound) {
		return 2
	}
	return 1
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		return writeYAML(w, v)
	default:
		return writeJSON(w, v)
	}
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return common.NewAppError("INVALID_FORMAT",
		fmt.Sprintf("unknown format %q (use %s)", format, strings.Join(allowed, ", ")), common.ErrInvalidInput)
}

// properties renders "1 property" / "3 properties".
func properties(n int) string {
	if n == 1 {
		return "1 property"
	}
	return fmt.Sprintf("%d properties", n)
}

func orNA(p *string) string {
	if p == nil || *p == "" {
		return "N/A"
	}
	return *p
}

func moneyOrNA(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return "$" + humanize.FormatFloat("#,###.##", *p)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// propertyView is the user-facing shape of one stored dataset.
type propertyView struct {
	PropertyID string                `json:"property_id" yaml:"property_id"`
	Dataset    entity.VisibleDataset `json:"dataset" yaml:"dataset"`
}
