// Package validation checks a merged dataset against required-field, range and
// cross-field business rules. Every issue is advisory: the verdict flags the run
// for review but never blocks persistence.
package validation

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one rule violation. Field is empty for cross-field checks that do
// not belong to a single key.
type Issue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string { return i.Message }

// Config holds every threshold the rules use.
type Config struct {
	MinTaxYear     int
	MaxYearsAhead  int
	HighAmount     float64
	ClosingRatio   float64
	MaxFutureYears int
	MinCountyLen   int
	MinParcelLen   int
	CountySuffixes []string
	AddressTokens  []string
	Now            func() time.Time
}

func DefaultConfig() Config {
	return Config{
		MinTaxYear:     2000,
		MaxYearsAhead:  2,
		HighAmount:     1_000_000,
		ClosingRatio:   2,
		MaxFutureYears: 3,
		MinCountyLen:   2,
		MinParcelLen:   3,
		CountySuffixes: []string{"County", "Parish"},
		AddressTokens:  []string{"st", "ave", "rd", "blvd", "drive", "street", "avenue"},
		Now:            time.Now,
	}
}

type Validator struct {
	cfg       Config
	addressRe *regexp.Regexp
	logger    *slog.Logger
}

func NewValidator(cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	v := &Validator{cfg: cfg, logger: logger}
	if len(cfg.AddressTokens) > 0 {
		quoted := make([]string, len(cfg.AddressTokens))
		for i, t := range cfg.AddressTokens {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(t))
		}
		v.addressRe = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return v
}

// Validate runs every rule group in fixed order. The verdict is true only when no
// issue of any severity was raised.
func (v *Validator) Validate(d entity.Dataset) (bool, []Issue) {
	now := v.cfg.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var issues []Issue
	issues = append(issues, v.required(d)...)
	issues = append(issues, v.taxYear(d, today)...)
	issues = append(issues, v.amounts(d)...)
	issues = append(issues, v.dates(d, today)...)
	issues = append(issues, v.county(d)...)
	issues = append(issues, v.parcel(d)...)

	valid := len(issues) == 0
	if valid {
		v.logger.Info("validation.ok")
	} else {
		for _, is := range issues {
			v.logger.Warn("validation.issue", "severity", is.Severity, "field", is.Field, "message", is.Message)
		}
	}
	return valid, issues
}

func (v *Validator) required(d entity.Dataset) []Issue {
	var out []Issue
	for _, f := range d.Missing() {
		out = append(out, Issue{SeverityError, f, "Missing required field: " + f})
	}
	return out
}

func (v *Validator) taxYear(d entity.Dataset, today time.Time) []Issue {
	if d.TaxYear == nil {
		return nil
	}
	ty := *d.TaxYear
	if len(ty) != 4 || !allDigits(ty) {
		return []Issue{{SeverityError, constants.FieldTaxYear,
			fmt.Sprintf("taxYear must be a 4-digit year string, got: %s", ty)}}
	}
	year, _ := strconv.Atoi(ty)
	upper := today.Year() + v.cfg.MaxYearsAhead
	if year < v.cfg.MinTaxYear || year > upper {
		return []Issue{{SeverityError, constants.FieldTaxYear,
			fmt.Sprintf("taxYear %d is outside reasonable range (%d-%d)", year, v.cfg.MinTaxYear, upper)}}
	}
	return nil
}

func (v *Validator) amounts(d entity.Dataset) []Issue {
	var out []Issue
	annualOK := v.amount(constants.FieldAnnualizedAmountDue, d.AnnualizedAmountDue, &out)
	closingOK := v.amount(constants.FieldAmountDueAtClosing, d.AmountDueAtClosing, &out)

	if annualOK && *d.AnnualizedAmountDue == 0 {
		out = append(out, Issue{SeverityWarning, constants.FieldAnnualizedAmountDue,
			"annualizedAmountDue should not be zero"})
	}
	if annualOK && *d.AnnualizedAmountDue > v.cfg.HighAmount {
		out = append(out, Issue{SeverityWarning, constants.FieldAnnualizedAmountDue,
			fmt.Sprintf("annualizedAmountDue seems unusually high: %s", money(*d.AnnualizedAmountDue))})
	}
	if closingOK && *d.AmountDueAtClosing > v.cfg.HighAmount {
		out = append(out, Issue{SeverityWarning, constants.FieldAmountDueAtClosing,
			fmt.Sprintf("amountDueAtClosing seems unusually high: %s", money(*d.AmountDueAtClosing))})
	}
	if annualOK && closingOK && *d.AmountDueAtClosing > *d.AnnualizedAmountDue*v.cfg.ClosingRatio {
		out = append(out, Issue{SeverityWarning, constants.FieldAmountDueAtClosing,
			fmt.Sprintf("amountDueAtClosing (%s) is more than %sx annualizedAmountDue (%s) - may include delinquent taxes",
				money(*d.AmountDueAtClosing), strconv.FormatFloat(v.cfg.ClosingRatio, 'f', -1, 64), money(*d.AnnualizedAmountDue))})
	}
	return out
}

// amount reports whether the value is present and usable by the later checks.
func (v *Validator) amount(field string, p *float64, out *[]Issue) bool {
	if p == nil {
		return false
	}
	if math.IsNaN(*p) || math.IsInf(*p, 0) {
		*out = append(*out, Issue{SeverityError, field, fmt.Sprintf("%s must be a finite number", field)})
		return false
	}
	if *p < 0 {
		*out = append(*out, Issue{SeverityError, field, fmt.Sprintf("%s cannot be negative: %s", field, money(*p))})
		return false
	}
	return true
}

func (v *Validator) dates(d entity.Dataset, today time.Time) []Issue {
	var out []Issue
	next, nextOK := parseDate(constants.FieldNextTaxPaymentDate, d.NextTaxPaymentDate, &out)
	following, followingOK := parseDate(constants.FieldFollowingTaxPaymentDate, d.FollowingTaxPaymentDate, &out)

	if nextOK && !next.After(today) {
		out = append(out, Issue{SeverityError, constants.FieldNextTaxPaymentDate,
			fmt.Sprintf("nextTaxPaymentDate (%s) must be after today (%s)", next.Format(constants.DateLayout), today.Format(constants.DateLayout))})
	}
	if nextOK && followingOK && !following.After(next) {
		out = append(out, Issue{SeverityError, constants.FieldFollowingTaxPaymentDate,
			fmt.Sprintf("followingTaxPaymentDate (%s) must be after nextTaxPaymentDate (%s)", following.Format(constants.DateLayout), next.Format(constants.DateLayout))})
	}
	if followingOK {
		limit := time.Date(today.Year()+v.cfg.MaxFutureYears, time.December, 31, 0, 0, 0, 0, time.UTC)
		if following.After(limit) {
			out = append(out, Issue{SeverityError, constants.FieldFollowingTaxPaymentDate,
				fmt.Sprintf("followingTaxPaymentDate (%s) is too far in the future", following.Format(constants.DateLayout))})
		}
	}
	return out
}

func parseDate(field string, p *string, out *[]Issue) (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(constants.DateLayout, *p)
	if err != nil {
		*out = append(*out, Issue{SeverityError, field, fmt.Sprintf("Invalid date format for %s: %q", field, *p)})
		return time.Time{}, false
	}
	return t, true
}

func (v *Validator) county(d entity.Dataset) []Issue {
	if d.County == nil {
		return nil
	}
	county := strings.TrimSpace(*d.County)
	var out []Issue
	if stripped, ok := v.stripSuffix(county); ok {
		out = append(out, Issue{SeverityError, constants.FieldCounty,
			fmt.Sprintf("County should not include 'County/Parish' suffix. Got: '%s', expected: '%s'", county, stripped)})
	}
	if len([]rune(county)) < v.cfg.MinCountyLen {
		out = append(out, Issue{SeverityError, constants.FieldCounty,
			fmt.Sprintf("County name too short: '%s'", county)})
	}
	return out
}

func (v *Validator) stripSuffix(county string) (string, bool) {
	lower := strings.ToLower(county)
	for _, s := range v.cfg.CountySuffixes {
		suffix := " " + strings.ToLower(s)
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSpace(county[:len(county)-len(suffix)]), true
		}
	}
	return "", false
}

func (v *Validator) parcel(d entity.Dataset) []Issue {
	if d.ParcelNumber == nil {
		return nil
	}
	parcel := strings.TrimSpace(*d.ParcelNumber)
	var out []Issue
	if len([]rune(parcel)) < v.cfg.MinParcelLen {
		out = append(out, Issue{SeverityError, constants.FieldParcelNumber,
			fmt.Sprintf("parcelNumber seems too short: '%s'", parcel)})
	}
	if v.addressRe != nil && v.addressRe.MatchString(strings.ToLower(parcel)) {
		out = append(out, Issue{SeverityError, constants.FieldParcelNumber,
			fmt.Sprintf("parcelNumber appears to be an address, not a parcel ID: '%s'", parcel)})
	}
	return out
}

// Messages flattens issues for the processing log and CLI output.
func Messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Message
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func money(f float64) string {
	return "$" + humanize.FormatFloat("#,###.##", f)
}
