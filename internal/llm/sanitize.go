package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/taxcerts/constants"
)

var (
	reMoneyNoise = regexp.MustCompile(`[$,\s]`)
	reDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ]`)
)

// NormalizeAndSanitizeJSON
// - Removes keys outside the dataset field set
// - Coerces money fields to numbers rounded to cents ("$1,234.5" -> 1234.50)
// - Coerces a numeric taxYear to its string form
// - Trims strings; blank strings and the literal "null" become null
// - Cuts a timestamp suffix off date fields
//
// Values that cannot be coerced are set to null and reported in the returned list.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	changed := make([]string, 0, 4)

	// 1) unknown keys
	allowed := make(map[string]struct{}, len(constants.AllFields()))
	for _, f := range constants.AllFields() {
		allowed[f] = struct{}{}
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	// 2) money fields
	for _, k := range []string{constants.FieldAnnualizedAmountDue, constants.FieldAmountDueAtClosing} {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		d, ok := toDecimal(v)
		if !ok {
			m[k] = nil
			changed = append(changed, k+"(type)")
			continue
		}
		rounded := d.Round(2)
		if f, ok := v.(float64); !ok || !decimal.NewFromFloat(f).Equal(rounded) {
			changed = append(changed, k+"(coerced)")
		}
		m[k] = rounded.InexactFloat64()
	}

	// 3) taxYear as a string
	switch t := m[constants.FieldTaxYear].(type) {
	case float64:
		m[constants.FieldTaxYear] = strconv.FormatFloat(t, 'f', -1, 64)
		changed = append(changed, constants.FieldTaxYear+"(coerced)")
	}

	// 4) strings
	for _, k := range []string{
		constants.FieldTaxYear, constants.FieldCounty, constants.FieldParcelNumber,
		constants.FieldNextTaxPaymentDate, constants.FieldFollowingTaxPaymentDate,
		constants.FieldPropertyAddress, constants.FieldDateSelectionReasoning,
	} {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString {
			m[k] = nil
			changed = append(changed, k+"(type)")
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") {
			m[k] = nil
			changed = append(changed, k+"(empty)")
			continue
		}
		m[k] = s
	}

	// 5) dates
	for _, k := range []string{constants.FieldNextTaxPaymentDate, constants.FieldFollowingTaxPaymentDate} {
		if s, ok := m[k].(string); ok {
			if sm := reDatePrefix.FindStringSubmatch(s); sm != nil {
				m[k] = sm[1]
				changed = append(changed, k+"(truncated)")
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.response.sanitized", "changed", changed)
	}
	return out, changed, nil
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		s := reMoneyNoise.ReplaceAllString(t, "")
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}
