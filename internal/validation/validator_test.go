package validation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

var fixedNow = time.Date(2025, time.October, 15, 14, 30, 0, 0, time.UTC)

func newTestValidator() *Validator {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	return NewValidator(cfg, nil)
}

func validDataset() entity.Dataset {
	return entity.Dataset{
		TaxYear:                 entity.String("2025"),
		AnnualizedAmountDue:     entity.Float(4321.50),
		AmountDueAtClosing:      entity.Float(2160.75),
		County:                  entity.String("Alameda"),
		ParcelNumber:            entity.String("123-456-789"),
		NextTaxPaymentDate:      entity.String("2025-12-10"),
		FollowingTaxPaymentDate: entity.String("2026-04-10"),
	}
}

func forField(issues []Issue, field string) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Field == field {
			out = append(out, is)
		}
	}
	return out
}

func TestValidate_ValidDataset(t *testing.T) {
	ok, issues := newTestValidator().Validate(validDataset())
	assert.True(t, ok)
	assert.Empty(t, issues)
}

func TestValidate_MissingParcelNumber(t *testing.T) {
	d := validDataset()
	d.ParcelNumber = nil
	ok, issues := newTestValidator().Validate(d)
	assert.False(t, ok)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "parcelNumber")
	assert.Equal(t, SeverityError, issues[0].Severity)
}

func TestValidate_EmptyDatasetReportsAllRequiredInOrder(t *testing.T) {
	ok, issues := newTestValidator().Validate(entity.Dataset{})
	assert.False(t, ok)
	require.Len(t, issues, len(constants.RequiredFields))
	for i, f := range constants.RequiredFields {
		assert.Equal(t, "Missing required field: "+f, issues[i].Message)
	}
}

func TestValidate_TaxYear(t *testing.T) {
	cases := []struct {
		name, year string
		want       string
	}{
		{"not digits", "20x5", "4-digit"},
		{"too short", "25", "4-digit"},
		{"too old", "1999", "outside reasonable range (2000-2027)"},
		{"too far ahead", "2028", "outside reasonable range"},
		{"upper bound", "2027", ""},
		{"lower bound", "2000", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDataset()
			d.TaxYear = entity.String(tc.year)
			_, issues := newTestValidator().Validate(d)
			got := forField(issues, constants.FieldTaxYear)
			if tc.want == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Contains(t, got[0].Message, tc.want)
		})
	}
}

func TestValidate_Amounts(t *testing.T) {
	t.Run("zero annualized is a warning", func(t *testing.T) {
		d := validDataset()
		d.AnnualizedAmountDue = entity.Float(0)
		d.AmountDueAtClosing = entity.Float(0)
		ok, issues := newTestValidator().Validate(d)
		assert.False(t, ok)
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityWarning, issues[0].Severity)
		assert.Contains(t, issues[0].Message, "should not be zero")
	})

	t.Run("negative", func(t *testing.T) {
		d := validDataset()
		d.AmountDueAtClosing = entity.Float(-5)
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "amountDueAtClosing cannot be negative")
	})

	t.Run("non finite", func(t *testing.T) {
		d := validDataset()
		d.AnnualizedAmountDue = entity.Float(math.NaN())
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "finite")
	})

	t.Run("high amounts", func(t *testing.T) {
		d := validDataset()
		d.AnnualizedAmountDue = entity.Float(1_500_000)
		d.AmountDueAtClosing = entity.Float(1_200_000)
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 2)
		assert.Equal(t, "annualizedAmountDue seems unusually high: $1,500,000.00", issues[0].Message)
		assert.Contains(t, issues[1].Message, "amountDueAtClosing seems unusually high")
	})

	t.Run("closing more than twice annualized", func(t *testing.T) {
		d := validDataset()
		d.AnnualizedAmountDue = entity.Float(1000)
		d.AmountDueAtClosing = entity.Float(2500)
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityWarning, issues[0].Severity)
		assert.Contains(t, issues[0].Message, "more than 2x")
		assert.Contains(t, issues[0].Message, "$2,500.00")
	})
}

func TestValidate_NextDateTodayYieldsOneOrderingIssue(t *testing.T) {
	d := validDataset()
	d.NextTaxPaymentDate = entity.String(fixedNow.Format(constants.DateLayout))
	ok, issues := newTestValidator().Validate(d)
	assert.False(t, ok)
	got := forField(issues, constants.FieldNextTaxPaymentDate)
	require.Len(t, got, 1)
	assert.Equal(t, "nextTaxPaymentDate (2025-10-15) must be after today (2025-10-15)", got[0].Message)
	assert.Len(t, issues, 1)
}

func TestValidate_Dates(t *testing.T) {
	t.Run("following not after next", func(t *testing.T) {
		d := validDataset()
		d.FollowingTaxPaymentDate = entity.String("2025-12-10")
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "must be after nextTaxPaymentDate")
	})

	t.Run("too far in future", func(t *testing.T) {
		d := validDataset()
		d.FollowingTaxPaymentDate = entity.String("2029-01-01")
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "too far in the future")

		d.FollowingTaxPaymentDate = entity.String("2028-12-31")
		_, issues = newTestValidator().Validate(d)
		assert.Empty(t, issues)
	})

	t.Run("parse failure short circuits the field", func(t *testing.T) {
		d := validDataset()
		d.NextTaxPaymentDate = entity.String("12/10/2025")
		_, issues := newTestValidator().Validate(d)
		require.Len(t, issues, 1)
		assert.Equal(t, constants.FieldNextTaxPaymentDate, issues[0].Field)
		assert.Contains(t, issues[0].Message, "Invalid date format")
	})
}

func TestValidate_County(t *testing.T) {
	v := newTestValidator()

	d := validDataset()
	d.County = entity.String("Orange County")
	_, issues := v.Validate(d)
	got := forField(issues, constants.FieldCounty)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "expected: 'Orange'")

	d.County = entity.String("Orange")
	_, issues = v.Validate(d)
	assert.Empty(t, forField(issues, constants.FieldCounty))

	d.County = entity.String("Tangipahoa parish")
	_, issues = v.Validate(d)
	got = forField(issues, constants.FieldCounty)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "expected: 'Tangipahoa'")

	d.County = entity.String("X")
	_, issues = v.Validate(d)
	got = forField(issues, constants.FieldCounty)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "too short")
}

func TestValidate_Parcel(t *testing.T) {
	cases := []struct {
		parcel string
		want   []string
	}{
		{"123-456", nil},
		{"12", []string{"too short"}},
		{"123 Main St", []string{"appears to be an address"}},
		{"45 Oak Avenue", []string{"appears to be an address"}},
		{"ST", []string{"too short", "appears to be an address"}},
		{"1ST-0042-ROAD", nil},
	}
	for _, tc := range cases {
		t.Run(tc.parcel, func(t *testing.T) {
			d := validDataset()
			d.ParcelNumber = entity.String(tc.parcel)
			_, issues := newTestValidator().Validate(d)
			got := forField(issues, constants.FieldParcelNumber)
			require.Len(t, got, len(tc.want))
			for i, w := range tc.want {
				assert.True(t, strings.Contains(got[i].Message, w), got[i].Message)
			}
		})
	}
}

func TestValidate_CustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	cfg.HighAmount = 1000
	cfg.AddressTokens = nil
	v := NewValidator(cfg, nil)

	d := validDataset()
	d.ParcelNumber = entity.String("123 Main St")
	_, issues := v.Validate(d)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, "annualizedAmountDue seems unusually high")
	assert.Contains(t, issues[1].Message, "amountDueAtClosing seems unusually high")
}
