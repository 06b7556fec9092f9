package entity

import (
	"github.com/joseph-ayodele/taxcerts/constants"
)

// Dataset is the structured record extracted for one property. Every field is
// optional; which ones are required is a validation concern. A nil pointer is
// serialized as JSON null so the persisted record always carries the full key set.
type Dataset struct {
	TaxYear                 *string  `json:"taxYear"`
	AnnualizedAmountDue     *float64 `json:"annualizedAmountDue"`
	AmountDueAtClosing      *float64 `json:"amountDueAtClosing"`
	County                  *string  `json:"county"`
	ParcelNumber            *string  `json:"parcelNumber"`
	NextTaxPaymentDate      *string  `json:"nextTaxPaymentDate"`
	FollowingTaxPaymentDate *string  `json:"followingTaxPaymentDate"`

	// Hidden: stored and searchable, never displayed.
	PropertyAddress        *string `json:"propertyAddress"`
	DateSelectionReasoning *string `json:"_dateSelectionReasoning"`
}

// VisibleDataset is the user-facing projection of a Dataset.
type VisibleDataset struct {
	TaxYear                 *string  `json:"taxYear" yaml:"taxYear"`
	AnnualizedAmountDue     *float64 `json:"annualizedAmountDue" yaml:"annualizedAmountDue"`
	AmountDueAtClosing      *float64 `json:"amountDueAtClosing" yaml:"amountDueAtClosing"`
	County                  *string  `json:"county" yaml:"county"`
	ParcelNumber            *string  `json:"parcelNumber" yaml:"parcelNumber"`
	NextTaxPaymentDate      *string  `json:"nextTaxPaymentDate" yaml:"nextTaxPaymentDate"`
	FollowingTaxPaymentDate *string  `json:"followingTaxPaymentDate" yaml:"followingTaxPaymentDate"`
}

// Visible drops the hidden fields.
func (d Dataset) Visible() VisibleDataset {
	c := d.Clone()
	return VisibleDataset{
		TaxYear:                 c.TaxYear,
		AnnualizedAmountDue:     c.AnnualizedAmountDue,
		AmountDueAtClosing:      c.AmountDueAtClosing,
		County:                  c.County,
		ParcelNumber:            c.ParcelNumber,
		NextTaxPaymentDate:      c.NextTaxPaymentDate,
		FollowingTaxPaymentDate: c.FollowingTaxPaymentDate,
	}
}

// Clone returns a deep copy; pointers in the copy never alias the receiver.
func (d Dataset) Clone() Dataset {
	return Dataset{
		TaxYear:                 clonePtr(d.TaxYear),
		AnnualizedAmountDue:     clonePtr(d.AnnualizedAmountDue),
		AmountDueAtClosing:      clonePtr(d.AmountDueAtClosing),
		County:                  clonePtr(d.County),
		ParcelNumber:            clonePtr(d.ParcelNumber),
		NextTaxPaymentDate:      clonePtr(d.NextTaxPaymentDate),
		FollowingTaxPaymentDate: clonePtr(d.FollowingTaxPaymentDate),
		PropertyAddress:         clonePtr(d.PropertyAddress),
		DateSelectionReasoning:  clonePtr(d.DateSelectionReasoning),
	}
}

// Value returns the field value by its JSON key. The second result is false when
// the field is unset or the key is not part of the dataset.
func (d Dataset) Value(field string) (any, bool) {
	switch field {
	case constants.FieldTaxYear:
		return deref(d.TaxYear)
	case constants.FieldAnnualizedAmountDue:
		return deref(d.AnnualizedAmountDue)
	case constants.FieldAmountDueAtClosing:
		return deref(d.AmountDueAtClosing)
	case constants.FieldCounty:
		return deref(d.County)
	case constants.FieldParcelNumber:
		return deref(d.ParcelNumber)
	case constants.FieldNextTaxPaymentDate:
		return deref(d.NextTaxPaymentDate)
	case constants.FieldFollowingTaxPaymentDate:
		return deref(d.FollowingTaxPaymentDate)
	case constants.FieldPropertyAddress:
		return deref(d.PropertyAddress)
	case constants.FieldDateSelectionReasoning:
		return deref(d.DateSelectionReasoning)
	}
	return nil, false
}

// Missing lists the required fields that are unset, in report order.
func (d Dataset) Missing() []string {
	var out []string
	for _, f := range constants.RequiredFields {
		if _, ok := d.Value(f); !ok {
			out = append(out, f)
		}
	}
	return out
}

// IsEmpty reports whether no field at all is set.
func (d Dataset) IsEmpty() bool {
	for _, f := range constants.AllFields() {
		if _, ok := d.Value(f); ok {
			return false
		}
	}
	return true
}

// String and Float are small helpers for building datasets by hand.
func String(s string) *string { return &s }

func Float(f float64) *float64 { return &f }

func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}
