package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

func full() entity.Dataset {
	return entity.Dataset{
		TaxYear:                 entity.String("2025"),
		AnnualizedAmountDue:     entity.Float(4000),
		AmountDueAtClosing:      entity.Float(0),
		County:                  entity.String("Alameda"),
		ParcelNumber:            entity.String("123-456"),
		NextTaxPaymentDate:      entity.String("2026-02-01"),
		FollowingTaxPaymentDate: entity.String("2026-04-10"),
		PropertyAddress:         entity.String("1 Main St"),
		DateSelectionReasoning:  entity.String("closest"),
	}
}

func TestMergeWithoutExistingReturnsDraft(t *testing.T) {
	for _, d := range []entity.Dataset{{}, full(), {County: entity.String("Kern")}} {
		res := Merge(nil, &d)
		assert.Equal(t, d, res.Dataset)
		assert.Equal(t, OutcomeDraftOnly, res.Outcome)
		assert.Empty(t, res.Retained)
	}
}

func TestMergeDraftWinsOnPresentFields(t *testing.T) {
	draft := full()
	existing := entity.Dataset{
		TaxYear:      entity.String("2024"),
		County:       entity.String("Orange"),
		ParcelNumber: entity.String("999"),
	}
	res := Merge(&existing, &draft)
	assert.Equal(t, full(), res.Dataset)
	assert.Equal(t, OutcomeMerged, res.Outcome)
	assert.Empty(t, res.Retained)
}

func TestMergeFillsGapsFromExisting(t *testing.T) {
	existing := entity.Dataset{County: entity.String("Alameda"), ParcelNumber: entity.String("123-456"), PropertyAddress: entity.String("1 Main St")}
	draft := entity.Dataset{TaxYear: entity.String("2025"), County: entity.String("Alameda County")}

	res := Merge(&existing, &draft)
	assert.Equal(t, "2025", *res.Dataset.TaxYear)
	assert.Equal(t, "Alameda County", *res.Dataset.County)
	assert.Equal(t, "123-456", *res.Dataset.ParcelNumber)
	assert.Equal(t, "1 Main St", *res.Dataset.PropertyAddress)
	assert.Equal(t, []string{constants.FieldParcelNumber, constants.FieldPropertyAddress}, res.Retained)
}

func TestMergeEveryFieldIndividually(t *testing.T) {
	src := full()
	for _, field := range constants.AllFields() {
		draft := full()
		unset(&draft, field)
		res := Merge(&src, &draft)
		want, _ := src.Value(field)
		got, ok := res.Dataset.Value(field)
		assert.True(t, ok, field)
		assert.Equal(t, want, got, field)
		assert.Equal(t, []string{field}, res.Retained)
	}
}

func TestMergeExistingOnlyAndEmpty(t *testing.T) {
	existing := entity.Dataset{County: entity.String("Alameda")}
	res := Merge(&existing, nil)
	assert.Equal(t, existing, res.Dataset)
	assert.Equal(t, OutcomeExistingOnly, res.Outcome)

	res = Merge(nil, nil)
	assert.True(t, res.Dataset.IsEmpty())
	assert.Equal(t, OutcomeEmpty, res.Outcome)
}

func TestMergeDoesNotMutateOrAliasInputs(t *testing.T) {
	existing := entity.Dataset{County: entity.String("Alameda")}
	draft := entity.Dataset{TaxYear: entity.String("2025")}
	res := Merge(&existing, &draft)

	assert.Nil(t, draft.County)
	*res.Dataset.County = "Changed"
	*res.Dataset.TaxYear = "1999"
	assert.Equal(t, "Alameda", *existing.County)
	assert.Equal(t, "2025", *draft.TaxYear)
}

func unset(d *entity.Dataset, field string) {
	switch field {
	case constants.FieldTaxYear:
		d.TaxYear = nil
	case constants.FieldAnnualizedAmountDue:
		d.AnnualizedAmountDue = nil
	case constants.FieldAmountDueAtClosing:
		d.AmountDueAtClosing = nil
	case constants.FieldCounty:
		d.County = nil
	case constants.FieldParcelNumber:
		d.ParcelNumber = nil
	case constants.FieldNextTaxPaymentDate:
		d.NextTaxPaymentDate = nil
	case constants.FieldFollowingTaxPaymentDate:
		d.FollowingTaxPaymentDate = nil
	case constants.FieldPropertyAddress:
		d.PropertyAddress = nil
	case constants.FieldDateSelectionReasoning:
		d.DateSelectionReasoning = nil
	}
}
