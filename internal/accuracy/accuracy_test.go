package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

func byField(r PropertyResult) map[string]FieldResult {
	out := map[string]FieldResult{}
	for _, f := range r.Fields {
		out[f.Field] = f
	}
	return out
}

func TestCompare(t *testing.T) {
	d := entity.Dataset{
		TaxYear:             entity.String("2025"),
		AnnualizedAmountDue: entity.Float(4321.505),
		AmountDueAtClosing:  entity.Float(100),
		County:              entity.String(" alameda "),
		ParcelNumber:        entity.String("123-456"),
		NextTaxPaymentDate:  entity.String("2025-12-10"),
	}
	truth := []byte(`{
		"taxYear": 2025,
		"annualizedAmountDue": 4321.50,
		"amountDueAtClosing": 250,
		"county": "Alameda",
		"parcelNumber": "123-457",
		"followingTaxPaymentDate": null,
		"_notes": "checked by hand"
	}`)

	res, err := Compare("42", d, truth)
	require.NoError(t, err)
	f := byField(res)

	assert.Equal(t, KindTypeMismatch, f[constants.FieldTaxYear].Kind)
	assert.Equal(t, KindNumericMatch, f[constants.FieldAnnualizedAmountDue].Kind)
	assert.Equal(t, KindNumericMismatch, f[constants.FieldAmountDueAtClosing].Kind)
	require.NotNil(t, f[constants.FieldAmountDueAtClosing].Difference)
	assert.InDelta(t, 150, *f[constants.FieldAmountDueAtClosing].Difference, 1e-9)
	assert.Equal(t, KindStringMatch, f[constants.FieldCounty].Kind)
	assert.Equal(t, KindStringMismatch, f[constants.FieldParcelNumber].Kind)
	assert.Equal(t, KindTruthNull, f[constants.FieldNextTaxPaymentDate].Kind)
	assert.Equal(t, KindBothNull, f[constants.FieldFollowingTaxPaymentDate].Kind)

	assert.Equal(t, 7, res.Total)
	assert.Equal(t, 3, res.Matching)
	assert.InDelta(t, 3.0/7.0, res.Accuracy(), 1e-9)
}

func TestCompare_RejectsBadTruth(t *testing.T) {
	_, err := Compare("1", entity.Dataset{}, []byte(`[1,2]`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Compare("1", entity.Dataset{}, []byte(`{"county": "VERIFY_VALUE"}`))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCompare_AgentNull(t *testing.T) {
	res, err := Compare("1", entity.Dataset{}, []byte(`{"county": "Kern"}`))
	require.NoError(t, err)
	f := byField(res)
	assert.Equal(t, KindAgentNull, f[constants.FieldCounty].Kind)
	assert.Equal(t, "Kern", f[constants.FieldCounty].Truth)
}

func TestSummarize(t *testing.T) {
	perfect := PropertyResult{PropertyID: "a", Total: 2, Matching: 2, Fields: []FieldResult{
		{Field: "county", Match: true}, {Field: "taxYear", Match: true},
	}}
	partial := PropertyResult{PropertyID: "b", Total: 2, Matching: 1, Fields: []FieldResult{
		{Field: "county", Match: false}, {Field: "taxYear", Match: true},
	}}
	rep := Summarize([]PropertyResult{perfect, partial})
	assert.Equal(t, 1, rep.Perfect)
	assert.InDelta(t, 0.75, rep.Overall(), 1e-9)
	assert.Equal(t, FieldRate{Matches: 1, Total: 2}, rep.Fields["county"])
	assert.Equal(t, FieldRate{Matches: 2, Total: 2}, rep.Fields["taxYear"])
}
