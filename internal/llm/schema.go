package llm

import "github.com/joseph-ayodele/taxcerts/constants"

// BuildDatasetJSONSchema returns the JSON-Schema of a (possibly partial) dataset
// as a generic map. Every key is optional and nullable; which fields are required
// is decided later by validation.
func BuildDatasetJSONSchema() map[string]any {
	props := map[string]any{
		constants.FieldTaxYear:                 nullable(map[string]any{"type": "string"}),
		constants.FieldAnnualizedAmountDue:     nullable(map[string]any{"type": "number"}),
		constants.FieldAmountDueAtClosing:      nullable(map[string]any{"type": "number"}),
		constants.FieldCounty:                  nullable(map[string]any{"type": "string"}),
		constants.FieldParcelNumber:            nullable(map[string]any{"type": "string"}),
		constants.FieldNextTaxPaymentDate:      nullable(dateProp()),
		constants.FieldFollowingTaxPaymentDate: nullable(dateProp()),
		constants.FieldPropertyAddress:         nullable(map[string]any{"type": "string"}),
		constants.FieldDateSelectionReasoning:  nullable(map[string]any{"type": "string"}),
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// date format is a validation rule, so an unparseable date still reaches Save
func dateProp() map[string]any {
	return map[string]any{"type": "string"}
}

func nullable(p map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{p, map[string]any{"type": "null"}}}
}
