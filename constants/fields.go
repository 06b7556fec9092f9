package constants

// Dataset field names. These are the exact JSON keys used by the persisted
// record and by the document-understanding model.
const (
	FieldTaxYear                 = "taxYear"
	FieldAnnualizedAmountDue     = "annualizedAmountDue"
	FieldAmountDueAtClosing      = "amountDueAtClosing"
	FieldCounty                  = "county"
	FieldParcelNumber            = "parcelNumber"
	FieldNextTaxPaymentDate      = "nextTaxPaymentDate"
	FieldFollowingTaxPaymentDate = "followingTaxPaymentDate"
	FieldPropertyAddress         = "propertyAddress"
	FieldDateSelectionReasoning  = "_dateSelectionReasoning"
)

// RequiredFields lists the fields a final dataset must carry, in report order.
var RequiredFields = []string{
	FieldTaxYear,
	FieldAnnualizedAmountDue,
	FieldAmountDueAtClosing,
	FieldCounty,
	FieldParcelNumber,
	FieldNextTaxPaymentDate,
	FieldFollowingTaxPaymentDate,
}

// HiddenFields travel with the dataset but never reach a user-facing view.
var HiddenFields = []string{
	FieldPropertyAddress,
	FieldDateSelectionReasoning,
}

// AllFields is the closed key set of a dataset.
func AllFields() []string {
	out := make([]string, 0, len(RequiredFields)+len(HiddenFields))
	out = append(out, RequiredFields...)
	return append(out, HiddenFields...)
}

// DateLayout is the calendar date format used by both date fields.
const DateLayout = "2006-01-02"
