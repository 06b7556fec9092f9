package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// BuildSystemPrompt composes the extraction instructions, anchored to now so the
// model can pick payment dates relative to the current day.
func BuildSystemPrompt(now time.Time) string {
	parts := []string{
		"You read property tax documents (bills, certificates, lender statements) and return ONE JSON object.",
		"CurrentDate: " + now.Format(constants.DateLayout) + ".",
		"Keys, exactly: " + strings.Join(constants.AllFields(), ", ") + ".",
		"taxYear is a 4-digit string for the year the bill or certificate pertains to.",
		"annualizedAmountDue is the full-year total of current taxes and assessments, excluding penalties and prior-year delinquencies.",
		"amountDueAtClosing is everything unpaid that is due or overdue as of CurrentDate; 0 when fully paid.",
		"county is the county or parish name without the word County or Parish.",
		"parcelNumber is the APN or parcel id, never a street address; prefer it over a tax account number.",
		"nextTaxPaymentDate is the installment date closest to CurrentDate; followingTaxPaymentDate is the next installment strictly after it. Use YYYY-MM-DD.",
		"propertyAddress is the situs address if shown.",
		"_dateSelectionReasoning briefly explains how both dates were chosen.",
		"Prefer official county documents over third-party ones, and newer documents over older ones.",
		"Use null for anything missing or unreliable. Return only the JSON object, no prose.",
	}
	return strings.Join(parts, "\n")
}

// BuildExistingHint describes previously extracted data so the model can return
// an already merged record. Returns "" when there is nothing to merge.
func BuildExistingHint(existing *entity.Dataset, docCount int) string {
	if existing == nil || existing.IsEmpty() {
		return ""
	}
	b, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("EXISTING DATA (may be incomplete):\n%s\n\n%d new document(s) are attached. "+
		"Return the complete merged record: keep existing values unless a new document is more official or more recent, "+
		"and fill fields that are missing.", b, docCount)
}

// CombineTexts tags each extracted text with its file name and joins them.
func CombineTexts(docs []entity.Document, texts []string) string {
	blocks := make([]string, 0, len(texts))
	for i, t := range texts {
		blocks = append(blocks, fmt.Sprintf("=== %s ===\n%s", docs[i].BaseName(), t))
	}
	return strings.Join(blocks, "\n\n")
}

// TextModeInstruction wraps the combined text for a text-mode request.
func TextModeInstruction(combined string) string {
	return "Here are the tax documents in text format:\n\n" + combined + "\n\nPlease extract the dataset."
}

// VisionModeInstruction follows the attached documents in a vision-mode request.
const VisionModeInstruction = "Please extract the dataset from the attached tax documents."
