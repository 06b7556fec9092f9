// Package merge combines a freshly extracted draft with the dataset persisted by
// earlier runs. Draft values win; existing values only fill gaps.
package merge

import (
	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// Outcome names which inputs were present.
type Outcome string

const (
	OutcomeMerged       Outcome = "merged"        // both present
	OutcomeDraftOnly    Outcome = "draft_only"    // nothing persisted yet
	OutcomeExistingOnly Outcome = "existing_only" // no draft: abnormal, the caller should warn
	OutcomeEmpty        Outcome = "empty"
)

// Result is the merged dataset plus what happened.
type Result struct {
	Dataset  entity.Dataset
	Outcome  Outcome
	Retained []string // fields copied forward from the existing dataset
}

// Merge never mutates its inputs and never derives values.
func Merge(existing, draft *entity.Dataset) Result {
	switch {
	case existing == nil && draft == nil:
		return Result{Outcome: OutcomeEmpty}
	case existing == nil:
		return Result{Dataset: draft.Clone(), Outcome: OutcomeDraftOnly}
	case draft == nil:
		return Result{Dataset: existing.Clone(), Outcome: OutcomeExistingOnly}
	}

	out := draft.Clone()
	src := existing.Clone()
	var retained []string
	fill := func(field string, copied bool) {
		if copied {
			retained = append(retained, field)
		}
	}
	fill(constants.FieldTaxYear, gap(&out.TaxYear, src.TaxYear))
	fill(constants.FieldAnnualizedAmountDue, gap(&out.AnnualizedAmountDue, src.AnnualizedAmountDue))
	fill(constants.FieldAmountDueAtClosing, gap(&out.AmountDueAtClosing, src.AmountDueAtClosing))
	fill(constants.FieldCounty, gap(&out.County, src.County))
	fill(constants.FieldParcelNumber, gap(&out.ParcelNumber, src.ParcelNumber))
	fill(constants.FieldNextTaxPaymentDate, gap(&out.NextTaxPaymentDate, src.NextTaxPaymentDate))
	fill(constants.FieldFollowingTaxPaymentDate, gap(&out.FollowingTaxPaymentDate, src.FollowingTaxPaymentDate))
	fill(constants.FieldPropertyAddress, gap(&out.PropertyAddress, src.PropertyAddress))
	fill(constants.FieldDateSelectionReasoning, gap(&out.DateSelectionReasoning, src.DateSelectionReasoning))

	return Result{Dataset: out, Outcome: OutcomeMerged, Retained: retained}
}

// gap sets *dst to src when dst is unset and src is not.
func gap[T any](dst **T, src *T) bool {
	if *dst != nil || src == nil {
		return false
	}
	*dst = src
	return true
}
