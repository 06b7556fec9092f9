// Package accuracy scores extracted datasets against hand-verified ground truth.
package accuracy

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// Tolerance is the absolute difference under which two amounts are equal.
const Tolerance = 0.01

// Placeholder marks a ground-truth value nobody has verified yet.
const Placeholder = "VERIFY_VALUE"

type Kind string

const (
	KindBothNull        Kind = "both_null"
	KindAgentNull       Kind = "agent_null"
	KindTruthNull       Kind = "ground_truth_null"
	KindNumericMatch    Kind = "numeric_match"
	KindNumericMismatch Kind = "numeric_mismatch"
	KindStringMatch     Kind = "string_match"
	KindStringMismatch  Kind = "string_mismatch"
	KindTypeMismatch    Kind = "type_mismatch"
)

type FieldResult struct {
	Field      string   `json:"field"`
	Match      bool     `json:"match"`
	Kind       Kind     `json:"type"`
	Agent      any      `json:"agent,omitempty"`
	Truth      any      `json:"ground_truth,omitempty"`
	Difference *float64 `json:"difference,omitempty"`
}

type PropertyResult struct {
	PropertyID string        `json:"property_id"`
	Fields     []FieldResult `json:"fields"`
	Matching   int           `json:"matching_fields"`
	Total      int           `json:"total_fields"`
}

// Accuracy is the matching share in [0, 1].
func (r PropertyResult) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matching) / float64(r.Total)
}

// caseInsensitive lists the string fields compared without regard to case.
var caseInsensitive = map[string]bool{
	constants.FieldCounty:          true,
	constants.FieldPropertyAddress: true,
}

// Compare scores the required fields of d against truth, a JSON object keyed by
// field name.
func Compare(propertyID string, d entity.Dataset, truth []byte) (PropertyResult, error) {
	if !gjson.ValidBytes(truth) || !gjson.ParseBytes(truth).IsObject() {
		return PropertyResult{}, common.NewAppError("INVALID_GROUND_TRUTH", "ground truth must be a JSON object", common.ErrInvalidInput)
	}
	gt := gjson.ParseBytes(truth)
	res := PropertyResult{PropertyID: propertyID}
	for _, field := range constants.RequiredFields {
		tv := gt.Get(field)
		if tv.Type == gjson.String && tv.Str == Placeholder {
			return PropertyResult{}, common.NewAppError("UNVERIFIED_GROUND_TRUTH",
				fmt.Sprintf("ground truth for %s.%s is still %s", propertyID, field, Placeholder), common.ErrInvalidInput)
		}
		agent, _ := d.Value(field)
		fr := compareValue(field, agent, tv)
		res.Fields = append(res.Fields, fr)
		res.Total++
		if fr.Match {
			res.Matching++
		}
	}
	return res, nil
}

func compareValue(field string, agent any, truth gjson.Result) FieldResult {
	fr := FieldResult{Field: field}
	truthNull := !truth.Exists() || truth.Type == gjson.Null
	switch {
	case agent == nil && truthNull:
		fr.Match, fr.Kind = true, KindBothNull
		return fr
	case agent == nil:
		fr.Kind, fr.Truth = KindAgentNull, truth.Value()
		return fr
	case truthNull:
		fr.Kind, fr.Agent = KindTruthNull, agent
		return fr
	}
	fr.Agent, fr.Truth = agent, truth.Value()

	switch a := agent.(type) {
	case float64:
		if truth.Type != gjson.Number {
			fr.Kind = KindTypeMismatch
			return fr
		}
		diff := math.Abs(a - truth.Num)
		if diff < Tolerance {
			fr.Match, fr.Kind = true, KindNumericMatch
			return fr
		}
		fr.Kind, fr.Difference = KindNumericMismatch, &diff
	case string:
		if truth.Type != gjson.String {
			fr.Kind = KindTypeMismatch
			return fr
		}
		x, y := strings.TrimSpace(a), strings.TrimSpace(truth.Str)
		if caseInsensitive[field] {
			x, y = strings.ToLower(x), strings.ToLower(y)
		}
		if x == y {
			fr.Match, fr.Kind = true, KindStringMatch
			return fr
		}
		fr.Kind = KindStringMismatch
	default:
		fr.Kind = KindTypeMismatch
	}
	return fr
}

// Report aggregates several properties.
type Report struct {
	Properties []PropertyResult     `json:"detailed_results"`
	Fields     map[string]FieldRate `json:"field_accuracy"`
	Total      int                  `json:"total_fields"`
	Matching   int                  `json:"total_matching"`
	Perfect    int                  `json:"perfect_properties"`
}

type FieldRate struct {
	Matches int `json:"matches"`
	Total   int `json:"total"`
}

func (r Report) Overall() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matching) / float64(r.Total)
}

func Summarize(results []PropertyResult) Report {
	rep := Report{Properties: results, Fields: map[string]FieldRate{}}
	for _, pr := range results {
		rep.Total += pr.Total
		rep.Matching += pr.Matching
		if pr.Total > 0 && pr.Matching == pr.Total {
			rep.Perfect++
		}
		for _, fr := range pr.Fields {
			rate := rep.Fields[fr.Field]
			rate.Total++
			if fr.Match {
				rate.Matches++
			}
			rep.Fields[fr.Field] = rate
		}
	}
	return rep
}
