package pipeline

import (
	"fmt"
	"slices"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/merge"
	"github.com/joseph-ayodele/taxcerts/internal/repository"
	"github.com/joseph-ayodele/taxcerts/internal/validation"
)

// State is everything one run knows about a property. Stages receive a copy and
// return a new value; nothing is shared between runs.
type State struct {
	RunID      string
	PropertyID string
	InputPath  string

	Existing  *entity.Dataset
	Documents entity.DocumentSet

	Draft        *entity.Dataset
	Method       constants.Method
	Skipped      []string
	MergeOutcome merge.Outcome
	Retained     []string
	Final        *entity.Dataset

	Valid  bool
	Issues []validation.Issue

	Archive repository.ArchiveResult
	Saved   bool

	Log []string
}

// NewState seeds a run.
func NewState(runID, propertyID, inputPath string) State {
	return State{RunID: runID, PropertyID: propertyID, InputPath: inputPath}
}

// Clone returns a copy whose slices and datasets do not alias s.
func (s State) Clone() State {
	c := s
	c.Existing = cloneDataset(s.Existing)
	c.Draft = cloneDataset(s.Draft)
	c.Final = cloneDataset(s.Final)
	c.Documents = s.Documents.Clone()
	c.Skipped = slices.Clone(s.Skipped)
	c.Retained = slices.Clone(s.Retained)
	c.Issues = slices.Clone(s.Issues)
	c.Archive = repository.ArchiveResult{
		Archived: slices.Clone(s.Archive.Archived),
		Skipped:  slices.Clone(s.Archive.Skipped),
	}
	c.Log = slices.Clone(s.Log)
	return c
}

func (s State) logf(format string, args ...any) State {
	s.Log = append(slices.Clone(s.Log), fmt.Sprintf(format, args...))
	return s
}

func cloneDataset(d *entity.Dataset) *entity.Dataset {
	if d == nil {
		return nil
	}
	c := d.Clone()
	return &c
}

func countSet(d entity.Dataset) int {
	n := 0
	for _, f := range constants.AllFields() {
		if _, ok := d.Value(f); ok {
			n++
		}
	}
	return n
}
