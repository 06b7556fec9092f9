// Package pipeline runs the per-property extraction as a fixed sequence of
// stages: LoadExisting, LoadDocuments, Extract, Merge, Validate, Save.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage names.
const (
	StageLoadExisting  = "load_existing"
	StageLoadDocuments = "load_documents"
	StageExtract       = "extract"
	StageMerge         = "merge"
	StageValidate      = "validate"
	StageSave          = "save"
)

// Stage maps an input state to an output state or fails.
type Stage struct {
	Name string
	Run  func(ctx context.Context, in State) (State, error)
}

// Pipeline runs stages in order and stops at the first failure.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

func New(stages []Stage, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Run returns the last successful state along with any stage error.
func (p *Pipeline) Run(ctx context.Context, st State) (State, error) {
	for _, stage := range p.stages {
		start := time.Now()
		next, err := stage.Run(ctx, st.Clone())
		if err != nil {
			p.logger.Error("pipeline.stage.failed",
				"stage", stage.Name,
				"property_id", st.PropertyID,
				"run_id", st.RunID,
				"err", err,
			)
			return st, &StageError{Stage: stage.Name, Err: err}
		}
		p.logger.Debug("pipeline.stage.ok",
			"stage", stage.Name,
			"property_id", st.PropertyID,
			"run_id", st.RunID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		st = next
	}
	return st, nil
}

// StageError names the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }
