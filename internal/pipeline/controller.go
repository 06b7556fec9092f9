package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/extract"
	"github.com/joseph-ayodele/taxcerts/internal/ingest"
	"github.com/joseph-ayodele/taxcerts/internal/merge"
	"github.com/joseph-ayodele/taxcerts/internal/repository"
	"github.com/joseph-ayodele/taxcerts/internal/validation"
)

// Store is the part of repository.DatasetStore a run needs.
type Store interface {
	GetDataset(ctx context.Context, propertyID string) (*entity.Dataset, error)
	SaveDataset(ctx context.Context, propertyID string, d entity.Dataset) error
	LinkedDocuments(ctx context.Context, propertyID string) ([]entity.Document, error)
	ArchiveDocuments(ctx context.Context, propertyID string, docs []entity.Document) (repository.ArchiveResult, error)
}

type Extractor interface {
	Route(ctx context.Context, docs entity.DocumentSet, existing *entity.Dataset) (extract.Result, error)
}

type Checker interface {
	Validate(d entity.Dataset) (bool, []validation.Issue)
}

// Controller wires the collaborators into the six stages.
type Controller struct {
	store     Store
	source    ingest.DocumentSource
	extractor Extractor
	checker   Checker
	logger    *slog.Logger
	pipeline  *Pipeline
}

func NewController(store Store, source ingest.DocumentSource, extractor Extractor, checker Checker, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{store: store, source: source, extractor: extractor, checker: checker, logger: logger}
	c.pipeline = New(c.Stages(), logger)
	return c
}

func (c *Controller) Stages() []Stage {
	return []Stage{
		{Name: StageLoadExisting, Run: c.loadExisting},
		{Name: StageLoadDocuments, Run: c.loadDocuments},
		{Name: StageExtract, Run: c.extract},
		{Name: StageMerge, Run: c.merge},
		{Name: StageValidate, Run: c.validate},
		{Name: StageSave, Run: c.save},
	}
}

// Process runs the pipeline for one archive. An empty propertyID is derived from
// the archive name.
func (c *Controller) Process(ctx context.Context, inputPath, propertyID string) (State, error) {
	if propertyID == "" {
		id, err := entity.ParsePropertyID(inputPath)
		if err != nil {
			return State{}, err
		}
		propertyID = id
	}
	st := NewState(uuid.NewString(), propertyID, inputPath)
	ctx = common.WithRunID(common.WithPropertyID(ctx, propertyID), st.RunID)

	start := time.Now()
	c.logger.Info("pipeline.run.start", "property_id", propertyID, "run_id", st.RunID, "input", inputPath)
	out, err := c.pipeline.Run(ctx, st)
	if err != nil {
		return out, err
	}
	c.logger.Info("pipeline.run.ok",
		"property_id", propertyID,
		"run_id", st.RunID,
		"method", out.Method,
		"valid", out.Valid,
		"issues", len(out.Issues),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Controller) loadExisting(ctx context.Context, st State) (State, error) {
	existing, err := c.store.GetDataset(ctx, st.PropertyID)
	if err != nil {
		return st, err
	}
	linked, err := c.store.LinkedDocuments(ctx, st.PropertyID)
	if err != nil {
		return st, err
	}
	st.Existing = existing
	st.Documents.Linked = linked
	if existing != nil {
		st = st.logf("Loaded existing dataset (%d fields)", countSet(*existing))
	} else {
		st = st.logf("No existing dataset (new property)")
	}
	if len(linked) > 0 {
		st = st.logf("Loaded %d linked documents", len(linked))
	}
	return st, nil
}

func (c *Controller) loadDocuments(ctx context.Context, st State) (State, error) {
	docs, err := c.source.Load(ctx, st.InputPath)
	if err != nil {
		return st, err
	}
	if len(docs) == 0 {
		return st, common.NewAppError("NO_DOCUMENTS", "archive contains no PDF documents", common.ErrNoDocuments)
	}
	st.Documents.New = docs
	return st.logf("Loaded %d new documents", len(docs)), nil
}

func (c *Controller) extract(ctx context.Context, st State) (State, error) {
	res, err := c.extractor.Route(ctx, st.Documents, st.Existing)
	if err != nil {
		return st, err
	}
	draft := res.Draft
	st.Draft = &draft
	st.Method = res.Method
	st.Skipped = res.Skipped
	for _, name := range res.Skipped {
		st = st.logf("Skipped malformed document %s", name)
	}
	return st.logf("Extraction method: %s", res.Method), nil
}

func (c *Controller) merge(_ context.Context, st State) (State, error) {
	res := merge.Merge(st.Existing, st.Draft)
	final := res.Dataset
	st.Final = &final
	st.MergeOutcome = res.Outcome
	st.Retained = res.Retained
	for _, f := range res.Retained {
		c.logger.Debug("pipeline.merge.retained", "property_id", st.PropertyID, "field", f)
	}
	switch res.Outcome {
	case merge.OutcomeMerged:
		return st.logf("Merged with existing dataset"), nil
	case merge.OutcomeDraftOnly:
		return st.logf("Using new extraction (no merge needed)"), nil
	default:
		c.logger.Warn("pipeline.merge.no_draft", "property_id", st.PropertyID, "outcome", res.Outcome)
		return st.logf("Warning: No extracted data"), nil
	}
}

func (c *Controller) validate(_ context.Context, st State) (State, error) {
	if st.Final == nil {
		return st, common.NewAppError("INTERNAL", "validate reached without a final dataset", common.ErrInternal)
	}
	st.Valid, st.Issues = c.checker.Validate(*st.Final)
	if st.Valid {
		return st.logf("Validation: PASSED"), nil
	}
	return st.logf("Validation: %d issues found", len(st.Issues)), nil
}

// save writes the dataset first; archival failures only produce a warning.
func (c *Controller) save(ctx context.Context, st State) (State, error) {
	if st.Final == nil {
		return st, common.NewAppError("INTERNAL", "save reached without a final dataset", common.ErrInternal)
	}
	if err := c.store.SaveDataset(ctx, st.PropertyID, *st.Final); err != nil {
		return st, err
	}
	st.Saved = true
	st = st.logf("Dataset saved")

	res, err := c.store.ArchiveDocuments(ctx, st.PropertyID, st.Documents.New)
	st.Archive = res
	if err != nil {
		c.logger.Warn("pipeline.archive.failed", "property_id", st.PropertyID, "err", err)
		return st.logf("Warning: document archive incomplete: %v", err), nil
	}
	if len(res.Archived) > 0 {
		st = st.logf("Archived %d documents", len(res.Archived))
	}
	return st, nil
}
