package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/llm"
	"github.com/joseph-ayodele/taxcerts/internal/ocr"
)

// RouterConfig tunes strategy selection.
type RouterConfig struct {
	// ForceVision skips the text path entirely. Test scaffold only; keep it off in production.
	ForceVision bool
}

// Result is the outcome of one routing decision.
type Result struct {
	Draft   entity.Dataset
	Method  constants.Method
	Skipped []string // documents dropped from a vision request as malformed
}

// Router picks the text or vision strategy for a document set and calls the model.
type Router struct {
	cfg      RouterConfig
	text     TextExtractor
	gate     QualityGate
	model    llm.DocumentUnderstander
	checkDoc DocumentCheck
	logger   *slog.Logger
}

func NewRouter(cfg RouterConfig, text TextExtractor, gate QualityGate, model llm.DocumentUnderstander, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		text:     text,
		gate:     gate,
		model:    model,
		checkDoc: ocr.ValidatePDF,
		logger:   logger,
	}
}

// WithDocumentCheck replaces the structural document check.
func (r *Router) WithDocumentCheck(check DocumentCheck) *Router {
	r.checkDoc = check
	return r
}

// Route extracts a draft dataset from the new documents of docs. existing is only
// forwarded to the model as a merge hint.
func (r *Router) Route(ctx context.Context, docs entity.DocumentSet, existing *entity.Dataset) (Result, error) {
	start := time.Now()
	if len(docs.New) == 0 {
		return Result{}, common.NewAppError("NO_DOCUMENTS", "nothing to extract", common.ErrNoDocuments)
	}

	var (
		req     llm.UnderstandRequest
		skipped []string
	)
	texts, ok := r.collectText(ctx, docs.New)
	if ok {
		req = llm.UnderstandRequest{
			Mode: constants.MethodText,
			Text: llm.CombineTexts(docs.New, texts),
		}
	} else {
		var usable []entity.Document
		usable, skipped = r.usableDocuments(docs.New)
		if len(usable) == 0 {
			return Result{}, common.NewAppError("NO_DOCUMENTS", "no document could be opened", common.ErrNoDocuments)
		}
		req = llm.UnderstandRequest{
			Mode:      constants.MethodVision,
			Documents: usable,
		}
	}
	req.Existing = existing
	req.DocCount = len(docs.New) - len(skipped)

	r.logger.Info("router.route.start",
		"method", req.Mode,
		"doc_count", req.DocCount,
		"skipped", len(skipped),
		"has_existing", existing != nil,
	)

	raw, err := r.model.Understand(ctx, req)
	if err != nil {
		if !errors.Is(err, common.ErrCollaborator) {
			err = fmt.Errorf("%w: %w", common.ErrCollaborator, err)
		}
		return Result{}, fmt.Errorf("%s extraction: %w", req.Mode, err)
	}
	draft, err := llm.ParseDatasetResponse(raw, r.logger)
	if err != nil {
		return Result{}, fmt.Errorf("%s extraction: %w", req.Mode, err)
	}

	r.logger.Info("router.route.ok",
		"method", req.Mode,
		"missing", len(draft.Missing()),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Draft: draft, Method: req.Mode, Skipped: skipped}, nil
}

// collectText returns the text of every document, or false as soon as one
// document has no usable text.
func (r *Router) collectText(ctx context.Context, docs []entity.Document) ([]string, bool) {
	if r.cfg.ForceVision {
		r.logger.Warn("router.force_vision", "doc_count", len(docs))
		return nil, false
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		text, err := r.text.ExtractText(ctx, d)
		if err != nil {
			r.logger.Info("router.text.unavailable", "document", d.Name, "error", err)
			return nil, false
		}
		if !r.gate.Assess(text) {
			r.logger.Info("router.text.low_quality", "document", d.Name, "chars", len(text))
			return nil, false
		}
		texts = append(texts, text)
	}
	return texts, true
}

func (r *Router) usableDocuments(docs []entity.Document) ([]entity.Document, []string) {
	usable := make([]entity.Document, 0, len(docs))
	var skipped []string
	for _, d := range docs {
		if err := r.checkDoc(d.Data); err != nil {
			r.logger.Warn("router.document.skipped", "document", d.Name, "error", err)
			skipped = append(skipped, d.Name)
			continue
		}
		usable = append(usable, d)
	}
	return usable, skipped
}
