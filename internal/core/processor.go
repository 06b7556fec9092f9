// Package core assembles the extraction pipeline from configuration.
package core

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/extract"
	"github.com/joseph-ayodele/taxcerts/internal/ingest"
	"github.com/joseph-ayodele/taxcerts/internal/llm"
	"github.com/joseph-ayodele/taxcerts/internal/llm/anthropic"
	"github.com/joseph-ayodele/taxcerts/internal/ocr"
	"github.com/joseph-ayodele/taxcerts/internal/pipeline"
	"github.com/joseph-ayodele/taxcerts/internal/validation"
)

// Deps overrides collaborators. Zero fields are built from the config.
type Deps struct {
	Model  llm.DocumentUnderstander
	Text   extract.TextExtractor
	Source ingest.DocumentSource
	Now    func() time.Time
}

// NewProcessor coordinates text extraction, the quality gate, the model and
// validation over store.
func NewProcessor(cfg *common.Config, store pipeline.Store, deps Deps, logger *slog.Logger) (*pipeline.Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Model == nil {
		model, err := NewModel(cfg.LLM, logger)
		if err != nil {
			return nil, err
		}
		deps.Model = model
	}
	if deps.Text == nil {
		deps.Text = ocr.NewExtractor(ocr.Config{Pdftotext: cfg.OCR.Pdftotext, NativeFallback: true}, nil, logger)
	}
	if deps.Source == nil {
		deps.Source = ingest.NewAutoSource(logger)
	}

	gate := ocr.NewAssessor(ocr.DefaultQualityConfig(), logger)
	router := extract.NewRouter(extract.RouterConfig{ForceVision: cfg.OCR.ForceVision}, deps.Text, gate, deps.Model, logger)

	vcfg := validation.DefaultConfig()
	if deps.Now != nil {
		vcfg.Now = deps.Now
	}
	checker := validation.NewValidator(vcfg, logger)

	logger.Debug("processor.ready",
		"model", cfg.LLM.Model,
		"pdftotext", cfg.OCR.Pdftotext,
		"force_vision", cfg.OCR.ForceVision,
	)
	return pipeline.NewController(store, deps.Source, router, checker, logger), nil
}

// NewModel builds the Anthropic document-understanding client.
func NewModel(cfg common.LLMConfig, logger *slog.Logger) (llm.DocumentUnderstander, error) {
	client, err := anthropic.NewClient(anthropic.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
	}, logger)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", err.Error(), common.ErrInvalidInput)
	}
	return client, nil
}
