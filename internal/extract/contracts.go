package extract

import (
	"context"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// TextExtractor pulls the local text layer out of one document.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc entity.Document) (string, error)
}

// QualityGate decides whether extracted text is reliable enough to use on its own.
type QualityGate interface {
	Assess(text string) bool
}

// DocumentCheck reports whether a payload is a structurally sound document.
type DocumentCheck func(data []byte) error
