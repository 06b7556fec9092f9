package llm

import (
	"context"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// UnderstandRequest is one call to the document-understanding model.
type UnderstandRequest struct {
	Mode      constants.Method
	Text      string            // combined, filename-tagged text (text mode)
	Documents []entity.Document // raw payloads (vision mode)
	Existing  *entity.Dataset   // previously persisted partial dataset, a merge hint
	DocCount  int
}

// DocumentUnderstander turns documents into the raw model reply. Parsing the reply
// is the caller's job; see ParseDatasetResponse.
type DocumentUnderstander interface {
	Understand(ctx context.Context, req UnderstandRequest) (string, error)
}
