package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// StripCodeFence removes a surrounding markdown code fence (``` or ```json).
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", ...)
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the JSON object carried by a model reply. It accepts a
// bare object, a fenced one, or an object embedded in surrounding prose.
func ExtractJSONObject(text string) ([]byte, error) {
	s := StripCodeFence(text)
	if s == "" {
		return nil, common.NewAppError("EMPTY_RESPONSE", "model returned no content", common.ErrCollaborator)
	}
	if gjson.Valid(s) {
		if !gjson.Parse(s).IsObject() {
			return nil, common.NewAppError("MALFORMED_RESPONSE", "model reply is JSON but not an object", common.ErrMalformedResponse)
		}
		return []byte(s), nil
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		candidate := s[start : end+1]
		if gjson.Valid(candidate) && gjson.Parse(candidate).IsObject() {
			return []byte(candidate), nil
		}
	}
	return nil, common.NewAppError("MALFORMED_RESPONSE", "model reply is not valid JSON", common.ErrMalformedResponse)
}

// ParseDatasetResponse turns a raw model reply into a typed dataset. The reply is
// unwrapped, sanitized and checked against the dataset schema; any failure is fatal.
func ParseDatasetResponse(text string, logger *slog.Logger) (entity.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := ExtractJSONObject(text)
	if err != nil {
		logger.Error("llm.response.unparsable", "error", err, "reply_chars", len(text))
		return entity.Dataset{}, err
	}

	cleaned, _, err := NormalizeAndSanitizeJSON(raw, logger)
	if err != nil {
		return entity.Dataset{}, common.NewAppError("MALFORMED_RESPONSE", "sanitize model reply", fmt.Errorf("%w: %v", common.ErrMalformedResponse, err))
	}
	if err := ValidateDatasetJSON(cleaned); err != nil {
		logger.Error("llm.response.schema_validation_failed", "error", err)
		return entity.Dataset{}, common.NewAppError("MALFORMED_RESPONSE", "model reply does not match the dataset schema", fmt.Errorf("%w: %v", common.ErrMalformedResponse, err))
	}

	var d entity.Dataset
	if err := json.Unmarshal(cleaned, &d); err != nil {
		return entity.Dataset{}, common.NewAppError("MALFORMED_RESPONSE", "decode dataset", fmt.Errorf("%w: %v", common.ErrMalformedResponse, err))
	}
	return d, nil
}
