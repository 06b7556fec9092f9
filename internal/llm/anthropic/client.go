package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/llm"
)

var _ llm.DocumentUnderstander = (*Client)(nil)

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// statusError carries a non-2xx reply so the retry policy can look at the code.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("anthropic status %d: %s", e.code, e.body)
}

// Understand implements llm.DocumentUnderstander over the messages API.
func (c *Client) Understand(ctx context.Context, req llm.UnderstandRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := c.logger.With("req_id", rid, "run_id", common.RunIDFromContext(ctx), "property_id", common.PropertyIDFromContext(ctx))

	content, err := buildContent(req)
	if err != nil {
		return "", err
	}
	body := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System:      llm.BuildSystemPrompt(c.cfg.Now()),
		Messages:    []message{{Role: "user", Content: content}},
	}

	log.Info("llm.anthropic.start",
		"model", c.cfg.Model,
		"mode", req.Mode,
		"doc_count", req.DocCount,
		"text_len", len(req.Text),
		"has_existing", req.Existing != nil,
	)

	var out messagesResponse
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxRetries), retry.NewExponential(c.cfg.RetryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		raw, err := c.post(ctx, body)
		if err != nil {
			if retryable(ctx, err) {
				log.Warn("llm.anthropic.retry", "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode anthropic response: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("llm.anthropic.failed",
			"error", err,
			"attempts", attempt,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("anthropic: %w: %w", common.ErrCollaborator, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("anthropic: %w: %s: %s", common.ErrCollaborator, out.Error.Type, out.Error.Message)
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		log.Error("llm.anthropic.empty_response", "stop_reason", out.StopReason)
		return "", fmt.Errorf("anthropic: %w: response has no text content", common.ErrCollaborator)
	}

	log.Info("llm.anthropic.ok",
		"attempts", attempt,
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"stop_reason", out.StopReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func buildContent(req llm.UnderstandRequest) ([]contentBlock, error) {
	var blocks []contentBlock
	switch req.Mode {
	case constants.MethodText:
		if strings.TrimSpace(req.Text) == "" {
			return nil, common.NewAppError("INVALID_REQUEST", "text mode needs text", common.ErrInvalidInput)
		}
		if hint := llm.BuildExistingHint(req.Existing, req.DocCount); hint != "" {
			blocks = append(blocks, contentBlock{Type: "text", Text: hint})
		}
		blocks = append(blocks, contentBlock{Type: "text", Text: llm.TextModeInstruction(req.Text)})
	case constants.MethodVision:
		if len(req.Documents) == 0 {
			return nil, common.NewAppError("INVALID_REQUEST", "vision mode needs documents", common.ErrNoDocuments)
		}
		for _, d := range req.Documents {
			blocks = append(blocks, contentBlock{
				Type: "document",
				Source: &documentSource{
					Type:      "base64",
					MediaType: constants.PDFMimeType,
					Data:      base64.StdEncoding.EncodeToString(d.Data),
				},
			})
		}
		if hint := llm.BuildExistingHint(req.Existing, req.DocCount); hint != "" {
			blocks = append(blocks, contentBlock{Type: "text", Text: hint})
		}
		blocks = append(blocks, contentBlock{Type: "text", Text: llm.VisionModeInstruction})
	default:
		return nil, common.NewAppError("INVALID_REQUEST", fmt.Sprintf("unknown mode %q", req.Mode), common.ErrInvalidInput)
	}
	return blocks, nil
}

func (c *Client) post(ctx context.Context, body messagesRequest) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("anthropic response body close error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	return raw, nil
}

// retryable: rate limits, overload and server errors, and transport failures
// while the caller's context is still alive.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}
