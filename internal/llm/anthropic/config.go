package anthropic

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-5"

	anthropicVersion = "2023-06-01"
)

// Config for the Anthropic messages client.
type Config struct {
	APIKey       string // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL      string // default https://api.anthropic.com
	Model        string
	MaxTokens    int           // default 2048
	Temperature  float32       // sent as-is, 0 included
	Timeout      time.Duration // per attempt
	MaxRetries   int           // extra attempts on 429/5xx/transport errors
	RetryBackoff time.Duration // base of the exponential backoff, default 1s
	Now          func() time.Time
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}
