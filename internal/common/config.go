package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store kinds accepted by StorageConfig.Kind.
const (
	StoreFS       = "fs"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Batch    BatchConfig
	Log      LogConfig
}

// StorageConfig selects and locates the dataset store
type StorageConfig struct {
	Kind       string // fs | sqlite | postgres
	OutputDir  string // fs store root, also the document archive root for every kind
	SQLitePath string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr string
	InboxDir string
	Debounce time.Duration
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Pdftotext   string
	ForceVision bool
}

// LLMConfig holds document-understanding model configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
}

// BatchConfig holds concurrency settings for batch and daemon runs
type BatchConfig struct {
	Workers    int
	RunTimeout time.Duration
}

// LoadConfig loads configuration from environment variables, after merging an
// optional .env file from the working directory.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Storage: StorageConfig{
			Kind:       strings.ToLower(getEnv("TAXCERTS_STORE", StoreFS)),
			OutputDir:  getEnv("TAXCERTS_OUTPUT_DIR", "output"),
			SQLitePath: getEnv("TAXCERTS_SQLITE_PATH", "output/taxcerts.db"),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			InboxDir: getEnv("TAXCERTS_INBOX_DIR", "inbox"),
			Debounce: getEnvAsDuration("TAXCERTS_WATCH_DEBOUNCE", 2*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext:   getEnv("PDFTOTEXT", "pdftotext"),
			ForceVision: getEnvAsBool("TAXCERTS_FORCE_VISION", false),
		},
		LLM: LLMConfig{
			Model:       getEnv("TAXCERTS_MODEL", "claude-sonnet-4-5"),
			APIKey:      getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:     getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			MaxTokens:   getEnvAsInt("TAXCERTS_MAX_TOKENS", 2048),
			Temperature: getEnvAsFloat32("TAXCERTS_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("TAXCERTS_LLM_TIMEOUT", 2*time.Minute),
			MaxRetries:  getEnvAsInt("TAXCERTS_LLM_MAX_RETRIES", 2),
		},
		Batch: BatchConfig{
			Workers:    getEnvAsInt("TAXCERTS_WORKERS", 4),
			RunTimeout: getEnvAsDuration("TAXCERTS_RUN_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("TAXCERTS_LOG_LEVEL", "error"),
			JSON:  getEnvAsBool("TAXCERTS_LOG_JSON", false),
			File:  getEnv("TAXCERTS_LOG_FILE", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every command needs. The model key is only
// required by commands that extract, so callers opt in with requireLLM.
func (c *Config) Validate(requireLLM bool) error {
	switch c.Storage.Kind {
	case StoreFS, StoreSQLite:
	case StorePostgres:
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store %q (want fs, sqlite or postgres)", c.Storage.Kind), ErrInvalidInput)
	}
	if c.Storage.OutputDir == "" {
		return NewAppError("CONFIG_ERROR", "TAXCERTS_OUTPUT_DIR is required", ErrInvalidInput)
	}
	if requireLLM && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "TAXCERTS_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
