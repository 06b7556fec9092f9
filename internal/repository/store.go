package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// DatasetStore persists the per-property dataset record and its archived documents.
type DatasetStore interface {
	// GetDataset returns nil without error when the property has no record yet.
	GetDataset(ctx context.Context, propertyID string) (*entity.Dataset, error)
	SaveDataset(ctx context.Context, propertyID string, d entity.Dataset) error
	LinkedDocuments(ctx context.Context, propertyID string) ([]entity.Document, error)
	// ArchiveDocuments never overwrites a document already archived under the same basename.
	ArchiveDocuments(ctx context.Context, propertyID string, docs []entity.Document) (ArchiveResult, error)
	ListPropertyIDs(ctx context.Context) ([]string, error)
	DeleteProperty(ctx context.Context, propertyID string) error
	Close() error
}

// ArchiveResult lists basenames written and basenames skipped because they already existed.
type ArchiveResult struct {
	Archived []string
	Skipped  []string
}

// Open builds the store selected by cfg.Storage.Kind.
func Open(ctx context.Context, cfg common.Config, logger *slog.Logger) (DatasetStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Storage.Kind {
	case common.StoreFS, "":
		return NewFSStore(cfg.Storage.OutputDir, logger)
	case common.StoreSQLite:
		return OpenSQLiteStore(ctx, cfg.Storage.SQLitePath, logger)
	case common.StorePostgres:
		return OpenPostgresStore(ctx, DBConfig{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store %q", cfg.Storage.Kind), common.ErrInvalidInput)
}

// encodeDataset renders the persisted record. Identical datasets always encode
// to identical bytes.
func encodeDataset(d entity.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeDataset(propertyID string, data []byte) (*entity.Dataset, error) {
	var d entity.Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, common.NewAppError("CORRUPT_DATASET", fmt.Sprintf("dataset for %s is not valid JSON", propertyID), fmt.Errorf("%w: %w", common.ErrStorage, err))
	}
	return &d, nil
}

// checkPropertyID guards storage keys that also become path segments.
func checkPropertyID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return common.NewAppError("INVALID_PROPERTY_ID", fmt.Sprintf("invalid property id %q", id), common.ErrInvalidInput)
	}
	return nil
}

func storageErr(op, propertyID string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, propertyID, common.ErrStorage, err)
}

func notFound(propertyID string) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("property %s has no stored data", propertyID), common.ErrNotFound)
}
