package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// PostgresStore keeps datasets as JSONB rows and documents as BYTEA rows.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func OpenPostgresStore(ctx context.Context, cfg DBConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := OpenPool(ctx, cfg, logger)
	if err != nil {
		return nil, storageErr("open postgres", "pool", err)
	}
	if err := HealthCheck(ctx, pool, cfg.DialTimeout, logger); err != nil {
		pool.Close()
		return nil, storageErr("ping postgres", "pool", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	db.SetMaxIdleConns(0)
	if err := applyMigrations(ctx, db, goose.DialectPostgres, "migrations/postgres", logger); err != nil {
		pool.Close()
		return nil, storageErr("migrate postgres", "pool", err)
	}
	return NewPostgresStore(pool, logger), nil
}

func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

func (s *PostgresStore) GetDataset(ctx context.Context, propertyID string) (*entity.Dataset, error) {
	if err := checkPropertyID(propertyID); err != nil {
		return nil, err
	}
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM datasets WHERE property_id = $1`, propertyID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read dataset", propertyID, err)
	}
	return decodeDataset(propertyID, data)
}

func (s *PostgresStore) SaveDataset(ctx context.Context, propertyID string, d entity.Dataset) error {
	if err := checkPropertyID(propertyID); err != nil {
		return err
	}
	data, err := encodeDataset(d)
	if err != nil {
		return storageErr("encode dataset", propertyID, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO datasets (property_id, data) VALUES ($1, $2)
ON CONFLICT (property_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, propertyID, data)
	if err != nil {
		return storageErr("write dataset", propertyID, err)
	}
	s.logger.Info("store.postgres.dataset.saved", "property_id", propertyID)
	return nil
}

func (s *PostgresStore) LinkedDocuments(ctx context.Context, propertyID string) ([]entity.Document, error) {
	if err := checkPropertyID(propertyID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT name, data FROM documents WHERE property_id = $1 ORDER BY name`, propertyID)
	if err != nil {
		return nil, storageErr("list documents", propertyID, err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Document, error) {
		var d entity.Document
		err := row.Scan(&d.Name, &d.Data)
		return d, err
	})
	if err != nil {
		return nil, storageErr("list documents", propertyID, err)
	}
	return docs, nil
}

func (s *PostgresStore) ArchiveDocuments(ctx context.Context, propertyID string, docs []entity.Document) (ArchiveResult, error) {
	var res ArchiveResult
	if err := checkPropertyID(propertyID); err != nil {
		return res, err
	}
	for _, doc := range docs {
		name := doc.BaseName()
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO documents (property_id, name, data) VALUES ($1, $2, $3) ON CONFLICT (property_id, name) DO NOTHING`,
			propertyID, name, doc.Data)
		if err != nil {
			return res, storageErr("archive document", propertyID, err)
		}
		if tag.RowsAffected() == 0 {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		res.Archived = append(res.Archived, name)
	}
	return res, nil
}

func (s *PostgresStore) ListPropertyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT property_id FROM datasets ORDER BY property_id`)
	if err != nil {
		return nil, storageErr("list datasets", "postgres", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr("list datasets", "postgres", err)
	}
	return ids, nil
}

func (s *PostgresStore) DeleteProperty(ctx context.Context, propertyID string) error {
	if err := checkPropertyID(propertyID); err != nil {
		return err
	}
	var affected int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, q := range []string{
			`DELETE FROM datasets WHERE property_id = $1`,
			`DELETE FROM documents WHERE property_id = $1`,
		} {
			tag, err := tx.Exec(ctx, q, propertyID)
			if err != nil {
				return err
			}
			affected += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return storageErr("delete property", propertyID, err)
	}
	if affected == 0 {
		return notFound(propertyID)
	}
	s.logger.Info("store.postgres.property.deleted", "property_id", propertyID)
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping exposes the pool health check to the daemon.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
