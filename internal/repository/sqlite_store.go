package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	// Register the modernc driver under the name "sqlite".
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// SQLiteStore keeps datasets and archived documents in one SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func buildSQLiteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?cache=shared&_pragma=foreign_keys(ON)"
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
}

func OpenSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageErr("create sqlite dir", path, err)
		}
	}
	db, err := sql.Open("sqlite", buildSQLiteDSN(path))
	if err != nil {
		return nil, storageErr("open sqlite", path, err)
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)
	if err := applyMigrations(ctx, db, goose.DialectSQLite3, "migrations/sqlite", logger); err != nil {
		_ = db.Close()
		return nil, storageErr("migrate sqlite", path, err)
	}
	logger.Info("store.sqlite.open", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, propertyID string) (*entity.Dataset, error) {
	if err := checkPropertyID(propertyID); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM datasets WHERE property_id = ?`, propertyID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read dataset", propertyID, err)
	}
	return decodeDataset(propertyID, []byte(data))
}

func (s *SQLiteStore) SaveDataset(ctx context.Context, propertyID string, d entity.Dataset) error {
	if err := checkPropertyID(propertyID); err != nil {
		return err
	}
	data, err := encodeDataset(d)
	if err != nil {
		return storageErr("encode dataset", propertyID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO datasets (property_id, data) VALUES (?, ?)
ON CONFLICT (property_id) DO UPDATE SET
    data = excluded.data,
    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`, propertyID, string(data))
	if err != nil {
		return storageErr("write dataset", propertyID, err)
	}
	s.logger.Info("store.sqlite.dataset.saved", "property_id", propertyID)
	return nil
}

func (s *SQLiteStore) LinkedDocuments(ctx context.Context, propertyID string) ([]entity.Document, error) {
	if err := checkPropertyID(propertyID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, data FROM documents WHERE property_id = ? ORDER BY name`, propertyID)
	if err != nil {
		return nil, storageErr("list documents", propertyID, err)
	}
	defer rows.Close()
	var docs []entity.Document
	for rows.Next() {
		var d entity.Document
		if err := rows.Scan(&d.Name, &d.Data); err != nil {
			return nil, storageErr("scan document", propertyID, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list documents", propertyID, err)
	}
	return docs, nil
}

func (s *SQLiteStore) ArchiveDocuments(ctx context.Context, propertyID string, docs []entity.Document) (ArchiveResult, error) {
	var res ArchiveResult
	if err := checkPropertyID(propertyID); err != nil {
		return res, err
	}
	for _, doc := range docs {
		name := doc.BaseName()
		r, err := s.db.ExecContext(ctx,
			`INSERT INTO documents (property_id, name, data) VALUES (?, ?, ?) ON CONFLICT (property_id, name) DO NOTHING`,
			propertyID, name, doc.Data)
		if err != nil {
			return res, storageErr("archive document", propertyID, err)
		}
		if n, _ := r.RowsAffected(); n == 0 {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		res.Archived = append(res.Archived, name)
	}
	return res, nil
}

func (s *SQLiteStore) ListPropertyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT property_id FROM datasets ORDER BY property_id`)
	if err != nil {
		return nil, storageErr("list datasets", "sqlite", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan dataset id", "sqlite", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteProperty(ctx context.Context, propertyID string) error {
	if err := checkPropertyID(propertyID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("delete property", propertyID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64
	for _, q := range []string{
		`DELETE FROM datasets WHERE property_id = ?`,
		`DELETE FROM documents WHERE property_id = ?`,
	} {
		r, err := tx.ExecContext(ctx, q, propertyID)
		if err != nil {
			return storageErr("delete property", propertyID, err)
		}
		n, _ := r.RowsAffected()
		affected += n
	}
	if affected == 0 {
		return notFound(propertyID)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("delete property", propertyID, err)
	}
	s.logger.Info("store.sqlite.property.deleted", "property_id", propertyID)
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
