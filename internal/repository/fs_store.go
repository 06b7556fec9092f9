package repository

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// FSStore keeps one JSON file per property under datasets/ and archived
// documents under documents/<property id>/.
type FSStore struct {
	root   string
	logger *slog.Logger
}

func NewFSStore(root string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FSStore{root: root, logger: logger}
	for _, dir := range []string{s.datasetsDir(), s.documentsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("create store dir", dir, err)
		}
	}
	return s, nil
}

func (s *FSStore) datasetsDir() string  { return filepath.Join(s.root, "datasets") }
func (s *FSStore) documentsDir() string { return filepath.Join(s.root, "documents") }

// DatasetPath is where the record for propertyID lives.
func (s *FSStore) DatasetPath(propertyID string) string {
	return filepath.Join(s.datasetsDir(), propertyID+".json")
}

func (s *FSStore) docDir(propertyID string) string {
	return filepath.Join(s.documentsDir(), propertyID)
}

func (s *FSStore) GetDataset(_ context.Context, propertyID string) (*entity.Dataset, error) {
	if err := checkPropertyID(propertyID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.DatasetPath(propertyID))
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("store.fs.dataset.none", "property_id", propertyID)
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read dataset", propertyID, err)
	}
	return decodeDataset(propertyID, data)
}

// SaveDataset replaces the record atomically: a crash leaves either the old or the new file.
func (s *FSStore) SaveDataset(_ context.Context, propertyID string, d entity.Dataset) error {
	if err := checkPropertyID(propertyID); err != nil {
		return err
	}
	data, err := encodeDataset(d)
	if err != nil {
		return storageErr("encode dataset", propertyID, err)
	}
	if err := writeFileAtomic(s.DatasetPath(propertyID), data); err != nil {
		return storageErr("write dataset", propertyID, err)
	}
	s.logger.Info("store.fs.dataset.saved", "property_id", propertyID, "path", s.DatasetPath(propertyID))
	return nil
}

func (s *FSStore) LinkedDocuments(_ context.Context, propertyID string) ([]entity.Document, error) {
	if err := checkPropertyID(propertyID); err != nil {
		return nil, err
	}
	dir := s.docDir(propertyID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("list documents", propertyID, err)
	}
	var docs []entity.Document
	for _, e := range entries {
		if e.IsDir() || !constants.IsDocumentExt(filepath.Ext(e.Name())) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, storageErr("read document", propertyID, err)
		}
		docs = append(docs, entity.Document{Name: e.Name(), Data: data})
	}
	s.logger.Debug("store.fs.documents.loaded", "property_id", propertyID, "count", len(docs))
	return docs, nil
}

func (s *FSStore) ArchiveDocuments(_ context.Context, propertyID string, docs []entity.Document) (ArchiveResult, error) {
	var res ArchiveResult
	if err := checkPropertyID(propertyID); err != nil {
		return res, err
	}
	if len(docs) == 0 {
		return res, nil
	}
	dir := s.docDir(propertyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, storageErr("create document dir", propertyID, err)
	}
	var errs []error
	for _, doc := range docs {
		name := doc.BaseName()
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, werr := f.Write(doc.Data)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			_ = os.Remove(f.Name())
			errs = append(errs, err)
			continue
		}
		res.Archived = append(res.Archived, name)
	}
	if err := errors.Join(errs...); err != nil {
		return res, storageErr("archive documents", propertyID, err)
	}
	return res, nil
}

func (s *FSStore) ListPropertyIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.datasetsDir())
	if err != nil {
		return nil, storageErr("list datasets", s.datasetsDir(), err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FSStore) DeleteProperty(_ context.Context, propertyID string) error {
	if err := checkPropertyID(propertyID); err != nil {
		return err
	}
	_, statDataset := os.Stat(s.DatasetPath(propertyID))
	_, statDocs := os.Stat(s.docDir(propertyID))
	if errors.Is(statDataset, fs.ErrNotExist) && errors.Is(statDocs, fs.ErrNotExist) {
		return notFound(propertyID)
	}
	if err := os.Remove(s.DatasetPath(propertyID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("delete dataset", propertyID, err)
	}
	if err := os.RemoveAll(s.docDir(propertyID)); err != nil {
		return storageErr("delete documents", propertyID, err)
	}
	s.logger.Info("store.fs.property.deleted", "property_id", propertyID)
	return nil
}

func (s *FSStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
