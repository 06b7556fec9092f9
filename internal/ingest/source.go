package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

// DocumentSource turns an input path into the documents it contains.
type DocumentSource interface {
	Load(ctx context.Context, path string) ([]entity.Document, error)
}

// DefaultMaxDocumentBytes bounds a single extracted document.
const DefaultMaxDocumentBytes = 64 << 20

// ZipSource reads PDFs out of a zip archive, skipping platform metadata and
// anything whose content is not a PDF.
type ZipSource struct {
	MaxDocumentBytes int64
	logger           *slog.Logger
}

func NewZipSource(logger *slog.Logger) *ZipSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZipSource{MaxDocumentBytes: DefaultMaxDocumentBytes, logger: logger}
}

func (z *ZipSource) Load(ctx context.Context, archive string) ([]entity.Document, error) {
	if _, err := os.Stat(archive); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewAppError("ARCHIVE_NOT_FOUND", fmt.Sprintf("archive %s does not exist", archive), common.ErrInvalidInput)
		}
		return nil, common.NewAppError("ARCHIVE_UNREADABLE", fmt.Sprintf("cannot stat %s", archive), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, common.NewAppError("ARCHIVE_UNREADABLE", fmt.Sprintf("cannot open %s as zip", archive), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	defer func() { _ = r.Close() }()

	var (
		docs    []entity.Document
		readErr error
	)
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if skipEntry(f.Name) || f.FileInfo().IsDir() || !constants.IsDocumentExt(path.Ext(f.Name)) {
			continue
		}
		data, err := z.read(f)
		if err != nil {
			z.logger.Warn("ingest.zip.unreadable", "archive", archive, "entry", f.Name, "err", err)
			readErr = common.NewAppError("ARCHIVE_UNREADABLE", fmt.Sprintf("cannot read %s from %s", f.Name, archive), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
			continue
		}
		if mt := mimetype.Detect(data); !mt.Is(constants.PDFMimeType) {
			z.logger.Warn("ingest.zip.skip", "archive", archive, "entry", f.Name, "mime", mt.String())
			continue
		}
		z.logger.Info("ingest.zip.loaded", "archive", archive, "entry", f.Name, "bytes", len(data))
		docs = append(docs, entity.Document{Name: f.Name, Data: data})
	}
	if len(docs) == 0 && readErr != nil {
		return nil, readErr
	}
	z.logger.Info("ingest.zip.done", "archive", filepath.Base(archive), "documents", len(docs))
	return docs, nil
}

func (z *ZipSource) read(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	limit := z.MaxDocumentBytes
	if limit <= 0 {
		limit = DefaultMaxDocumentBytes
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("entry exceeds %d bytes", limit)
	}
	return data, nil
}

// skipEntry matches macOS archive metadata.
func skipEntry(name string) bool {
	return strings.Contains(name, "__MACOSX") || strings.HasPrefix(path.Base(name), "._")
}

// DirSource loads the PDFs found under a directory, walking it recursively.
type DirSource struct {
	SkipHidden bool
	logger     *slog.Logger
}

func NewDirSource(skipHidden bool, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{SkipHidden: skipHidden, logger: logger}
}

func (d *DirSource) Load(ctx context.Context, root string) ([]entity.Document, error) {
	if strings.TrimSpace(root) == "" {
		return nil, common.NewAppError("INVALID_ARGUMENT", "root path is required", common.ErrInvalidInput)
	}
	var docs []entity.Document
	err := filepath.WalkDir(root, func(p string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.SkipHidden && p != root && isHidden(p) {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() || !constants.IsDocumentExt(filepath.Ext(p)) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if mt := mimetype.Detect(data); !mt.Is(constants.PDFMimeType) {
			d.logger.Warn("ingest.dir.skip", "path", p, "mime", mt.String())
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		docs = append(docs, entity.Document{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewAppError("DIR_NOT_FOUND", fmt.Sprintf("directory %s does not exist", root), common.ErrInvalidInput)
		}
		return nil, common.NewAppError("DIR_UNREADABLE", fmt.Sprintf("cannot read %s", root), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	d.logger.Info("ingest.dir.done", "root", root, "documents", len(docs))
	return docs, nil
}

func isHidden(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}

// AutoSource dispatches to DirSource for directories and ZipSource otherwise.
type AutoSource struct {
	Zip *ZipSource
	Dir *DirSource
}

func NewAutoSource(logger *slog.Logger) *AutoSource {
	return &AutoSource{Zip: NewZipSource(logger), Dir: NewDirSource(true, logger)}
}

func (a *AutoSource) Load(ctx context.Context, p string) ([]entity.Document, error) {
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return a.Dir.Load(ctx, p)
	}
	return a.Zip.Load(ctx, p)
}
