package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	// NativeFallback extracts with the pure-Go reader when pdftotext is unavailable.
	NativeFallback bool
}

// Extractor pulls the embedded text layer out of PDF documents.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// ExtractText returns the normalized text of doc. An empty string with a nil
// error means the document has no text layer.
func (e *Extractor) ExtractText(ctx context.Context, doc entity.Document) (string, error) {
	start := time.Now()
	text, err := e.pdfToText(ctx, doc.Data)
	method := "pdftotext"
	if err != nil && e.cfg.NativeFallback && errors.Is(err, exec.ErrNotFound) {
		method = "native"
		text, err = NativeText(doc.Data)
	}
	if err != nil {
		e.logger.Warn("ocr.extract.failed", "document", doc.Name, "method", method, "error", err)
		return "", fmt.Errorf("extract text from %s: %w", doc.Name, err)
	}
	text = Normalize(text)
	e.logger.Debug("ocr.extract.ok",
		"document", doc.Name,
		"method", method,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (e *Extractor) pdfToText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "taxcerts-*.pdf")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		if len(errb) > 0 {
			return "", fmt.Errorf("%w: %s", err, truncate(string(errb), 512))
		}
		return "", err
	}
	return string(out), nil
}

// NativeText reads the text layer with the pure-Go PDF reader.
func NativeText(data []byte) (text string, err error) {
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf text: %v", rec)
		}
	}()
	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(b), nil
}

// ValidatePDF checks that data opens as a PDF with at least one page.
func ValidatePDF(data []byte) error {
	r, err := openPDF(data)
	if err != nil {
		return err
	}
	if r.NumPage() < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}

// openPDF guards against the reader panicking on truncated cross-reference tables.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("malformed pdf: %w", err)
	}
	return r, nil
}
