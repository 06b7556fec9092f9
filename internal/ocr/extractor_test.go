package ocr

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/ocr/ocrtest"
)

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  [][]string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.stdout, s.stderr, s.err
}

func TestExtractor(t *testing.T) {
	doc := entity.Document{Name: "bill.pdf", Data: ocrtest.MinimalPDF("Tax bill")}

	t.Run("Should run pdftotext and normalize its output", func(t *testing.T) {
		r := &stubRunner{stdout: []byte("Tax   bill\r\n\f")}
		e := NewExtractor(Config{Pdftotext: "/usr/bin/pdftotext"}, r, nil)
		text, err := e.ExtractText(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, "Tax bill", text)
		require.Len(t, r.calls, 1)
		assert.Equal(t, "/usr/bin/pdftotext", r.calls[0][0])
		assert.Equal(t, "-", r.calls[0][len(r.calls[0])-1])
	})

	t.Run("Should surface pdftotext failures", func(t *testing.T) {
		r := &stubRunner{stderr: []byte("Syntax Error"), err: errors.New("exit status 1")}
		e := NewExtractor(Config{}, r, nil)
		_, err := e.ExtractText(context.Background(), doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Syntax Error")
		assert.Contains(t, err.Error(), "bill.pdf")
	})

	t.Run("Should not fall back unless the binary is missing", func(t *testing.T) {
		r := &stubRunner{err: errors.New("exit status 3")}
		e := NewExtractor(Config{NativeFallback: true}, r, nil)
		_, err := e.ExtractText(context.Background(), doc)
		assert.Error(t, err)
	})

	t.Run("Should fall back to the native reader when pdftotext is absent", func(t *testing.T) {
		r := &stubRunner{err: &exec.Error{Name: "pdftotext", Err: exec.ErrNotFound}}
		e := NewExtractor(Config{NativeFallback: true}, r, nil)
		_, err := e.ExtractText(context.Background(), entity.Document{Name: "junk.pdf", Data: []byte("junk")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed pdf")
	})
}

func TestValidatePDF(t *testing.T) {
	assert.NoError(t, ValidatePDF(ocrtest.MinimalPDF("hello")))
	assert.Error(t, ValidatePDF(nil))
	assert.Error(t, ValidatePDF([]byte("%PDF-1.4 not really")))
	assert.Error(t, ValidatePDF([]byte("PK\x03\x04 zip bytes")))
}
