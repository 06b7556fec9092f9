package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/core"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/llm"
	"github.com/joseph-ayodele/taxcerts/internal/ocr/ocrtest"
)

const reply = `{
  "taxYear": "2025",
  "annualizedAmountDue": 4321.50,
  "amountDueAtClosing": 2160.75,
  "county": "Alameda",
  "parcelNumber": "123-456",
  "nextTaxPaymentDate": "2025-12-10",
  "followingTaxPaymentDate": "2026-04-10",
  "propertyAddress": "1 Main St, Oakland",
  "_dateSelectionReasoning": "first unpaid installment"
}`

type fakeModel struct{ reply string }

func (f fakeModel) Understand(context.Context, llm.UnderstandRequest) (string, error) {
	return f.reply, nil
}

type goodText struct{}

func (goodText) ExtractText(context.Context, entity.Document) (string, error) {
	return ocrtest.TaxText(), nil
}

func newTestApp(outputDir string) *app {
	a := newApp()
	a.loadConfig = func() *common.Config {
		cfg := common.LoadConfig()
		cfg.Storage.Kind = common.StoreFS
		cfg.Storage.OutputDir = outputDir
		cfg.LLM.APIKey = "test-key"
		cfg.Log.Level = "error"
		cfg.Log.File = ""
		cfg.Batch.Workers = 2
		return cfg
	}
	a.deps = core.Deps{
		Model: fakeModel{reply: reply},
		Text:  goodText{},
		Now:   func() time.Time { return time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC) },
	}
	return a
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	require.NoError(t, a.teardown())
	return out.String(), err
}

func writeArchive(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("bill.pdf")
	require.NoError(t, err)
	_, err = w.Write(ocrtest.MinimalPDF("Alameda County tax bill"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestProcess_EndToEnd(t *testing.T) {
	out := t.TempDir()
	archive := writeArchive(t, t.TempDir(), "tax_certs_12345.zip")

	stdout, err := run(t, newTestApp(out), "process", archive)
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROPERTY: 12345")
	assert.Contains(t, stdout, `"county": "Alameda"`)
	assert.Contains(t, stdout, "No validation issues")
	assert.Contains(t, stdout, "Documents: 1")
	assert.Contains(t, stdout, "Method: text-based extraction")
	assert.Contains(t, stdout, filepath.Join(out, "datasets", "12345.json"))
	assert.NotContains(t, stdout, "Main St", "hidden fields stay out of the display")

	assert.FileExists(t, filepath.Join(out, "datasets", "12345.json"))
	assert.FileExists(t, filepath.Join(out, "documents", "12345", "bill.pdf"))
}

func TestProcess_PropertyIDFlag(t *testing.T) {
	out := t.TempDir()
	archive := writeArchive(t, t.TempDir(), "whatever.zip")

	_, err := run(t, newTestApp(out), "process", archive, "--property-id", "A-1")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "datasets", "A-1.json"))
}

func TestProcess_Errors(t *testing.T) {
	t.Run("missing archive", func(t *testing.T) {
		_, err := run(t, newTestApp(t.TempDir()), "process", filepath.Join(t.TempDir(), "nope.zip"))
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Equal(t, 2, exitCode(err))
	})
	t.Run("missing api key", func(t *testing.T) {
		a := newTestApp(t.TempDir())
		load := a.loadConfig
		a.loadConfig = func() *common.Config {
			cfg := load()
			cfg.LLM.APIKey = ""
			return cfg
		}
		archive := writeArchive(t, t.TempDir(), "tax_certs_1.zip")
		_, err := run(t, a, "process", archive)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	})
	t.Run("requires one argument", func(t *testing.T) {
		_, err := run(t, newTestApp(t.TempDir()), "process")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})
}

func TestExtract_FindsArchiveByName(t *testing.T) {
	out := t.TempDir()
	in := t.TempDir()
	writeArchive(t, in, "TaxCertificates_abc_777.zip")

	stdout, err := run(t, newTestApp(out), "extract", "--name", "777", "--input-dir", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found: TaxCertificates_abc_777.zip")
	assert.FileExists(t, filepath.Join(out, "datasets", "777.json"))

	_, err = run(t, newTestApp(out), "extract", "--name", "999", "--input-dir", in)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBatch_Summary(t *testing.T) {
	out := t.TempDir()
	in := t.TempDir()
	writeArchive(t, in, "tax_certs_1.zip")
	writeArchive(t, in, "tax_certs_2.zip")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "nested"), 0o755))
	writeArchive(t, filepath.Join(in, "nested"), "tax_certs_3.zip")

	stdout, err := run(t, newTestApp(out), "batch", "--input-dir", in, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total properties: 3")
	assert.Contains(t, stdout, "Successful: 3")
	assert.Contains(t, stdout, "Failed: 0")
	assert.Contains(t, stdout, "Text-only: 3")
	assert.Contains(t, stdout, "Cost savings: ~100.0% used cheaper text extraction")

	_, err = run(t, newTestApp(out), "batch", "--input-dir", t.TempDir())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func seed(t *testing.T, out string) {
	t.Helper()
	archive := writeArchive(t, t.TempDir(), "tax_certs_12345.zip")
	_, err := run(t, newTestApp(out), "process", archive)
	require.NoError(t, err)
}

func TestQueries(t *testing.T) {
	out := t.TempDir()
	seed(t, out)

	t.Run("list", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Found 1 property:")
		assert.Contains(t, stdout, "• 12345")
	})

	t.Run("show json", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "show", "12345")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"parcelNumber": "123-456"`)
		assert.NotContains(t, stdout, "propertyAddress")
	})

	t.Run("show yaml", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "show", "12345", "--format", "yaml")
		require.NoError(t, err)
		assert.Contains(t, stdout, "county: Alameda")
		assert.Contains(t, stdout, "taxYear: \"2025\"")
	})

	t.Run("show unknown", func(t *testing.T) {
		_, err := run(t, newTestApp(out), "show", "999")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("search by hidden address", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "search", "--address", "main st")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"property_id": "12345"`)
		assert.NotContains(t, stdout, "Oakland")
	})

	t.Run("search fuzzy county", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "search", "--county", "Alameeda", "--fuzzy", "--format", "table")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Found 1 property:")
		assert.Contains(t, stdout, "$4,321.50")
	})

	t.Run("search csv", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "search", "--tax-year", "2025", "--format", "csv")
		require.NoError(t, err)
		assert.Contains(t, stdout, "property_id,tax_year,annualized_amount_due")
		assert.Contains(t, stdout, `12345,2025,4321.5,2160.75,Alameda,123-456,2025-12-10,2026-04-10,"1 Main St, Oakland"`)
	})

	t.Run("search no match", func(t *testing.T) {
		stdout, err := run(t, newTestApp(out), "search", "--county", "Orange")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No properties found")
	})

	t.Run("search needs a criterion", func(t *testing.T) {
		_, err := run(t, newTestApp(out), "search")
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("search unknown format", func(t *testing.T) {
		_, err := run(t, newTestApp(out), "search", "--county", "x", "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})
}

func TestExport(t *testing.T) {
	out := t.TempDir()
	seed(t, out)
	book := filepath.Join(t.TempDir(), "datasets.xlsx")

	stdout, err := run(t, newTestApp(out), "export", "--out", book)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported to: "+book)

	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Datasets")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "12345", rows[1][0])
}

func TestDelete(t *testing.T) {
	out := t.TempDir()
	seed(t, out)

	stdout, err := run(t, newTestApp(out), "delete", "12345")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted 12345")
	assert.NoFileExists(t, filepath.Join(out, "datasets", "12345.json"))

	_, err = run(t, newTestApp(out), "delete", "12345")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAccuracy(t *testing.T) {
	out := t.TempDir()
	seed(t, out)
	truth := filepath.Join(t.TempDir(), "ground_truth.json")

	require.NoError(t, os.WriteFile(truth, []byte(`{"12345": {
		"taxYear": "2025",
		"annualizedAmountDue": 4321.5,
		"amountDueAtClosing": 2160.75,
		"county": "alameda ",
		"parcelNumber": "123-456",
		"nextTaxPaymentDate": "2025-12-10",
		"followingTaxPaymentDate": "2026-04-10"
	}}`), 0o644))
	report := filepath.Join(t.TempDir(), "report.json")
	stdout, err := run(t, newTestApp(out), "accuracy", "--truth", truth, "--report", report)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Overall accuracy: 100.00%")
	assert.Contains(t, stdout, "All properties extracted perfectly")
	assert.FileExists(t, report)

	require.NoError(t, os.WriteFile(truth, []byte(`{"12345": {"taxYear": "2024", "county": "Alameda"}}`), 0o644))
	stdout, err = run(t, newTestApp(out), "accuracy", "--truth", truth)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Properties with mismatches (1)")
	assert.Contains(t, stdout, "string_mismatch")

	require.NoError(t, os.WriteFile(truth, []byte(`{"12345": {"taxYear": "VERIFY_VALUE"}}`), 0o644))
	_, err = run(t, newTestApp(out), "accuracy", "--truth", truth)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestGlobalFlags(t *testing.T) {
	t.Run("unknown store", func(t *testing.T) {
		_, err := run(t, newTestApp(t.TempDir()), "list", "--store", "mongo")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
	t.Run("output dir override and log file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(t.TempDir(), "run.log")
		_, err := run(t, newTestApp(t.TempDir()), "list", "--output-dir", dir, "--log-file", logPath, "--verbose")
		require.NoError(t, err)
		assert.DirExists(t, filepath.Join(dir, "datasets"))
		assert.FileExists(t, logPath)
	})
	t.Run("sqlite store", func(t *testing.T) {
		a := newTestApp(t.TempDir())
		load := a.loadConfig
		dbPath := filepath.Join(t.TempDir(), "taxcerts.db")
		a.loadConfig = func() *common.Config {
			cfg := load()
			cfg.Storage.SQLitePath = dbPath
			return cfg
		}
		stdout, err := run(t, a, "list", "--store", "sqlite")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No properties found.")
	})
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, common.NewAppError("NOT_FOUND", "no dataset for property 9", common.ErrNotFound))
	assert.Contains(t, buf.String(), "Error: no dataset for property 9: resource not found")

	buf.Reset()
	printError(&buf, errors.New("boom"))
	assert.Contains(t, buf.String(), "Error: boom")
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestSearch_ValidatesFlags(t *testing.T) {
	out := t.TempDir()
	_, err := run(t, newTestApp(out), "search", "--county", "x", "--threshold", "1.5")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "threshold")

	_, err = run(t, newTestApp(out), "search", "--tax-year", "25")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "four-digit year")
}
