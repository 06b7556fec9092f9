package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/taxcerts/constants"
	"github.com/joseph-ayodele/taxcerts/internal/common"
	"github.com/joseph-ayodele/taxcerts/internal/entity"
	"github.com/joseph-ayodele/taxcerts/internal/llm"
	"github.com/joseph-ayodele/taxcerts/internal/ocr"
	"github.com/joseph-ayodele/taxcerts/internal/ocr/ocrtest"
)

type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
	calls int
}

func (f *fakeExtractor) ExtractText(_ context.Context, d entity.Document) (string, error) {
	f.calls++
	if err := f.errs[d.Name]; err != nil {
		return "", err
	}
	return f.texts[d.Name], nil
}

type fakeUnderstander struct {
	reply string
	err   error
	reqs  []llm.UnderstandRequest
}

func (f *fakeUnderstander) Understand(_ context.Context, req llm.UnderstandRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func newRouter(cfg RouterConfig, ex *fakeExtractor, model *fakeUnderstander) *Router {
	return NewRouter(cfg, ex, ocr.NewAssessor(ocr.DefaultQualityConfig(), nil), model, nil)
}

func pdfDoc(name string) entity.Document {
	return entity.Document{Name: name, Data: ocrtest.MinimalPDF(name)}
}

func TestRouteText(t *testing.T) {
	ex := &fakeExtractor{texts: map[string]string{"a.pdf": ocrtest.TaxText(), "b.pdf": ocrtest.TaxText()}}
	model := &fakeUnderstander{reply: "```json\n{\"county\": \"Orange\", \"taxYear\": \"2025\"}\n```"}
	existing := &entity.Dataset{ParcelNumber: entity.String("123-456")}

	res, err := newRouter(RouterConfig{}, ex, model).Route(context.Background(),
		entity.DocumentSet{New: []entity.Document{pdfDoc("a.pdf"), pdfDoc("b.pdf")}}, existing)
	require.NoError(t, err)

	assert.Equal(t, constants.MethodText, res.Method)
	assert.Equal(t, "Orange", *res.Draft.County)
	require.Len(t, model.reqs, 1)
	req := model.reqs[0]
	assert.Equal(t, constants.MethodText, req.Mode)
	assert.Contains(t, req.Text, "=== a.pdf ===")
	assert.Contains(t, req.Text, "=== b.pdf ===")
	assert.Empty(t, req.Documents)
	assert.Same(t, existing, req.Existing)
	assert.Equal(t, 2, req.DocCount)
}

func TestRouteVision(t *testing.T) {
	t.Run("Should switch to vision when any text fails the gate", func(t *testing.T) {
		ex := &fakeExtractor{texts: map[string]string{"a.pdf": ocrtest.TaxText(), "b.pdf": "scan"}}
		model := &fakeUnderstander{reply: `{"county": "Kern"}`}
		res, err := newRouter(RouterConfig{}, ex, model).Route(context.Background(),
			entity.DocumentSet{New: []entity.Document{pdfDoc("a.pdf"), pdfDoc("b.pdf")}}, nil)
		require.NoError(t, err)
		assert.Equal(t, constants.MethodVision, res.Method)
		require.Len(t, model.reqs, 1)
		assert.Len(t, model.reqs[0].Documents, 2)
		assert.Empty(t, model.reqs[0].Text)
	})

	t.Run("Should switch to vision when extraction errors", func(t *testing.T) {
		ex := &fakeExtractor{errs: map[string]error{"a.pdf": errors.New("no text layer")}}
		model := &fakeUnderstander{reply: `{}`}
		res, err := newRouter(RouterConfig{}, ex, model).Route(context.Background(),
			entity.DocumentSet{New: []entity.Document{pdfDoc("a.pdf")}}, nil)
		require.NoError(t, err)
		assert.Equal(t, constants.MethodVision, res.Method)
	})

	t.Run("Should skip malformed documents and keep the rest", func(t *testing.T) {
		ex := &fakeExtractor{}
		model := &fakeUnderstander{reply: `{}`}
		broken := entity.Document{Name: "broken.pdf", Data: []byte("not a pdf")}
		res, err := newRouter(RouterConfig{}, ex, model).Route(context.Background(),
			entity.DocumentSet{New: []entity.Document{broken, pdfDoc("ok.pdf")}}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"broken.pdf"}, res.Skipped)
		require.Len(t, model.reqs[0].Documents, 1)
		assert.Equal(t, "ok.pdf", model.reqs[0].Documents[0].Name)
		assert.Equal(t, 1, model.reqs[0].DocCount)
	})

	t.Run("Should fail when every document is malformed", func(t *testing.T) {
		model := &fakeUnderstander{reply: `{}`}
		_, err := newRouter(RouterConfig{}, &fakeExtractor{}, model).Route(context.Background(),
			entity.DocumentSet{New: []entity.Document{{Name: "x.pdf", Data: []byte("junk")}}}, nil)
		assert.ErrorIs(t, err, common.ErrNoDocuments)
		assert.Empty(t, model.reqs)
	})

	t.Run("Should honour the force-vision scaffold", func(t *testing.T) {
		ex := &fakeExtractor{texts: map[string]string{"a.pdf": ocrtest.TaxText()}}
		model := &fakeUnderstander{reply: `{}`}
		res, err := newRouter(RouterConfig{ForceVision: true}, ex, model).Route(context.Background(),
			entity.DocumentSet{New: []entity.Document{pdfDoc("a.pdf")}}, nil)
		require.NoError(t, err)
		assert.Equal(t, constants.MethodVision, res.Method)
		assert.Zero(t, ex.calls)
	})
}

func TestRouteFailures(t *testing.T) {
	good := &fakeExtractor{texts: map[string]string{"a.pdf": ocrtest.TaxText()}}
	docs := entity.DocumentSet{New: []entity.Document{pdfDoc("a.pdf")}}

	t.Run("Should reject an empty document set", func(t *testing.T) {
		_, err := newRouter(RouterConfig{}, good, &fakeUnderstander{}).Route(context.Background(),
			entity.DocumentSet{Linked: []entity.Document{pdfDoc("old.pdf")}}, nil)
		assert.ErrorIs(t, err, common.ErrNoDocuments)
	})

	t.Run("Should propagate collaborator failures without fallback", func(t *testing.T) {
		model := &fakeUnderstander{err: errors.New("connection reset")}
		_, err := newRouter(RouterConfig{}, good, model).Route(context.Background(), docs, nil)
		assert.ErrorIs(t, err, common.ErrCollaborator)
		assert.Len(t, model.reqs, 1)
	})

	t.Run("Should fail on an unparsable reply", func(t *testing.T) {
		model := &fakeUnderstander{reply: "Sorry, I cannot help with that."}
		_, err := newRouter(RouterConfig{}, good, model).Route(context.Background(), docs, nil)
		assert.ErrorIs(t, err, common.ErrMalformedResponse)
	})
}
