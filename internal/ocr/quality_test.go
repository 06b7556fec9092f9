package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/taxcerts/internal/ocr/ocrtest"
)

func TestAssessor(t *testing.T) {
	a := NewAssessor(DefaultQualityConfig(), nil)

	t.Run("Should accept a clean tax statement", func(t *testing.T) {
		res := a.Evaluate(ocrtest.TaxText())
		assert.True(t, res.Accepted)
		assert.Empty(t, res.FailedRule)
		assert.True(t, a.Assess(ocrtest.TaxText()))
	})

	t.Run("Should reject short text regardless of keywords", func(t *testing.T) {
		dense := strings.Repeat("tax parcel county amount due payment ", 20)
		for n := 0; n < 500; n += 37 {
			text := dense[:min(n, len(dense))]
			res := a.Evaluate(text)
			assert.False(t, res.Accepted, "len %d", n)
			assert.Equal(t, RuleLength, res.FailedRule)
		}
	})

	t.Run("Should reject text without enough keywords", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit ", 20) + " tax county"
		res := a.Evaluate(text)
		assert.Equal(t, RuleKeywords, res.FailedRule)
		assert.Equal(t, 2, res.Detail)
	})

	t.Run("Should reject sparse text", func(t *testing.T) {
		text := "tax parcel county " + strings.Repeat("x", 600)
		res := a.Evaluate(text)
		assert.Equal(t, RuleWords, res.FailedRule)
	})

	t.Run("Should reject garbled leading words", func(t *testing.T) {
		garbage := strings.Repeat("xkcdqrt ", 11)
		text := garbage + ocrtest.TaxText()
		res := a.Evaluate(text)
		assert.Equal(t, RuleGarbled, res.FailedRule)
		assert.Equal(t, 11, res.Detail)
	})

	t.Run("Should tolerate up to the garbled limit", func(t *testing.T) {
		garbage := strings.Repeat("xkcdqrt ", 10)
		assert.True(t, a.Assess(garbage+ocrtest.TaxText()))
	})

	t.Run("Should honour custom thresholds", func(t *testing.T) {
		cfg := DefaultQualityConfig()
		cfg.MinLength = 10
		cfg.MinWords = 3
		strict := NewAssessor(cfg, nil)
		assert.True(t, strict.Assess("tax bill for parcel in the county"))
	})
}

func TestAssessor_VowelWindow(t *testing.T) {
	numbers := strings.Repeat("2025-2026 ", 11)
	text := numbers + ocrtest.TaxText()

	assert.True(t, NewAssessor(DefaultQualityConfig(), nil).Assess(text))

	cfg := DefaultQualityConfig()
	cfg.VowelWindow = true
	res := NewAssessor(cfg, nil).Evaluate(text)
	assert.Equal(t, RuleGarbled, res.FailedRule)
	assert.GreaterOrEqual(t, res.Detail, 11)
}

func TestHasVowellessWindow(t *testing.T) {
	assert.True(t, hasVowellessWindow("2025-2026", 4))
	assert.True(t, hasVowellessWindow("strngth", 4))
	assert.True(t, hasVowellessWindow("ab-cd-fg", 4))
	assert.False(t, hasVowellessWindow("transport", 4))
	assert.False(t, hasVowellessWindow("a1e2i3", 4))
}

func TestHasConsonantRun(t *testing.T) {
	assert.True(t, hasConsonantRun("strngth", 4))
	assert.False(t, hasConsonantRun("transport", 4))
	assert.False(t, hasConsonantRun("1234567", 4))
	assert.False(t, hasConsonantRun("ab-cd-fg", 4))
	assert.True(t, hasConsonantRun("XYZW", 4))
}

func TestNormalize(t *testing.T) {
	in := "Parcel\t\tNumber   123\r\n\r\n\r\n\r\nCounty  \fPage two"
	assert.Equal(t, "Parcel Number 123\n\nCounty\n\nPage two", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
