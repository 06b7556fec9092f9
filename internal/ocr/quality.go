package ocr

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QualityConfig holds the thresholds of the text quality gate.
type QualityConfig struct {
	MinLength         int      // minimum characters
	Keywords          []string // lowercase domain keywords
	MinKeywordMatches int
	MinWords          int
	SampleWords       int // leading tokens inspected for garbage
	MinGarbledLength  int // a token must be longer than this to count as garbled
	ConsonantRun      int
	// VowelWindow counts any ConsonantRun-wide window without a vowel, so digits
	// and punctuation extend a run instead of ending it.
	VowelWindow     bool
	MaxGarbledWords int
}

// DefaultQualityConfig returns the thresholds tuned for property-tax documents.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinLength: 500,
		Keywords: []string{
			"tax", "parcel", "county", "amount", "due",
			"payment", "property", "assessed", "levy", "bill",
		},
		MinKeywordMatches: 3,
		MinWords:          100,
		SampleWords:       50,
		MinGarbledLength:  5,
		ConsonantRun:      4,
		MaxGarbledWords:   10,
	}
}

// Rule names reported by Evaluate.
const (
	RuleLength   = "length"
	RuleKeywords = "keywords"
	RuleWords    = "word_count"
	RuleGarbled  = "garbled"
)

// Assessment is the outcome of the quality gate for one text.
type Assessment struct {
	Accepted   bool
	FailedRule string // empty when accepted
	Detail     int    // the measured value of the failing rule
}

// Assessor decides whether locally extracted text is trustworthy enough to
// skip sending raw documents to the model.
type Assessor struct {
	cfg    QualityConfig
	logger *slog.Logger
}

func NewAssessor(cfg QualityConfig, logger *slog.Logger) *Assessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assessor{cfg: cfg, logger: logger}
}

// Assess reports whether text passes every rule.
func (a *Assessor) Assess(text string) bool {
	res := a.Evaluate(text)
	if !res.Accepted {
		a.logger.Debug("ocr.quality.rejected", "rule", res.FailedRule, "value", res.Detail)
	}
	return res.Accepted
}

// Evaluate applies the rules in order and stops at the first failure.
func (a *Assessor) Evaluate(text string) Assessment {
	if n := utf8.RuneCountInString(text); text == "" || n < a.cfg.MinLength {
		return Assessment{FailedRule: RuleLength, Detail: n}
	}

	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range a.cfg.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}
	if matches < a.cfg.MinKeywordMatches {
		return Assessment{FailedRule: RuleKeywords, Detail: matches}
	}

	words := strings.Fields(text)
	if len(words) < a.cfg.MinWords {
		return Assessment{FailedRule: RuleWords, Detail: len(words)}
	}

	sample := words
	if len(sample) > a.cfg.SampleWords {
		sample = sample[:a.cfg.SampleWords]
	}
	garbled := 0
	for _, w := range sample {
		if utf8.RuneCountInString(w) > a.cfg.MinGarbledLength && a.garbledWord(w) {
			garbled++
		}
	}
	if garbled > a.cfg.MaxGarbledWords {
		return Assessment{FailedRule: RuleGarbled, Detail: garbled}
	}

	return Assessment{Accepted: true}
}

func (a *Assessor) garbledWord(w string) bool {
	if a.cfg.VowelWindow {
		return hasVowellessWindow(w, a.cfg.ConsonantRun)
	}
	return hasConsonantRun(w, a.cfg.ConsonantRun)
}

// hasVowellessWindow reports whether some n consecutive runes of word hold no vowel.
func hasVowellessWindow(word string, n int) bool {
	run := 0
	for _, r := range word {
		if unicode.IsLetter(r) && isVowel(r) {
			run = 0
			continue
		}
		run++
		if run >= n {
			return true
		}
	}
	return false
}

// hasConsonantRun reports whether word holds n consecutive consonant letters.
// Anything that is not a letter ends a run.
func hasConsonantRun(word string, n int) bool {
	run := 0
	for _, r := range word {
		if unicode.IsLetter(r) && !isVowel(r) {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
