// Package search filters stored datasets by address, parcel, county and tax year.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/taxcerts/internal/entity"
)

const DefaultThreshold = 0.6

// Query criteria combine with AND. Empty criteria are ignored.
type Query struct {
	Address   string
	Parcel    string
	County    string
	TaxYear   string // exact
	Fuzzy     bool
	Threshold float64
}

func (q Query) Empty() bool {
	return q.Address == "" && q.Parcel == "" && q.County == "" && q.TaxYear == ""
}

type Hit struct {
	PropertyID string
	Dataset    entity.Dataset
}

// Reader is the part of the dataset store search needs.
type Reader interface {
	ListPropertyIDs(ctx context.Context) ([]string, error)
	GetDataset(ctx context.Context, propertyID string) (*entity.Dataset, error)
}

type Searcher struct {
	store  Reader
	logger *slog.Logger
}

func NewSearcher(store Reader, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{store: store, logger: logger}
}

func (s *Searcher) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.Threshold <= 0 {
		q.Threshold = DefaultThreshold
	}
	ids, err := s.store.ListPropertyIDs(ctx)
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for _, id := range ids {
		d, err := s.store.GetDataset(ctx, id)
		if err != nil {
			s.logger.Warn("search.skip", "property_id", id, "err", err)
			continue
		}
		if d == nil || !Match(*d, q) {
			continue
		}
		hits = append(hits, Hit{PropertyID: id, Dataset: *d})
	}
	s.logger.Debug("search.done", "candidates", len(ids), "hits", len(hits), "fuzzy", q.Fuzzy)
	return hits, nil
}

// Match applies q to one dataset.
func Match(d entity.Dataset, q Query) bool {
	text := func(query string, value *string) bool {
		if query == "" {
			return true
		}
		return textMatch(query, entity.StringValue(value), q.Fuzzy, q.Threshold)
	}
	if !text(q.Address, d.PropertyAddress) || !text(q.Parcel, d.ParcelNumber) || !text(q.County, d.County) {
		return false
	}
	if q.TaxYear != "" && entity.StringValue(d.TaxYear) != strings.TrimSpace(q.TaxYear) {
		return false
	}
	return true
}

// textMatch is a case-insensitive substring test, widened to a similarity
// ratio of at least threshold when fuzzy is set.
func textMatch(query, target string, fuzzy bool, threshold float64) bool {
	if target == "" {
		return false
	}
	q, t := strings.ToLower(strings.TrimSpace(query)), strings.ToLower(target)
	if strings.Contains(t, q) {
		return true
	}
	return fuzzy && levenshtein.Similarity(q, t, nil) >= threshold
}
