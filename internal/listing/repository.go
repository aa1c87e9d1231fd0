package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/resume-matcher/internal/metrics"

	"go.uber.org/zap"
)

// ErrNoSearch is returned when the configured store cannot search.
var ErrNoSearch = errors.New("listing store does not support search")

// Store returns raw listing records, newest first. Implementations must not
// filter or paginate.
type Store interface {
	FetchRecords(ctx context.Context) ([]map[string]any, error)
}

// Searcher is implemented by stores that can run a keyword search.
type Searcher interface {
	SearchRecords(ctx context.Context, keywords []string, limit int) ([]map[string]any, error)
}

// Repository turns raw store records into deduplicated listings.
type Repository struct {
	store  Store
	logger *zap.Logger
}

func NewRepository(store Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: store, logger: logger}
}

// FetchListings returns the whole listing pool.
func (r *Repository) FetchListings(ctx context.Context) ([]*JobListing, error) {
	records, err := r.store.FetchRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching listing records: %w", err)
	}

	return r.normalize(records), nil
}

// SearchListings returns listings whose title, skills, requirements or
// responsibilities mention any of the keywords.
func (r *Repository) SearchListings(ctx context.Context, keywords []string, limit int) ([]*JobListing, error) {
	searcher, ok := r.store.(Searcher)
	if !ok {
		return nil, ErrNoSearch
	}

	records, err := searcher.SearchRecords(ctx, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("searching listing records: %w", err)
	}

	return r.normalize(records), nil
}

func (r *Repository) normalize(records []map[string]any) []*JobListing {
	decoded := make([]*JobListing, 0, len(records))
	for _, record := range records {
		l, err := Decode(record)
		if err != nil {
			metrics.ListingsFetched.WithLabelValues("invalid").Inc()
			r.logger.Warn("skipping listing record", zap.Error(err))
			continue
		}
		decoded = append(decoded, l)
	}

	listings, dropped := Dedupe(decoded)
	metrics.ListingsFetched.WithLabelValues("ok").Add(float64(len(listings)))
	metrics.ListingsFetched.WithLabelValues("duplicate").Add(float64(len(dropped)))

	if len(dropped) > 0 {
		r.logger.Debug("dropping duplicate listings", zap.Strings("urls", dropped))
	}

	r.logger.Info("listings fetched",
		zap.Int("records", len(records)),
		zap.Int("duplicates", len(dropped)),
		zap.Int("listings", len(listings)),
	)

	return listings
}
