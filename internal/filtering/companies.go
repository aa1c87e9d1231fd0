package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/listing"
)

type companiesFilter struct {
	toggle
	companies []string
}

// NewCompanies creates a filter that removes listings posted by the configured companies.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg != nil {
		f.companies = append(f.companies, cfg.ExcludeCompanies...)
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, l *listing.Listings) (*listing.Listings, Step, error) {
	initial := l.Len()
	if len(f.companies) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(listing.CompanyField, f.companies)
	if len(excluded) > 0 {
		deps.Logger.Info("excluding listings by company",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
