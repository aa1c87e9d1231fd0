package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/listing"
)

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes listings recorded in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, l *listing.Listings) (*listing.Listings, Step, error) {
	initial := l.Len()
	if f.path == "" {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded, err := listing.GetExcludedListingsFromFile(f.path)
	if err != nil {
		return l, Step{}, fmt.Errorf("getting excluded listings from file: %w", err)
	}

	removed := l.Exclude(listing.URLField, excluded.URLs())
	if len(removed) > 0 {
		deps.Logger.Info("excluding listings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_listings", removed),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(removed), Left: l.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
