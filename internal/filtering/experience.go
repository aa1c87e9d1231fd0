package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/listing"
)

var knownLevels = []string{listing.EntryLevel, listing.MidLevel, listing.SeniorLevel}

type experienceLevelsFilter struct {
	toggle
	levels []string
}

// NewExperienceLevels creates a filter that keeps only listings at the configured experience levels.
func NewExperienceLevels() Filter {
	return &experienceLevelsFilter{}
}

func (f *experienceLevelsFilter) Name() string { return "experience_levels" }

func (f *experienceLevelsFilter) Validate(cfg *Config) error {
	f.levels = nil
	if cfg == nil {
		return nil
	}

	for _, level := range cfg.ExperienceLevels {
		canonical, ok := canonicalLevel(level)
		if !ok {
			return fmt.Errorf("unknown experience level %q (expected one of %s)", level, strings.Join(knownLevels, ", "))
		}
		f.levels = append(f.levels, canonical)
	}
	return nil
}

func (f *experienceLevelsFilter) Apply(_ context.Context, deps Deps, l *listing.Listings) (*listing.Listings, Step, error) {
	initial := l.Len()
	if len(f.levels) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	removed := l.Keep(listing.ExperienceLevelField, f.levels)
	if len(removed) > 0 {
		deps.Logger.Info("excluding listings outside the wanted experience levels",
			zap.Strings("levels", f.levels),
			zap.Strings("excluded_listings", removed),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(removed), Left: l.Len()}, nil
}

func (f *experienceLevelsFilter) Status() Status {
	details := map[string]string{}
	if len(f.levels) > 0 {
		details["levels"] = strings.Join(f.levels, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// canonicalLevel accepts "senior", "Senior Level" and similar spellings.
func canonicalLevel(level string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	for _, known := range knownLevels {
		short := strings.TrimSuffix(strings.ToLower(known), " level")
		if normalized == strings.ToLower(known) || normalized == short {
			return known, true
		}
	}
	return "", false
}
