package listing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	URLField             = "URL"
	CompanyField         = "Company"
	ExperienceLevelField = "ExperienceLevel"
)

// Listings is an ordered collection of listings.
type Listings struct {
	Items []*JobListing
}

type ExcludedListings struct {
	Items []*ExcludedListing
}

type ExcludedListing struct {
	URL        string
	Title      string
	Company    string
	ExcludedAt time.Time
}

func (l *Listings) Len() int {
	return len(l.Items)
}

func (jl *JobListing) GetStringField(name string) string {
	switch name {
	case URLField:
		return jl.URL
	case CompanyField:
		return jl.Company
	case ExperienceLevelField:
		return jl.ExperienceLevel
	default:
		return ""
	}
}

// Exclude removes every listing whose field equals one of targets
// (case-insensitively) and returns the URLs removed. Order is preserved.
func (l *Listings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[strings.ToLower(strings.TrimSpace(target))] = struct{}{}
	}

	var excluded []string
	kept := l.Items[:0]
	for _, item := range l.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(item.GetStringField(name)))]; ok {
			excluded = append(excluded, item.URL)
			continue
		}
		kept = append(kept, item)
	}
	l.Items = kept

	return excluded
}

// Keep removes every listing whose field is not one of targets and returns
// the URLs removed. Order is preserved.
func (l *Listings) Keep(name string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[strings.ToLower(strings.TrimSpace(target))] = struct{}{}
	}

	var excluded []string
	kept := l.Items[:0]
	for _, item := range l.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(item.GetStringField(name)))]; !ok {
			excluded = append(excluded, item.URL)
			continue
		}
		kept = append(kept, item)
	}
	l.Items = kept

	return excluded
}

func (l *Listings) ToExcluded() *ExcludedListings {
	excluded := &ExcludedListings{}
	for _, item := range l.Items {
		excluded.Items = append(excluded.Items, &ExcludedListing{
			URL:        item.URL,
			Title:      item.Title,
			Company:    item.Company,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// ReportByCompany groups a short summary of every listing by company.
func (l *Listings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range l.Items {
		key := item.Company
		if strings.TrimSpace(key) == "" {
			key = "(unknown company)"
		}
		report[key] = append(report[key], map[string]string{
			"title":            item.Title,
			"url":              item.URL,
			"location":         item.Location,
			"experience_level": item.ExperienceLevel,
			"skills":           strings.Join(item.SkillsRequired, ", "),
		})
	}
	return report
}

// GetExcludedListingsFromFile reads an exclude file. A missing or empty file
// yields an empty list.
func GetExcludedListingsFromFile(path string) (*ExcludedListings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedListings{}, nil
		}
		return nil, err
	}

	if strings.TrimSpace(string(data)) == "" {
		return &ExcludedListings{}, nil
	}

	var excluded ExcludedListings
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decoding exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

func (e *ExcludedListings) Append(s *ExcludedListings) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedListings) URLs() []string {
	urls := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		urls = append(urls, item.URL)
	}
	return urls
}

func (e *ExcludedListings) ToFile(path string) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
