package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/listing"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/observability"
)

func TestGetConfigDefaults(t *testing.T) {
	config, err := getConfig()
	require.NoError(t, err)

	require.NotNil(t, config.Matching)
	assert.Equal(t, 5, config.Matching.TopN)
	assert.Equal(t, 5, config.Matching.Workers)
	assert.Equal(t, 60*time.Second, config.Matching.CallTimeout)
	assert.Equal(t, []string{"Technical Skills", "Skills", "skills"}, config.Matching.SkillKeys)
	assert.Equal(t, matching.DropInvalidScore, config.Matching.Recommendations.InvalidScorePolicy)
	assert.Equal(t, 50, config.Matching.Recommendations.DefaultScore)

	require.NotNil(t, config.Recommendations)
	assert.True(t, config.Recommendations.Enabled)

	require.NotNil(t, config.AI)
	require.NotNil(t, config.AI.Gemini)
	assert.Equal(t, "gemini-2.0-flash", config.AI.Gemini.Model)
	assert.InDelta(t, 0.3, config.AI.Gemini.Temperature, 1e-6)
	require.NotNil(t, config.AI.Gemini.CircuitBreaker)
	assert.Equal(t, 30*time.Second, config.AI.Gemini.CircuitBreaker.Timeout)

	require.NotNil(t, config.Store)
	assert.Equal(t, "postgres", config.Store.Driver)
	require.NotNil(t, config.Store.Cache)
	assert.Equal(t, 10*time.Minute, config.Store.Cache.TTL)
	assert.False(t, config.Store.Cache.Refresh)

	require.NotNil(t, config.Telemetry)
	assert.Equal(t, observability.ExporterNone, config.Telemetry.Tracing.Exporter)
	assert.InDelta(t, 1.0, config.Telemetry.Tracing.SampleRate, 1e-9)
	assert.Empty(t, config.Telemetry.Metrics.Addr)
}

func TestRedactedHidesCredentials(t *testing.T) {
	config := &Config{Store: &StoreConfig{
		DSN:   "postgres://user:secret@db/jobs",
		Cache: &CacheConfig{URL: "redis://:secret@cache:6379/0"},
	}}

	out := redacted(config)

	assert.Equal(t, "<redacted>", out.Store.DSN)
	assert.Equal(t, "<redacted>", out.Store.Cache.URL)
	assert.Equal(t, "postgres://user:secret@db/jobs", config.Store.DSN)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Skills": ["Go", "SQL"]}`), 0o600))

	profile, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, profile.Skills([]string{"Skills"}))

	_, err = loadProfile("")
	require.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`["not", "an", "object"]`), 0o600))
	_, err = loadProfile(broken)
	require.Error(t, err)
}

func TestNewRepositoryFileDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"url": "https://jobs.example/1", "job_title": "Go Developer", "company": "Acme", "skills_required": ["Go"]}]`), 0o600))

	repo, closeStore, err := newRepository(t.Context(), &StoreConfig{Driver: "file", Path: path}, nil)
	require.NoError(t, err)
	defer closeStore()

	listings, err := repo.FetchListings(t.Context())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Go Developer", listings[0].Title)

	_, _, err = newRepository(t.Context(), &StoreConfig{Driver: "mongo"}, nil)
	require.Error(t, err)
	_, _, err = newRepository(t.Context(), &StoreConfig{Driver: "postgres"}, nil)
	require.Error(t, err)
}

func TestNewRepositoryRefreshCache(t *testing.T) {
	mr := miniredis.RunT(t)

	path := filepath.Join(t.TempDir(), "jobs.json")
	writeJobs := func(title string) {
		require.NoError(t, os.WriteFile(path, []byte(`[{"url": "https://jobs.example/1", "job_title": "`+title+`", "company": "Acme"}]`), 0o600))
	}
	cfg := &StoreConfig{
		Driver: "file",
		Path:   path,
		Cache:  &CacheConfig{Enabled: true, URL: "redis://" + mr.Addr(), TTL: time.Minute},
	}
	fetchTitle := func() string {
		repo, closeStore, err := newRepository(t.Context(), cfg, nil)
		require.NoError(t, err)
		defer closeStore()

		listings, err := repo.FetchListings(t.Context())
		require.NoError(t, err)
		require.Len(t, listings, 1)
		return listings[0].Title
	}

	writeJobs("Go Developer")
	assert.Equal(t, "Go Developer", fetchTitle())

	writeJobs("Rust Developer")
	assert.Equal(t, "Go Developer", fetchTitle())

	cfg.Cache.Refresh = true
	assert.Equal(t, "Rust Developer", fetchTitle())
}

func TestWriteOutputToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, writeOutput(path, []matching.Recommendation{{JobTitle: "Data Analyst", MatchScore: 80}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_title": "Data Analyst"`)
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *closeFailWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestEncodeAndCloseReportsCloseError(t *testing.T) {
	w := &closeFailWriter{closeErr: errors.New("disk full")}

	err := encodeAndClose(w, map[string]int{"match_score": 80})

	require.Error(t, err)
	assert.ErrorIs(t, err, w.closeErr)
	assert.True(t, w.closed)
	assert.Contains(t, w.String(), `"match_score": 80`)
}

func TestEncodeAndCloseKeepsEncodeError(t *testing.T) {
	w := &closeFailWriter{closeErr: errors.New("disk full")}

	err := encodeAndClose(w, func() {})

	require.Error(t, err)
	assert.NotErrorIs(t, err, w.closeErr)
	assert.True(t, w.closed)
}

func TestFormatMatch(t *testing.T) {
	m := matching.MatchedJob{
		JobListing: &listing.JobListing{Title: "Go Developer", Company: "Acme", URL: "https://jobs.example/1"},
		MatchDetails: matching.MatchDetail{
			MatchScore:     72,
			MatchedSkills:  []string{"Go"},
			MissingSkills:  []string{"Kafka"},
			MatchReasoning: "Solid backend experience.",
			JobFit:         matching.GoodMatch,
		},
	}

	out := formatMatch(1, m)

	assert.Contains(t, out, " 1. [ 72] Good Match - Go Developer / Acme")
	assert.Contains(t, out, "matched: Go")
	assert.Contains(t, out, "missing: Kafka")
}

func TestFormatStatus(t *testing.T) {
	enabled := filtering.Status{
		Name:    "companies",
		Enabled: true,
		Details: map[string]string{"companies": "Acme,Globex", "count": "2"},
	}
	assert.Equal(t, "companies (enabled)\n    companies: Acme,Globex\n    count: 2", formatStatus(enabled))

	disabled := filtering.Status{Name: "experience_levels", Reason: "skip-filter flag is set"}
	assert.Equal(t, "experience_levels (disabled: skip-filter flag is set)", formatStatus(disabled))
}

func TestHandleActionFilterStatus(t *testing.T) {
	steps := filtering.Default()
	require.True(t, filtering.DisableByName(steps, "companies", "flag"))

	require.NoError(t, handleAction(PromptFilterStatus, zap.NewNop(), "", steps, &Results{}))
	assert.ErrorIs(t, handleAction(PromptExit, zap.NewNop(), "", steps, &Results{}), errExit)
	assert.Error(t, handleAction("Dance", zap.NewNop(), "", steps, &Results{}))
}
