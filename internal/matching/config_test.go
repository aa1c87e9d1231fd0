package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/ai"
)

func TestNewValidatesConfig(t *testing.T) {
	model := &stubModel{respond: reply("")}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative top-n", func(c *Config) { c.TopN = -1 }},
		{"zero timeout", func(c *Config) { c.CallTimeout = 0 }},
		{"no skill keys", func(c *Config) { c.SkillKeys = nil }},
		{"blank skill key", func(c *Config) { c.SkillKeys = []string{"Skills", ""} }},
		{"unknown policy", func(c *Config) { c.Recommendations.InvalidScorePolicy = "maybe" }},
		{"default score too high", func(c *Config) { c.Recommendations.DefaultScore = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(model, cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid matching config")
		})
	}
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(nil, DefaultConfig(), nil)
	require.Error(t, err)
}

func TestNewAcceptsDefaults(t *testing.T) {
	model := ai.ModelFunc(func(context.Context, string) (string, error) {
		return `["Go"]`, nil
	})

	svc, err := New(model, DefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, []string{"Go"}, svc.ExtractKeywords(context.Background(), Profile{"Skills": []any{"Go"}}))
}
