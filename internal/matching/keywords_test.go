package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	profile := Profile{"Skills": []any{"Python", "SQL"}}

	tests := []struct {
		name    string
		respond func(context.Context, string) (string, error)
		want    []string
	}{
		{
			name:    "plain array",
			respond: reply(`["Python", "SQL"]`),
			want:    []string{"Python", "SQL"},
		},
		{
			name:    "fenced array with trailing comma",
			respond: reply("Sure:\n```json\n[\"Python\", \"SQL\",]\n```"),
			want:    []string{"Python", "SQL"},
		},
		{
			name:    "non strings and blanks skipped",
			respond: reply(`["Python", 3, null, "  ", {"a": 1}, "SQL"]`),
			want:    []string{"Python", "SQL"},
		},
		{
			name:    "object instead of array",
			respond: reply(`{"keywords": "Python, SQL"}`),
			want:    []string{},
		},
		{
			name:    "prose",
			respond: reply("I could not find any keywords."),
			want:    []string{},
		},
		{
			name:    "blank response",
			respond: reply("  \n "),
			want:    []string{},
		},
		{
			name: "model error",
			respond: func(context.Context, string) (string, error) {
				return "", errors.New("quota exceeded")
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{respond: tt.respond}
			svc := newTestService(t, model)

			got := svc.ExtractKeywords(context.Background(), profile)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, model.calls())
		})
	}
}

func TestExtractKeywordsEmptyProfileSkipsModel(t *testing.T) {
	model := &stubModel{respond: reply(`["Python"]`)}
	svc := newTestService(t, model)

	assert.Empty(t, svc.ExtractKeywords(context.Background(), Profile{}))
	assert.Empty(t, svc.ExtractKeywords(context.Background(), nil))
	assert.Zero(t, model.calls())
}

func TestExtractKeywordsTimeout(t *testing.T) {
	model := &stubModel{respond: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return `["late"]`, nil
	}}
	svc := newTestService(t, model, func(c *Config) { c.CallTimeout = 20 * time.Millisecond })

	assert.Empty(t, svc.ExtractKeywords(context.Background(), Profile{"Skills": []any{"Go"}}))
}

func TestExtractKeywordsPromptEmbedsProfile(t *testing.T) {
	model := &stubModel{respond: reply(`[]`)}
	svc := newTestService(t, model)

	svc.ExtractKeywords(context.Background(), Profile{"Skills": []any{"Terraform"}})

	prompts := model.promptsMatching(isKeywordsPrompt)
	if assert.Len(t, prompts, 1) {
		assert.Contains(t, prompts[0], `"Terraform"`)
		assert.NotContains(t, prompts[0], "{{PROFILE_JSON}}")
	}
}
