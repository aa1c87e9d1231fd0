package matching

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/listing"
)

type stubModel struct {
	mu      sync.Mutex
	prompts []string
	respond ai.ModelFunc
}

func (m *stubModel) Invoke(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.respond(ctx, prompt)
}

func (m *stubModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *stubModel) promptsMatching(match func(string) bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.prompts {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}

func reply(text string) ai.ModelFunc {
	return func(context.Context, string) (string, error) { return text, nil }
}

func isKeywordsPrompt(prompt string) bool  { return strings.Contains(prompt, "You extract keywords") }
func isMatchPrompt(prompt string) bool     { return strings.Contains(prompt, "You assess how well") }
func isRecommendPrompt(prompt string) bool { return strings.Contains(prompt, "You recommend job roles") }

func newTestService(t *testing.T, model *stubModel, mutate ...func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	svc, err := New(model, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return svc
}

func job(title string, skills ...string) *listing.JobListing {
	return &listing.JobListing{
		URL:            "https://jobs.example/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:          title,
		Company:        "Acme",
		SkillsRequired: skills,
	}
}
