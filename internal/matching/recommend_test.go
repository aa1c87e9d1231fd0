package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/metrics"
)

func recommendModel(answer string) *stubModel {
	return &stubModel{respond: func(_ context.Context, prompt string) (string, error) {
		if isKeywordsPrompt(prompt) {
			return `["SQL", "Power BI"]`, nil
		}
		return answer, nil
	}}
}

const fourRecommendations = `[
  {"job_title": "BI Developer", "match_score": 70, "suitability_reasoning": "r1", "improvement_suggestions": "s1"},
  {"job_title": "Data Analyst", "match_score": 85.9, "suitability_reasoning": "r2", "improvement_suggestions": "s2"},
  {"job_title": "Report Writer", "match_score": "40", "suitability_reasoning": "r3", "improvement_suggestions": "s3"},
  {"job_title": "Analytics Engineer", "match_score": 70, "suitability_reasoning": "r4", "improvement_suggestions": "s4"}
]`

func TestGenerateJobRecommendationsSortsAndTruncates(t *testing.T) {
	model := recommendModel(fourRecommendations)
	svc := newTestService(t, model)

	recs := svc.GenerateJobRecommendations(context.Background(), Profile{"Skills": []any{"SQL"}})

	require.Len(t, recs, 3)
	assert.Equal(t, Recommendation{"Data Analyst", 85, "r2", "s2"}, recs[0])
	assert.Equal(t, "BI Developer", recs[1].JobTitle)
	assert.Equal(t, "Analytics Engineer", recs[2].JobTitle)

	prompts := model.promptsMatching(isRecommendPrompt)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Résumé keywords: SQL, Power BI")
}

func TestGenerateJobRecommendationsDropsMalformed(t *testing.T) {
	answer := "```json\n[\n" +
		`{"job_title": "Data Analyst", "match_score": 80, "suitability_reasoning": "r", "improvement_suggestions": "s"},` +
		`{"job_title": "No Score", "suitability_reasoning": "r", "improvement_suggestions": "s"},` +
		`"Data Engineer",` +
		`{"job_title": "Too High", "match_score": 140, "suitability_reasoning": "r", "improvement_suggestions": "s"},` +
		`{"job_title": "Vague", "match_score": "high", "suitability_reasoning": "r", "improvement_suggestions": "s"},` +
		"]\n```"
	svc := newTestService(t, recommendModel(answer))

	shape := metrics.RecommendationsDropped.WithLabelValues(dropInvalidShape)
	score := metrics.RecommendationsDropped.WithLabelValues(dropInvalidScore)
	shapeBefore, scoreBefore := testutil.ToFloat64(shape), testutil.ToFloat64(score)

	recs := svc.GenerateJobRecommendations(context.Background(), Profile{"Skills": []any{"SQL"}})

	require.Len(t, recs, 1)
	assert.Equal(t, "Data Analyst", recs[0].JobTitle)
	assert.Equal(t, shapeBefore+2, testutil.ToFloat64(shape))
	assert.Equal(t, scoreBefore+2, testutil.ToFloat64(score))
}

func TestGenerateJobRecommendationsDefaultScorePolicy(t *testing.T) {
	answer := `[
	  {"job_title": "Vague", "match_score": "high", "suitability_reasoning": "r", "improvement_suggestions": "s"},
	  {"job_title": "Data Analyst", "match_score": 80, "suitability_reasoning": "r", "improvement_suggestions": "s"},
	  {"job_title": "Negative", "match_score": -5, "suitability_reasoning": "r", "improvement_suggestions": "s"}
	]`
	svc := newTestService(t, recommendModel(answer), func(c *Config) {
		c.Recommendations.InvalidScorePolicy = DefaultInvalidScore
		c.Recommendations.DefaultScore = 50
	})

	recs := svc.GenerateJobRecommendations(context.Background(), Profile{"Skills": []any{"SQL"}})

	require.Len(t, recs, 3)
	assert.Equal(t, "Data Analyst", recs[0].JobTitle)
	assert.Equal(t, "Vague", recs[1].JobTitle)
	assert.Equal(t, 50, recs[1].MatchScore)
	assert.Equal(t, "Negative", recs[2].JobTitle)
	assert.Equal(t, 50, recs[2].MatchScore)
}

func TestGenerateJobRecommendationsFailures(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
	}{
		{"model error", &stubModel{respond: func(_ context.Context, prompt string) (string, error) {
			if isKeywordsPrompt(prompt) {
				return `["SQL"]`, nil
			}
			return "", errors.New("quota exceeded")
		}}},
		{"blank answer", recommendModel(" ")},
		{"object answer", recommendModel(`{"job_title": "Data Analyst"}`)},
		{"prose", recommendModel("You would make a great analyst.")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.model)

			recs := svc.GenerateJobRecommendations(context.Background(), Profile{"Skills": []any{"SQL"}})

			assert.NotNil(t, recs)
			assert.Empty(t, recs)
		})
	}
}

func TestGenerateJobRecommendationsEmptyProfile(t *testing.T) {
	model := recommendModel(fourRecommendations)
	svc := newTestService(t, model)

	assert.Empty(t, svc.GenerateJobRecommendations(context.Background(), nil))
	assert.Zero(t, model.calls())
}

func TestGenerateJobRecommendationsKeywordFailureTolerated(t *testing.T) {
	model := &stubModel{respond: func(_ context.Context, prompt string) (string, error) {
		if isKeywordsPrompt(prompt) {
			return "", errors.New("keywords unavailable")
		}
		return fourRecommendations, nil
	}}
	svc := newTestService(t, model)

	recs := svc.GenerateJobRecommendations(context.Background(), Profile{"Skills": []any{"SQL"}})

	assert.Len(t, recs, 3)
	prompts := model.promptsMatching(isRecommendPrompt)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Résumé keywords: None")
}

func TestRecommendationDescribe(t *testing.T) {
	rec := Recommendation{"Data Analyst", 84, "Strong SQL.", "Learn Python."}

	assert.Equal(t, "Data Analyst: 84 (Excellent Match)\n  Why: Strong SQL.\n  Improve: Learn Python.", rec.Describe())
}
