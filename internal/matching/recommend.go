package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai/normalize"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/metrics"
)

const maxRecommendations = 3

// Drop reasons used as metric labels.
const (
	dropInvalidShape = "invalid_shape"
	dropInvalidScore = "invalid_score"
)

var recommendationSchema = mustSchema(`{
  "type": "object",
  "required": ["job_title", "match_score", "suitability_reasoning", "improvement_suggestions"]
}`)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(err)
	}
	return schema
}

// GenerateJobRecommendations suggests up to three job roles for the profile,
// best first. Any failure yields an empty slice.
func (s *Service) GenerateJobRecommendations(ctx context.Context, profile Profile) []Recommendation {
	runID := uuid.NewString()
	log := logger.WithRun(s.logger, runID, operationRecommend)

	if len(profile) == 0 {
		log.Warn("empty profile provided for recommendations")
		return []Recommendation{}
	}

	ctx, span := s.tracer.Start(ctx, "matching.GenerateJobRecommendations", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	keywords := s.extractKeywords(ctx, runID, profile)

	prompt, err := buildRecommendPrompt(profile, keywords)
	if err != nil {
		log.Error("failed to build recommendation prompt", zap.Error(err))
		return []Recommendation{}
	}

	raw, err := s.call(ctx, log, operationRecommend, prompt)
	if err != nil || raw == "" {
		return []Recommendation{}
	}

	result := s.parse(log, operationRecommend, raw, normalize.Array)
	recommendations := make([]Recommendation, 0, len(result.Array()))
	for i, item := range result.Array() {
		rec, reason, ok := s.toRecommendation(item)
		if !ok {
			metrics.RecommendationsDropped.WithLabelValues(reason).Inc()
			log.Warn("dropping recommendation", zap.Int("index", i), zap.String("reason", reason))
			continue
		}
		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].MatchScore > recommendations[j].MatchScore
	})
	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}

	span.SetAttributes(attribute.Int("recommendations", len(recommendations)))
	log.Info("recommendations generated", zap.Int("count", len(recommendations)))
	return recommendations
}

func (s *Service) toRecommendation(item any) (Recommendation, string, bool) {
	check, err := recommendationSchema.Validate(gojsonschema.NewGoLoader(item))
	if err != nil || !check.Valid() {
		return Recommendation{}, dropInvalidShape, false
	}
	obj, ok := item.(map[string]any)
	if !ok {
		return Recommendation{}, dropInvalidShape, false
	}

	score, ok := coerceInt(obj["match_score"])
	if !ok || score < 0 || score > 100 {
		if s.cfg.Recommendations.InvalidScorePolicy != DefaultInvalidScore {
			return Recommendation{}, dropInvalidScore, false
		}
		score = s.cfg.Recommendations.DefaultScore
	}

	return Recommendation{
		JobTitle:               coerceString(obj["job_title"]),
		MatchScore:             score,
		SuitabilityReasoning:   coerceString(obj["suitability_reasoning"]),
		ImprovementSuggestions: coerceString(obj["improvement_suggestions"]),
	}, "", true
}

// Describe renders a recommendation as a short human readable block.
func (r Recommendation) Describe() string {
	return fmt.Sprintf("%s: %d (%s)\n  Why: %s\n  Improve: %s",
		r.JobTitle, r.MatchScore, FitFromScore(r.MatchScore), r.SuitabilityReasoning, r.ImprovementSuggestions)
}
