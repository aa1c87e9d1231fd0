package matching

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai/normalize"
	"github.com/spigell/resume-matcher/internal/logger"
)

// ExtractKeywords asks the model for the keywords written in the profile.
// The result is advisory: any failure yields an empty slice.
func (s *Service) ExtractKeywords(ctx context.Context, profile Profile) []string {
	return s.extractKeywords(ctx, uuid.NewString(), profile)
}

func (s *Service) extractKeywords(ctx context.Context, runID string, profile Profile) []string {
	log := logger.WithRun(s.logger, runID, operationKeywords)

	if len(profile) == 0 {
		log.Warn("empty profile provided for keyword extraction")
		return []string{}
	}

	prompt, err := buildKeywordsPrompt(profile)
	if err != nil {
		log.Warn("failed to build keyword prompt", zap.Error(err))
		return []string{}
	}

	raw, err := s.call(ctx, log, operationKeywords, prompt)
	if err != nil || raw == "" {
		return []string{}
	}

	result := s.parse(log, operationKeywords, raw, normalize.Array)
	keywords := make([]string, 0, len(result.Array()))
	for _, item := range result.Array() {
		keyword, ok := item.(string)
		if !ok {
			continue
		}
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}

	log.Info("keywords extracted", zap.Int("count", len(keywords)))
	return keywords
}
