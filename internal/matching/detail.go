package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai/normalize"
	"github.com/spigell/resume-matcher/internal/listing"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/metrics"
)

const (
	fallbackReasoning = "Fallback scoring used due to LLM processing error."
	defaultReasoning  = "Score based on skill overlap and experience alignment."
)

// Fallback reasons used as metric labels.
const (
	reasonModelError = "model_error"
	reasonEmpty      = "empty_response"
	reasonMalformed  = "malformed_response"
)

// ScoreListing assesses a single listing. It never fails: model problems
// produce a skill-overlap fallback and anything else an Error detail.
func (s *Service) ScoreListing(ctx context.Context, profile Profile, summary string, l *listing.JobListing, keywords []string) MatchDetail {
	return s.scoreListing(ctx, uuid.NewString(), profile, summary, l, keywords)
}

func (s *Service) scoreListing(ctx context.Context, runID string, profile Profile, summary string, l *listing.JobListing, keywords []string) (detail MatchDetail) {
	log := logger.WithRun(s.logger, runID, operationMatch)
	if l != nil {
		log = log.With(zap.String("listing_url", l.URL), zap.String("job_title", l.Title))
	}

	ctx, span := s.tracer.Start(ctx, "matching.ScoreListing", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			detail = s.errorDetail(log, span, fmt.Errorf("panic: %v", r))
		}
	}()

	detail, err := s.assess(ctx, log, profile, summary, l, keywords)
	if err != nil {
		return s.errorDetail(log, span, err)
	}

	span.SetAttributes(
		attribute.Int("match_score", detail.MatchScore),
		attribute.String("job_fit", string(detail.JobFit)),
	)
	return detail
}

func (s *Service) assess(ctx context.Context, log *zap.Logger, profile Profile, summary string, l *listing.JobListing, keywords []string) (MatchDetail, error) {
	if l == nil {
		return MatchDetail{}, errors.New("listing is nil")
	}

	prompt, err := buildMatchPrompt(profile, summary, l, keywords)
	if err != nil {
		return MatchDetail{}, fmt.Errorf("build match prompt: %w", err)
	}

	raw, err := s.call(ctx, log, operationMatch, prompt)
	if err != nil {
		return s.fallback(log, profile, l, reasonModelError), nil
	}
	if raw == "" {
		return s.fallback(log, profile, l, reasonEmpty), nil
	}

	result := s.parse(log, operationMatch, raw, normalize.Object)
	if len(result.Object()) == 0 {
		return s.fallback(log, profile, l, reasonMalformed), nil
	}

	return validateDetail(result.Object(), l.SkillsRequired), nil
}

func (s *Service) fallback(log *zap.Logger, profile Profile, l *listing.JobListing, reason string) MatchDetail {
	metrics.MatchFallbacks.WithLabelValues(reason).Inc()
	detail := fallbackDetail(profile.Skills(s.cfg.SkillKeys), l.SkillsRequired)
	log.Warn("using fallback scoring",
		zap.String("reason", reason),
		zap.Int("match_score", detail.MatchScore),
	)
	return detail
}

func (s *Service) errorDetail(log *zap.Logger, span trace.Span, err error) MatchDetail {
	metrics.MatchErrors.Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("matching failed", zap.Error(err))
	return MatchDetail{
		MatchScore:     0,
		MatchedSkills:  []string{},
		MissingSkills:  []string{},
		MatchReasoning: "Error during matching: " + err.Error(),
		JobFit:         FitError,
	}
}

// fallbackDetail scores by overlap between résumé skills and the listing's
// required skills, compared case-insensitively.
func fallbackDetail(resumeSkills, required []string) MatchDetail {
	have := make(map[string]struct{}, len(resumeSkills))
	for _, skill := range resumeSkills {
		have[strings.ToLower(skill)] = struct{}{}
	}

	matched := []string{}
	missing := []string{}
	for _, skill := range distinct(required) {
		if _, ok := have[strings.ToLower(skill)]; ok {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}

	score := skillRatio(len(matched), len(matched)+len(missing))
	return MatchDetail{
		MatchScore:     score,
		MatchedSkills:  matched,
		MissingSkills:  missing,
		MatchReasoning: fallbackReasoning,
		JobFit:         FitFromScore(score),
	}
}

// validateDetail turns an untrusted model object into a consistent detail.
func validateDetail(obj map[string]any, required []string) MatchDetail {
	required = distinct(required)
	matched := restrictTo(coerceStrings(obj["matched_skills"]), required)
	missing := coerceStrings(obj["missing_skills"])

	score, ok := validScore(obj["match_score"])
	if !ok {
		score = skillRatio(len(matched), len(required))
	}

	reasoning := coerceString(obj["match_reasoning"])
	if reasoning == "" {
		reasoning = defaultReasoning
	}

	return MatchDetail{
		MatchScore:     score,
		MatchedSkills:  matched,
		MissingSkills:  missing,
		MatchReasoning: reasoning,
		JobFit:         FitFromScore(score),
	}
}

func validScore(v any) (int, bool) {
	f := coerceFloat(v)
	if math.IsNaN(f) || f < 0 || f > 100 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// skillRatio is 100*matched/required truncated and capped at 100, or 0
// without required skills.
func skillRatio(matched, required int) int {
	if required == 0 {
		return 0
	}
	return min(100*matched/required, 100)
}

// restrictTo keeps the skills that appear in allowed, compared
// case-insensitively, spelled as in allowed and without duplicates.
func restrictTo(skills, allowed []string) []string {
	canonical := make(map[string]string, len(allowed))
	for _, skill := range allowed {
		canonical[strings.ToLower(skill)] = skill
	}

	out := []string{}
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		spelled, ok := canonical[strings.ToLower(skill)]
		if !ok {
			continue
		}
		if _, dup := seen[spelled]; dup {
			continue
		}
		seen[spelled] = struct{}{}
		out = append(out, spelled)
	}
	return out
}

func distinct(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
