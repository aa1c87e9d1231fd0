package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/normalize"
	"github.com/spigell/resume-matcher/internal/listing"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/metrics"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	operationKeywords  = "keywords"
	operationMatch     = "match"
	operationRecommend = "recommend"
)

var validate = validator.New()

// Service matches résumés against job listings with a text model. It keeps
// no per-request state and is safe for concurrent use.
type Service struct {
	model  ai.TextModel
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer
}

func New(model ai.TextModel, cfg Config, log *zap.Logger) (*Service, error) {
	if model == nil {
		return nil, errors.New("text model is required")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		model:  model,
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer("github.com/spigell/resume-matcher/internal/matching"),
	}, nil
}

// MatchResumeToJobs pre-scores the pool, assesses the best candidates in
// parallel and returns them ordered by match score, best first.
func (s *Service) MatchResumeToJobs(ctx context.Context, profile Profile, summary string, listings []*listing.JobListing) []MatchedJob {
	runID := uuid.NewString()
	log := logger.WithRun(s.logger, runID, operationMatch)

	if len(profile) == 0 {
		log.Warn("empty profile provided for matching")
		return []MatchedJob{}
	}
	if len(listings) == 0 {
		log.Warn("no listings provided for matching")
		return []MatchedJob{}
	}

	ctx, span := s.tracer.Start(ctx, "matching.MatchResumeToJobs", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("pool_size", len(listings)),
	))
	defer span.End()

	keywords := s.extractKeywords(ctx, runID, profile)
	candidates := Rank(keywords, listings, s.cfg.TopN)
	log.Info("candidates selected",
		zap.Int("pool", len(listings)),
		zap.Int("keywords", len(keywords)),
		zap.Int("candidates", len(candidates)),
	)
	if len(candidates) == 0 {
		return []MatchedJob{}
	}

	results := make([]MatchedJob, len(candidates))
	var g errgroup.Group
	g.SetLimit(min(s.cfg.Workers, len(candidates)))
	for i, candidate := range candidates {
		g.Go(func() error {
			results[i] = MatchedJob{
				JobListing:   candidate.Listing,
				PreScore:     candidate.PreScore,
				MatchDetails: s.scoreListing(ctx, runID, profile, summary, candidate.Listing, keywords),
			}
			return nil
		})
	}
	// Workers never return errors; failures are folded into the detail.
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchDetails.MatchScore > results[j].MatchDetails.MatchScore
	})

	span.SetAttributes(attribute.Int("matched", len(results)))
	log.Info("matching finished", zap.Int("matched", len(results)))
	return results
}

// call performs one model call under the per-call timeout. A model that
// ignores its context is abandoned when the timeout fires. Blank replies are
// returned as "" with a nil error.
func (s *Service) call(ctx context.Context, log *zap.Logger, operation, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	log.Debug("model request",
		zap.Int("prompt_length", len(prompt)),
		zap.String("prompt_preview", utils.Preview(prompt, s.cfg.MaxLogLength)),
	)

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	started := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("model panicked: %v", r)}
			}
		}()
		text, err := s.model.Invoke(callCtx, prompt)
		done <- reply{text: text, err: err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-callCtx.Done():
	}
	// A reply that races the deadline still counts as a timeout.
	if err := callCtx.Err(); err != nil {
		r = reply{err: fmt.Errorf("model call: %w", err)}
	}

	if r.err != nil {
		metrics.ModelCalls.WithLabelValues(operation, metrics.OutcomeError).Inc()
		log.Warn("model call failed", zap.Error(r.err), zap.Duration("elapsed", time.Since(started)))
		return "", r.err
	}
	if strings.TrimSpace(r.text) == "" {
		metrics.ModelCalls.WithLabelValues(operation, metrics.OutcomeEmpty).Inc()
		log.Warn("model returned an empty response")
		return "", nil
	}

	log.Debug("model response",
		zap.Int("response_length", len(r.text)),
		zap.String("response_preview", utils.Preview(r.text, s.cfg.MaxLogLength)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return r.text, nil
}

// parse normalizes a non-blank reply and records the call outcome.
func (s *Service) parse(log *zap.Logger, operation, raw string, shape normalize.Shape) normalize.Result {
	result := normalize.Parse(raw, shape)
	if !result.OK() {
		metrics.ModelCalls.WithLabelValues(operation, metrics.OutcomeMalformed).Inc()
		log.Warn("model response could not be parsed",
			zap.String("response_preview", utils.Preview(raw, s.cfg.MaxLogLength)),
		)
		return result
	}
	metrics.ModelCalls.WithLabelValues(operation, metrics.OutcomeOK).Inc()
	log.Debug("model response parsed", zap.String("stage", string(result.Stage)))
	return result
}
