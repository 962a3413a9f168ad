package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"knowledge-assistant/internal/model"
)

// Query is one question asked under a role.
type Query struct {
	Question string `json:"question"`
	Role     string `json:"role"`
}

type AnswerCache interface {
	Get(ctx context.Context, role, question string) (*model.AnswerEnvelope, bool, error)
	Set(ctx context.Context, role, question string, env *model.AnswerEnvelope) error
}

type QueryRecorder interface {
	Record(ctx context.Context, row model.QueryLog) error
}

// AskService times the pipeline, records every answer and optionally
// caches envelopes. Recording and caching never fail a request.
type AskService struct {
	pipeline *Pipeline
	recorder QueryRecorder
	cache    AnswerCache
	now      func() time.Time
	logger   *slog.Logger
}

// NewAskService builds the service; recorder and cache may be nil.
func NewAskService(pipeline *Pipeline, recorder QueryRecorder, cache AnswerCache) *AskService {
	return &AskService{
		pipeline: pipeline,
		recorder: recorder,
		cache:    cache,
		now:      time.Now,
		logger:   slog.Default().With("component", "ask"),
	}
}

func (s *AskService) Ask(ctx context.Context, q Query) (*model.AnswerEnvelope, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	start := s.now()
	if env, ok := s.cached(ctx, q.Role, question); ok {
		env.ResponseTime = round2(s.now().Sub(start).Seconds())
		s.record(ctx, q.Role, question, env)
		return env, nil
	}

	ans, err := s.pipeline.Answer(ctx, question, q.Role)
	if err != nil {
		return nil, err
	}
	env := &model.AnswerEnvelope{
		Answer:       ans.Text,
		Confidence:   ans.Confidence,
		ResponseTime: round2(s.now().Sub(start).Seconds()),
		Sources:      ans.Sources,
	}

	s.record(ctx, q.Role, question, env)
	if s.cache != nil {
		if err := s.cache.Set(ctx, q.Role, question, env); err != nil {
			s.logger.Warn("cache answer failed", "err", err)
		}
	}
	return env, nil
}

func (s *AskService) cached(ctx context.Context, role, question string) (*model.AnswerEnvelope, bool) {
	if s.cache == nil {
		return nil, false
	}
	env, ok, err := s.cache.Get(ctx, role, question)
	if err != nil {
		s.logger.Warn("read answer cache failed", "err", err)
		return nil, false
	}
	return env, ok
}

func (s *AskService) record(ctx context.Context, role, question string, env *model.AnswerEnvelope) {
	if s.recorder == nil {
		return
	}
	row := model.QueryLog{
		Timestamp:    s.now().UTC(),
		Question:     question,
		Role:         role,
		Confidence:   env.Confidence,
		ResponseTime: env.ResponseTime,
	}
	if err := s.recorder.Record(ctx, row); err != nil {
		s.logger.Error("record query failed", "err", err)
	}
}
