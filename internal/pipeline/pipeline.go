// Package pipeline implements the RFP analysis stages: structured
// extraction, question generation, response reconciliation, consolidation,
// and secondary analysis. Each stage is a request-scoped unit of work over
// the store; the reasoning engine is invoked once per stage under a fixed
// timeout.
package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/config"
	"github.com/sells-group/rfp-insight/internal/model"
	"github.com/sells-group/rfp-insight/internal/resilience"
	"github.com/sells-group/rfp-insight/internal/store"
	"github.com/sells-group/rfp-insight/pkg/anthropic"
)

// Pipeline holds the stage implementations and their shared dependencies.
type Pipeline struct {
	store     store.Store
	ai        anthropic.Client
	cfg       config.PipelineConfig
	readiness config.ReadinessConfig
	engine    config.AnthropicConfig
}

// New constructs a Pipeline with explicit dependencies.
func New(st store.Store, ai anthropic.Client, cfg *config.Config) *Pipeline {
	return &Pipeline{
		store:     st,
		ai:        ai,
		cfg:       cfg.Pipeline,
		readiness: cfg.Readiness,
		engine:    cfg.Anthropic,
	}
}

func (p *Pipeline) model(override string) string {
	if override != "" {
		return override
	}
	return p.engine.DefaultModel
}

// callEngine performs one reasoning-engine call for a stage, with retry on
// retryable upstream errors and cost attribution logging. The context is
// detached from the caller's cancellation: a client that abandons the
// request does not cancel work already dispatched, so the result can still
// be persisted. The fixed request timeout still applies.
func (p *Pipeline) callEngine(ctx context.Context, stage, modelID, system, prompt string, maxTokens int64) (*anthropic.MessageResponse, error) {
	timeout := time.Duration(p.engine.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	req := anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}

	resp, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts: p.cfg.RetryAttempts,
		ShouldRetry: apperr.IsRetryable,
	}, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := p.ai.CreateMessage(ctx, req)
		if err != nil {
			return nil, classifyEngineError(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp.Usage.LogCost(modelID, stage)
	return resp, nil
}

// classifyEngineError maps a reasoning-engine failure onto the upstream
// error taxonomy so callers can distinguish auth, quota, timeout, and
// network failures.
func classifyEngineError(err error) error {
	if code, ok := anthropic.StatusCode(err); ok {
		switch {
		case code == 401 || code == 403:
			return apperr.Upstream(apperr.UpstreamAuth, "reasoning engine rejected credentials", err)
		case code == 429:
			return apperr.Upstream(apperr.UpstreamQuota, "reasoning engine quota exceeded", err)
		case code >= 500:
			return apperr.Upstream(apperr.UpstreamNetwork, "reasoning engine unavailable", err)
		default:
			return apperr.Upstream(apperr.UpstreamNetwork, "reasoning engine request failed", err)
		}
	}
	if anthropic.IsTimeout(err) {
		return apperr.Upstream(apperr.UpstreamTimeout, "reasoning engine timed out", err)
	}
	if resilience.IsTransient(err) {
		return apperr.Upstream(apperr.UpstreamNetwork, "reasoning engine connection failed", err)
	}
	return apperr.Upstream(apperr.UpstreamNetwork, "reasoning engine unreachable", err)
}

// GetAnalysis returns the analysis record for status polling.
func (p *Pipeline) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	return p.loadAnalysis(ctx, id)
}

// loadAnalysis fetches a record or returns a NotFoundError.
func (p *Pipeline) loadAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	rec, err := p.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load analysis", err)
	}
	if rec == nil {
		return nil, apperr.NotFound("analysis not found")
	}
	return rec, nil
}

// loadCompletedAnalysis enforces the state machine: question, response,
// summary, and secondary stages may only run once extraction completed.
func (p *Pipeline) loadCompletedAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	rec, err := p.loadAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != model.StatusCompleted {
		return nil, apperr.Validation(apperr.CodeAnalysisNotCompleted,
			"analysis is not completed; current status: "+string(rec.Status))
	}
	return rec, nil
}
