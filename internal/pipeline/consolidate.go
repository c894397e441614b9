package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
)

const consolidationMaxTokens = 2048

// ConsolidateOptions controls a consolidation run.
type ConsolidateOptions struct {
	Force bool
	Model string
}

// Consolidate builds or returns the analysis summary. A summary that has
// already been generated is returned as-is unless Force is set; the cached
// path makes no engine call. An unforced regeneration never drops a
// readiness flag that was previously true.
func (p *Pipeline) Consolidate(ctx context.Context, analysisID, userID string, opts ConsolidateOptions) (*model.AnalysisSummary, error) {
	rec, err := p.loadCompletedAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	prior, err := p.store.GetSummary(ctx, analysisID)
	if err != nil {
		return nil, apperr.Persistence("get summary", err)
	}
	if prior != nil && prior.GeneratedAt != nil && !opts.Force {
		zap.L().Debug("consolidate: returning cached summary",
			zap.String("analysis_id", analysisID),
		)
		return prior, nil
	}

	questions, err := p.store.ListQuestions(ctx, analysisID)
	if err != nil {
		return nil, apperr.Persistence("list questions", err)
	}
	responses, err := p.store.ListUserResponses(ctx, analysisID, userID)
	if err != nil {
		return nil, apperr.Persistence("list user responses", err)
	}

	stats := ComputeStats(questions, responses)
	if stats.AnsweredQuestions == 0 {
		return nil, apperr.Validation(apperr.CodeNoAnswersFound,
			"no answered questions to consolidate")
	}

	prompt := fmt.Sprintf(consolidationPrompt,
		rec.Sections.Overview,
		bulletList(append(append([]string{}, rec.Sections.FunctionalRequirements...), rec.Sections.BusinessRequirements...)),
		formatQAPairs(questions, responses),
	)

	modelID := p.model(opts.Model)
	resp, err := p.callEngine(ctx, "consolidation", modelID, consolidationSystem, prompt, consolidationMaxTokens)
	if err != nil {
		return nil, err
	}
	insights := parseInsights(resp.Text())

	readiness := EvaluateReadiness(p.readiness, questions, responses, stats, rec.ConfidenceScore)
	if prior != nil && !opts.Force {
		readiness.MarketResearch = readiness.MarketResearch || prior.Readiness.MarketResearch
		readiness.PersonaAnalysis = readiness.PersonaAnalysis || prior.Readiness.PersonaAnalysis
		readiness.ProposalWriting = readiness.ProposalWriting || prior.Readiness.ProposalWriting
	}

	now := time.Now().UTC()
	summary := &model.AnalysisSummary{
		ID:                   uuid.New().String(),
		AnalysisID:           analysisID,
		Stats:                stats,
		ConsolidatedInsights: insights,
		Readiness:            readiness,
		GeneratedAt:          &now,
		UpdatedAt:            now,
	}
	if prior != nil {
		summary.ID = prior.ID
	}
	if err := p.store.UpsertSummary(ctx, summary); err != nil {
		return nil, apperr.Persistence("upsert summary", err)
	}

	zap.L().Info("analysis consolidated",
		zap.String("analysis_id", analysisID),
		zap.Int("insights", len(insights)),
		zap.Float64("completion_pct", stats.CompletionPercentage),
		zap.Strings("next_steps_ready", readiness.ReadySteps()),
	)
	return summary, nil
}

// formatQAPairs renders each answered question with its final answer for
// prompt injection. Unanswered questions are listed as such so the engine
// sees the gaps too.
func formatQAPairs(questions []model.Question, responses []model.UserResponse) string {
	byQuestion := make(map[string]model.UserResponse, len(responses))
	for _, r := range responses {
		if r.IsFinal {
			byQuestion[r.QuestionID] = r
		}
	}

	var b strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&b, "Q%d [%s]: %s\n", q.OrderIndex, q.Category, q.Text)
		if r, ok := byQuestion[q.ID]; ok {
			b.WriteString("A: " + r.FinalAnswer + "\n\n")
		} else {
			b.WriteString("A: (unanswered)\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseInsights decodes the consolidation response. If the engine did not
// return the expected JSON, the raw text is kept as a single insight so the
// run still produces something reviewable.
func parseInsights(text string) []string {
	cleaned := cleanJSON(text)

	var payload struct {
		ConsolidatedInsights []string `json:"consolidated_insights"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil && len(payload.ConsolidatedInsights) > 0 {
		return payload.ConsolidatedInsights
	}

	zap.L().Warn("consolidate: falling back to raw insight text")
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}
