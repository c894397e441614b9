package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
)

// AnswerInput is one submitted answer for a question.
type AnswerInput struct {
	Type       model.ResponseType `json:"response_type"`
	AIAnswerID string             `json:"ai_answer_id,omitempty"`
	UserText   string             `json:"user_text,omitempty"`
}

// SaveResponses reconciles a batch of answers for one analysis and user.
// The per-question rows are the single source of truth; the summary's
// statistics are re-derived from them after the write so the aggregate view
// can never drift from the rows. The completeness hint is advisory only:
// it is checked against the derived value and logged when they disagree.
func (p *Pipeline) SaveResponses(ctx context.Context, analysisID, userID string, answers map[string]AnswerInput, completenessHint *float64) (model.AnswerStats, error) {
	if userID == "" {
		return model.AnswerStats{}, apperr.Validation("", "user id is required")
	}
	if len(answers) == 0 {
		return model.AnswerStats{}, apperr.Validation("", "no answers submitted")
	}
	if _, err := p.loadAnalysis(ctx, analysisID); err != nil {
		return model.AnswerStats{}, err
	}

	questions, err := p.store.ListQuestions(ctx, analysisID)
	if err != nil {
		return model.AnswerStats{}, apperr.Persistence("list questions", err)
	}
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	now := time.Now().UTC()
	rows := make([]model.UserResponse, 0, len(answers))
	for questionID, in := range answers {
		if !known[questionID] {
			return model.AnswerStats{}, apperr.Validation("",
				fmt.Sprintf("question %s does not belong to analysis %s", questionID, analysisID))
		}
		row, err := p.buildResponse(ctx, questionID, userID, in, now)
		if err != nil {
			return model.AnswerStats{}, err
		}
		rows = append(rows, *row)
	}

	if err := p.store.UpsertUserResponses(ctx, rows); err != nil {
		return model.AnswerStats{}, apperr.Persistence("upsert user responses", err)
	}

	responses, err := p.store.ListUserResponses(ctx, analysisID, userID)
	if err != nil {
		return model.AnswerStats{}, apperr.Persistence("list user responses", err)
	}
	stats := ComputeStats(questions, responses)

	if completenessHint != nil && math.Abs(*completenessHint-stats.CompletionPercentage) > 0.5 {
		zap.L().Warn("reconcile: completeness hint disagrees with derived statistics",
			zap.String("analysis_id", analysisID),
			zap.Float64("hint", *completenessHint),
			zap.Float64("derived", stats.CompletionPercentage),
		)
	}

	if err := p.refreshSummaryStats(ctx, analysisID, stats); err != nil {
		return model.AnswerStats{}, err
	}

	zap.L().Info("responses saved",
		zap.String("analysis_id", analysisID),
		zap.String("user_id", userID),
		zap.Int("count", len(rows)),
		zap.Float64("completion_pct", stats.CompletionPercentage),
	)
	return stats, nil
}

// SaveResponse reconciles a single answer. Same semantics as a one-element
// batch.
func (p *Pipeline) SaveResponse(ctx context.Context, analysisID, userID, questionID string, in AnswerInput) (model.AnswerStats, error) {
	return p.SaveResponses(ctx, analysisID, userID, map[string]AnswerInput{questionID: in}, nil)
}

// buildResponse resolves an answer input into an upsertable response row.
// ai_selected copies the referenced AI answer text verbatim; user_authored
// copies the raw text; mixed joins AI text and user text with a single
// newline. The merge rule is fixed so repeated saves of the same input
// always produce the same final answer.
func (p *Pipeline) buildResponse(ctx context.Context, questionID, userID string, in AnswerInput, now time.Time) (*model.UserResponse, error) {
	if !model.ValidResponseType(in.Type) {
		return nil, apperr.Validation("", "invalid response_type: "+string(in.Type))
	}

	row := &model.UserResponse{
		ID:         uuid.New().String(),
		QuestionID: questionID,
		UserID:     userID,
		Type:       in.Type,
		UserText:   in.UserText,
		IsFinal:    true,
		AnsweredAt: now,
	}

	switch in.Type {
	case model.ResponseUserAuthored:
		if strings.TrimSpace(in.UserText) == "" {
			return nil, apperr.Validation("", "user_authored response requires user_text")
		}
		row.FinalAnswer = in.UserText

	case model.ResponseAISelected:
		answer, err := p.resolveAIAnswer(ctx, questionID, in.AIAnswerID)
		if err != nil {
			return nil, err
		}
		row.AIAnswerID = &answer.ID
		row.FinalAnswer = answer.Text

	case model.ResponseMixed:
		if strings.TrimSpace(in.UserText) == "" {
			return nil, apperr.Validation("", "mixed response requires user_text")
		}
		answer, err := p.resolveAIAnswer(ctx, questionID, in.AIAnswerID)
		if err != nil {
			return nil, err
		}
		row.AIAnswerID = &answer.ID
		row.FinalAnswer = answer.Text + "\n" + in.UserText
	}

	return row, nil
}

func (p *Pipeline) resolveAIAnswer(ctx context.Context, questionID, answerID string) (*model.AIAnswer, error) {
	if answerID == "" {
		return nil, apperr.Validation("", "response requires ai_answer_id")
	}
	answer, err := p.store.GetAIAnswer(ctx, answerID)
	if err != nil {
		return nil, apperr.Persistence("get ai answer", err)
	}
	if answer == nil {
		return nil, apperr.NotFound("ai answer not found: " + answerID)
	}
	if answer.QuestionID != questionID {
		return nil, apperr.Validation("",
			fmt.Sprintf("ai answer %s does not belong to question %s", answerID, questionID))
	}
	return answer, nil
}

// refreshSummaryStats writes the derived statistics onto the summary row,
// preserving insights, readiness, and generated_at from any prior
// consolidation. Creates the row if this analysis has no summary yet.
func (p *Pipeline) refreshSummaryStats(ctx context.Context, analysisID string, stats model.AnswerStats) error {
	summary, err := p.store.GetSummary(ctx, analysisID)
	if err != nil {
		return apperr.Persistence("get summary", err)
	}
	if summary == nil {
		summary = &model.AnalysisSummary{
			ID:         uuid.New().String(),
			AnalysisID: analysisID,
		}
	}
	summary.Stats = stats
	summary.UpdatedAt = time.Now().UTC()
	if err := p.store.UpsertSummary(ctx, summary); err != nil {
		return apperr.Persistence("upsert summary", err)
	}
	return nil
}
