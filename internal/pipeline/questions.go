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
	"github.com/sells-group/rfp-insight/internal/store"
)

const questionMaxTokens = 4096

// QuestionOptions controls a question generation run.
type QuestionOptions struct {
	MaxQuestions      int
	Categories        []string
	GenerateAIAnswers bool
	Model             string
}

// GenerateQuestions runs the question generation stage for a completed,
// project-owned analysis. Questions are written once; a second call fails
// with a conflict and regeneration requires explicit deletion first. The
// store uniqueness constraint on (analysis_id, order_index) resolves the
// race between two concurrent first calls.
func (p *Pipeline) GenerateQuestions(ctx context.Context, analysisID string, opts QuestionOptions) ([]model.Question, error) {
	rec, err := p.loadCompletedAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if !rec.HasProject() {
		return nil, apperr.Validation(apperr.CodeProjectRequired,
			"analysis must belong to a project before question generation")
	}

	maxQuestions := opts.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = p.cfg.DefaultMaxQuestions
	}
	if maxQuestions > p.cfg.MaxQuestions {
		maxQuestions = p.cfg.MaxQuestions
	}

	count, err := p.store.CountQuestions(ctx, analysisID)
	if err != nil {
		return nil, apperr.Persistence("count questions", err)
	}
	if count > 0 {
		return nil, apperr.Conflict(apperr.CodeQuestionsExist,
			fmt.Sprintf("analysis already has %d questions; delete them before regenerating", count))
	}

	var categoryHint string
	if len(opts.Categories) > 0 {
		categoryHint = " Focus on these categories: " + strings.Join(opts.Categories, ", ") + "."
	}
	prompt := fmt.Sprintf(questionPrompt,
		rec.Sections.Overview,
		bulletList(rec.Sections.FunctionalRequirements),
		bulletList(rec.Sections.BusinessRequirements),
		bulletList(rec.Sections.RiskFactors),
		maxQuestions,
		categoryHint,
	)

	modelID := p.model(opts.Model)
	resp, err := p.callEngine(ctx, "questions", modelID, questionSystem, prompt, questionMaxTokens)
	if err != nil {
		return nil, err
	}

	questions, suggestions := parseQuestions(resp.Text(), analysisID, maxQuestions)
	if len(questions) == 0 {
		return nil, apperr.Upstream(apperr.UpstreamMalformed,
			"engine returned no parseable questions", nil)
	}

	if err := p.store.CreateQuestions(ctx, questions); err != nil {
		if store.IsDuplicate(err) {
			return nil, apperr.Conflict(apperr.CodeQuestionsExist,
				"questions were created concurrently for this analysis")
		}
		return nil, apperr.Persistence("create questions", err)
	}

	if opts.GenerateAIAnswers {
		p.persistSuggestedAnswers(ctx, questions, suggestions, modelID)
	}

	zap.L().Info("questions generated",
		zap.String("analysis_id", analysisID),
		zap.Int("count", len(questions)),
	)
	return questions, nil
}

// DeleteQuestions removes all questions for an analysis so a fresh
// generation can run. Dependent answers and responses go with them.
func (p *Pipeline) DeleteQuestions(ctx context.Context, analysisID string) (int, error) {
	if _, err := p.loadAnalysis(ctx, analysisID); err != nil {
		return 0, err
	}
	n, err := p.store.DeleteQuestions(ctx, analysisID)
	if err != nil {
		return 0, apperr.Persistence("delete questions", err)
	}
	zap.L().Info("questions deleted",
		zap.String("analysis_id", analysisID),
		zap.Int("count", n),
	)
	return n, nil
}

// QuestionOverview returns an analysis's questions together with answer
// statistics derived from the requester's final responses.
func (p *Pipeline) QuestionOverview(ctx context.Context, analysisID, userID string) ([]model.Question, model.AnswerStats, error) {
	if _, err := p.loadAnalysis(ctx, analysisID); err != nil {
		return nil, model.AnswerStats{}, err
	}
	questions, err := p.store.ListQuestions(ctx, analysisID)
	if err != nil {
		return nil, model.AnswerStats{}, apperr.Persistence("list questions", err)
	}
	responses, err := p.store.ListUserResponses(ctx, analysisID, userID)
	if err != nil {
		return nil, model.AnswerStats{}, apperr.Persistence("list user responses", err)
	}
	return questions, ComputeStats(questions, responses), nil
}

// persistSuggestedAnswers writes engine-suggested answers as append-only
// AIAnswer rows. Failures here never fail the generation call; a suggestion
// is an optional aid, the questions are the deliverable.
func (p *Pipeline) persistSuggestedAnswers(ctx context.Context, questions []model.Question, suggestions map[int]suggestedAnswer, modelID string) {
	now := time.Now().UTC()
	for i, q := range questions {
		s, ok := suggestions[i]
		if !ok || strings.TrimSpace(s.Text) == "" {
			continue
		}
		answer := &model.AIAnswer{
			ID:          uuid.New().String(),
			QuestionID:  q.ID,
			Text:        s.Text,
			Model:       modelID,
			Confidence:  s.Confidence,
			GeneratedAt: now,
		}
		if err := p.store.CreateAIAnswer(ctx, answer); err != nil {
			zap.L().Warn("questions: failed to persist suggested answer",
				zap.String("question_id", q.ID),
				zap.Error(err),
			)
		}
	}
}

type suggestedAnswer struct {
	Text       string
	Confidence float64
}

// parseQuestions decodes the engine's question list. Unknown types fall
// back to long_text and unknown priorities to medium rather than dropping
// the question. Returns questions with 1-based order indexes plus the
// suggested answers keyed by question position.
func parseQuestions(text, analysisID string, limit int) ([]model.Question, map[int]suggestedAnswer) {
	cleaned := cleanJSON(text)

	var payload struct {
		Questions []struct {
			Text                string   `json:"text"`
			Type                string   `json:"type"`
			Category            string   `json:"category"`
			Priority            string   `json:"priority"`
			Context             string   `json:"context"`
			Options             []string `json:"options"`
			NextStepImpact      string   `json:"next_step_impact"`
			SuggestedAnswer     string   `json:"suggested_answer"`
			SuggestedConfidence *float64 `json:"suggested_confidence"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		zap.L().Warn("questions: failed to parse engine output", zap.Error(err))
		return nil, nil
	}

	now := time.Now().UTC()
	questions := make([]model.Question, 0, len(payload.Questions))
	suggestions := make(map[int]suggestedAnswer)
	for _, pq := range payload.Questions {
		if strings.TrimSpace(pq.Text) == "" {
			continue
		}
		if len(questions) >= limit {
			break
		}

		qType := model.QuestionType(pq.Type)
		if !model.ValidQuestionType(qType) {
			qType = model.QuestionLongText
		}
		priority := model.QuestionPriority(pq.Priority)
		switch priority {
		case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		default:
			priority = model.PriorityMedium
		}

		idx := len(questions)
		questions = append(questions, model.Question{
			ID:             uuid.New().String(),
			AnalysisID:     analysisID,
			Text:           pq.Text,
			Type:           qType,
			Category:       strings.ToLower(strings.TrimSpace(pq.Category)),
			Priority:       priority,
			Context:        pq.Context,
			OrderIndex:     idx + 1,
			Options:        pq.Options,
			NextStepImpact: pq.NextStepImpact,
			CreatedAt:      now,
		})

		if strings.TrimSpace(pq.SuggestedAnswer) != "" {
			conf := model.DefaultAIAnswerConfidence
			if pq.SuggestedConfidence != nil && *pq.SuggestedConfidence > 0 && *pq.SuggestedConfidence <= 1 {
				conf = *pq.SuggestedConfidence
			}
			suggestions[idx] = suggestedAnswer{Text: pq.SuggestedAnswer, Confidence: conf}
		}
	}
	return questions, suggestions
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
