package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
)

func seedAIAnswer(t *testing.T, p *Pipeline, questionID, id, text string) model.AIAnswer {
	t.Helper()
	answer := model.AIAnswer{
		ID:          id,
		QuestionID:  questionID,
		Text:        text,
		Model:       "claude-sonnet-4-5-20250929",
		Confidence:  model.DefaultAIAnswerConfidence,
		GeneratedAt: time.Now().UTC(),
	}
	require.NoError(t, p.store.CreateAIAnswer(context.Background(), &answer))
	return answer
}

func TestSaveResponsesAISelectedCopiesVerbatim(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget")
	answer := seedAIAnswer(t, p, questions[0].ID, "ans-1", "The budget is $250k.")

	stats, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseAISelected, AIAnswerID: answer.ID},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AnsweredQuestions)

	responses, err := st.ListUserResponses(ctx, "a1", "user-1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "The budget is $250k.", responses[0].FinalAnswer)
	assert.Equal(t, model.ResponseAISelected, responses[0].Type)
	require.NotNil(t, responses[0].AIAnswerID)
	assert.Equal(t, answer.ID, *responses[0].AIAnswerID)
	assert.True(t, responses[0].IsFinal)
	assert.False(t, responses[0].AnsweredAt.IsZero())
}

func TestSaveResponsesMixedMergeIsDeterministic(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget")
	answer := seedAIAnswer(t, p, questions[0].ID, "ans-1", "X")

	for i := 0; i < 2; i++ {
		_, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
			questions[0].ID: {Type: model.ResponseMixed, AIAnswerID: answer.ID, UserText: "Y"},
		}, nil)
		require.NoError(t, err)

		responses, err := st.ListUserResponses(ctx, "a1", "user-1")
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.Equal(t, "X\nY", responses[0].FinalAnswer)
	}
}

func TestSaveResponsesUpsertsByQuestionAndUser(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget")

	_, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseUserAuthored, UserText: "first"},
	}, nil)
	require.NoError(t, err)

	_, err = p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseUserAuthored, UserText: "second"},
	}, nil)
	require.NoError(t, err)

	responses, err := st.ListUserResponses(ctx, "a1", "user-1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "second", responses[0].FinalAnswer)

	// Another user holds an independent response.
	_, err = p.SaveResponses(ctx, "a1", "user-2", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseUserAuthored, UserText: "theirs"},
	}, nil)
	require.NoError(t, err)

	other, err := st.ListUserResponses(ctx, "a1", "user-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "theirs", other[0].FinalAnswer)
}

func TestSaveResponsesRejectsForeignQuestion(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	seedCompletedAnalysis(t, st, "a2", "proj-1")
	seedQuestions(t, st, "a1", "budget")
	foreign := seedQuestions(t, st, "a2", "market")

	_, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		foreign[0].ID: {Type: model.ResponseUserAuthored, UserText: "answer"},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
}

func TestSaveResponsesRejectsMismatchedAIAnswer(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget", "market")
	answer := seedAIAnswer(t, p, questions[1].ID, "ans-1", "text")

	_, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseAISelected, AIAnswerID: answer.ID},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	// The batch is all-or-nothing.
	responses, err := st.ListUserResponses(ctx, "a1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestSaveResponsesValidation(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget")

	cases := map[string]AnswerInput{
		"unknown type":            {Type: "telepathy", UserText: "x"},
		"user_authored no text":   {Type: model.ResponseUserAuthored},
		"ai_selected no answer":   {Type: model.ResponseAISelected},
		"mixed missing user text": {Type: model.ResponseMixed, AIAnswerID: "ans-1"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
				questions[0].ID: in,
			}, nil)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
		})
	}

	_, err := p.SaveResponses(ctx, "a1", "", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseUserAuthored, UserText: "x"},
	}, nil)
	require.Error(t, err)

	_, err = p.SaveResponses(ctx, "a1", "user-1", nil, nil)
	require.Error(t, err)
}

func TestSaveResponsesRefreshesSummaryStats(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget", "market")

	hint := 90.0
	stats, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseUserAuthored, UserText: "answer"},
	}, &hint)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, stats.CompletionPercentage, 0.001)

	summary, err := st.GetSummary(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Stats.AnsweredQuestions)
	// Not consolidated yet.
	assert.Nil(t, summary.GeneratedAt)
}

func TestSaveResponsesPreservesConsolidation(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget", "market")

	generated := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.UpsertSummary(ctx, &model.AnalysisSummary{
		ID:                   "sum-1",
		AnalysisID:           "a1",
		ConsolidatedInsights: []string{"existing insight"},
		Readiness:            model.Readiness{MarketResearch: true},
		GeneratedAt:          &generated,
		UpdatedAt:            generated,
	}))

	_, err := p.SaveResponses(ctx, "a1", "user-1", map[string]AnswerInput{
		questions[0].ID: {Type: model.ResponseUserAuthored, UserText: "answer"},
	}, nil)
	require.NoError(t, err)

	summary, err := st.GetSummary(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"existing insight"}, summary.ConsolidatedInsights)
	assert.True(t, summary.Readiness.MarketResearch)
	require.NotNil(t, summary.GeneratedAt)
	assert.WithinDuration(t, generated, *summary.GeneratedAt, time.Second)
	assert.Equal(t, 1, summary.Stats.AnsweredQuestions)
}

func TestSaveResponseSingle(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget")

	stats, err := p.SaveResponse(ctx, "a1", "user-1", questions[0].ID,
		AnswerInput{Type: model.ResponseUserAuthored, UserText: "answer"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AnsweredQuestions)
}
