package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
)

const questionsJSON = `{
  "questions": [
    {
      "text": "Who are the primary users of the portal?",
      "type": "long_text",
      "category": "persona",
      "priority": "high",
      "context": "Persona work cannot start without this.",
      "next_step_impact": "persona_analysis",
      "suggested_answer": "Retail banking customers aged 25-55.",
      "suggested_confidence": 0.9
    },
    {
      "text": "What is the approved budget range?",
      "type": "single_choice",
      "category": "budget",
      "priority": "medium",
      "options": ["<$100k", "$100k-$500k", ">$500k"],
      "suggested_answer": "",
      "suggested_confidence": 0
    },
    {
      "text": "Which competitors were considered?",
      "type": "wildcard_type",
      "category": "Competition",
      "priority": "urgent",
      "suggested_answer": "Unknown from the document."
    }
  ]
}`

func TestGenerateQuestionsHappyPath(t *testing.T) {
	p, st, ai := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	expectEngineText(ai, questionsJSON)

	questions, err := p.GenerateQuestions(ctx, "a1", QuestionOptions{GenerateAIAnswers: true})
	require.NoError(t, err)
	require.Len(t, questions, 3)

	// 1-based contiguous order.
	for i, q := range questions {
		assert.Equal(t, i+1, q.OrderIndex)
		assert.Equal(t, "a1", q.AnalysisID)
	}

	// Unknown type and priority fall back rather than dropping the question.
	assert.Equal(t, model.QuestionLongText, questions[2].Type)
	assert.Equal(t, model.PriorityMedium, questions[2].Priority)
	assert.Equal(t, "competition", questions[2].Category)

	// Suggested answers persisted for questions that carried one.
	answers, err := st.ListAIAnswers(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, answers, 2)
	byQuestion := map[string]model.AIAnswer{}
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	first := byQuestion[questions[0].ID]
	assert.Equal(t, "Retail banking customers aged 25-55.", first.Text)
	assert.InDelta(t, 0.9, first.Confidence, 0.001)

	// Missing confidence gets the default.
	third := byQuestion[questions[2].ID]
	assert.InDelta(t, model.DefaultAIAnswerConfidence, third.Confidence, 0.001)
}

func TestGenerateQuestionsWithoutAIAnswers(t *testing.T) {
	p, st, ai := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	expectEngineText(ai, questionsJSON)

	_, err := p.GenerateQuestions(ctx, "a1", QuestionOptions{GenerateAIAnswers: false})
	require.NoError(t, err)

	answers, err := st.ListAIAnswers(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestGenerateQuestionsRequiresProject(t *testing.T) {
	p, st, ai := newTestPipeline(t)

	seedCompletedAnalysis(t, st, "a1", "")

	_, err := p.GenerateQuestions(context.Background(), "a1", QuestionOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeProjectRequired, apperr.CodeOf(err))
	ai.AssertNumberOfCalls(t, "CreateMessage", 0)
}

func TestGenerateQuestionsRequiresCompletedAnalysis(t *testing.T) {
	p, _, ai := newTestPipeline(t)
	ctx := context.Background()

	project := "proj-1"
	rec, err := p.IngestAnalysis(ctx, IngestRequest{SourceText: "RFP", ProjectID: &project})
	require.NoError(t, err)

	_, err = p.GenerateQuestions(ctx, rec.ID, QuestionOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAnalysisNotCompleted, apperr.CodeOf(err))
	ai.AssertNumberOfCalls(t, "CreateMessage", 0)
}

func TestGenerateQuestionsConflictsWhenQuestionsExist(t *testing.T) {
	p, st, ai := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	seedQuestions(t, st, "a1", "budget")

	_, err := p.GenerateQuestions(ctx, "a1", QuestionOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeQuestionsExist, apperr.CodeOf(err))
	ai.AssertNumberOfCalls(t, "CreateMessage", 0)

	// Nothing was added.
	count, err := st.CountQuestions(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGenerateQuestionsMalformedOutput(t *testing.T) {
	p, st, ai := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	expectEngineText(ai, "not json at all")

	_, err := p.GenerateQuestions(ctx, "a1", QuestionOptions{})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.UpstreamMalformed, ae.Upstream)

	count, err := st.CountQuestions(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGenerateQuestionsHonorsLimit(t *testing.T) {
	p, st, ai := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	expectEngineText(ai, questionsJSON)

	questions, err := p.GenerateQuestions(ctx, "a1", QuestionOptions{MaxQuestions: 2})
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestDeleteQuestionsEnablesRegeneration(t *testing.T) {
	p, st, ai := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	seedQuestions(t, st, "a1", "budget", "market")

	n, err := p.DeleteQuestions(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expectEngineText(ai, questionsJSON)
	questions, err := p.GenerateQuestions(ctx, "a1", QuestionOptions{})
	require.NoError(t, err)
	assert.Len(t, questions, 3)
}

func TestQuestionOverview(t *testing.T) {
	p, st, _ := newTestPipeline(t)
	ctx := context.Background()

	seedCompletedAnalysis(t, st, "a1", "proj-1")
	questions := seedQuestions(t, st, "a1", "budget", "market")
	answerQuestions(t, st, "user-1", questions[0])

	got, stats, err := p.QuestionOverview(ctx, "a1", "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, stats.AnsweredQuestions)
	assert.InDelta(t, 50.0, stats.CompletionPercentage, 0.001)
}
