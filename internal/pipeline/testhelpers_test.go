package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-insight/internal/config"
	"github.com/sells-group/rfp-insight/internal/model"
	"github.com/sells-group/rfp-insight/internal/store"
	"github.com/sells-group/rfp-insight/pkg/anthropic"
)

// testConfig returns the documented default configuration with retries
// disabled so failing engine calls do not sleep through backoff.
func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			DefaultModel:   "claude-sonnet-4-5-20250929",
			RequestTimeout: 5,
		},
		Pipeline: config.PipelineConfig{
			MaxSourceChars:      60000,
			DefaultMaxQuestions: 8,
			MaxQuestions:        20,
			RetryAttempts:       1,
		},
		Readiness: config.ReadinessConfig{
			MarketCompletionPct:   50,
			PersonaCompletionPct:  60,
			ProposalCompletionPct: 75,
			ProposalMinConfidence: 0.6,
			MarketCategories:      []string{"market", "competition", "business"},
			PersonaCategories:     []string{"persona", "target_audience", "users"},
		},
	}
}

// newTestPipeline builds a pipeline over a fresh SQLite store and a mocked
// engine client.
func newTestPipeline(t *testing.T) (*Pipeline, *store.SQLiteStore, *mockAnthropicClient) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	ai := &mockAnthropicClient{}
	return New(st, ai, testConfig()), st, ai
}

func seedCompletedAnalysis(t *testing.T, st store.Store, id, projectID string) *model.AnalysisRecord {
	t.Helper()
	now := time.Now().UTC()
	rec := &model.AnalysisRecord{
		ID:         id,
		SourceText: "RFP: build a customer portal for a regional bank",
		Status:     model.StatusCompleted,
		Sections: model.ExtractedSections{
			Overview:               "A customer portal for a regional bank.",
			FunctionalRequirements: []string{"online account opening", "secure messaging"},
			BusinessRequirements:   []string{"launch before Q3"},
			RiskFactors:            []string{"legacy core banking integration"},
		},
		ConfidenceScore: 0.8,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if projectID != "" {
		rec.ProjectID = &projectID
	}
	require.NoError(t, st.CreateAnalysis(context.Background(), rec))
	return rec
}

func seedQuestions(t *testing.T, st store.Store, analysisID string, categories ...string) []model.Question {
	t.Helper()
	now := time.Now().UTC()
	questions := make([]model.Question, 0, len(categories))
	for i, cat := range categories {
		questions = append(questions, model.Question{
			ID:         analysisID + "-q" + string(rune('1'+i)),
			AnalysisID: analysisID,
			Text:       "Question about " + cat,
			Type:       model.QuestionShortText,
			Category:   cat,
			Priority:   model.PriorityMedium,
			OrderIndex: i + 1,
			CreatedAt:  now,
		})
	}
	require.NoError(t, st.CreateQuestions(context.Background(), questions))
	return questions
}

func answerQuestions(t *testing.T, st store.Store, userID string, questions ...model.Question) {
	t.Helper()
	now := time.Now().UTC()
	rows := make([]model.UserResponse, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, model.UserResponse{
			ID:          q.ID + "-resp",
			QuestionID:  q.ID,
			UserID:      userID,
			Type:        model.ResponseUserAuthored,
			FinalAnswer: "answered: " + q.Text,
			IsFinal:     true,
			AnsweredAt:  now,
		})
	}
	require.NoError(t, st.UpsertUserResponses(context.Background(), rows))
}

// messageResponse wraps raw engine text in a MessageResponse.
func messageResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// expectEngineText scripts the mocked engine to return text for every
// CreateMessage call.
func expectEngineText(ai *mockAnthropicClient, text string) *mock.Call {
	return ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(messageResponse(text), nil)
}
