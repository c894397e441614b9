package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/rfp-insight/internal/model"
	"github.com/sells-group/rfp-insight/internal/store"
	"github.com/sells-group/rfp-insight/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *mockStore) UpdateAnalysisStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *mockStore) CompleteAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) SetSecondaryAnalysis(ctx context.Context, id string, sec *model.SecondaryAnalysis) error {
	args := m.Called(ctx, id, sec)
	return args.Error(0)
}

func (m *mockStore) CreateQuestions(ctx context.Context, questions []model.Question) error {
	args := m.Called(ctx, questions)
	return args.Error(0)
}

func (m *mockStore) ListQuestions(ctx context.Context, analysisID string) ([]model.Question, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Question), args.Error(1)
}

func (m *mockStore) CountQuestions(ctx context.Context, analysisID string) (int, error) {
	args := m.Called(ctx, analysisID)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) DeleteQuestions(ctx context.Context, analysisID string) (int, error) {
	args := m.Called(ctx, analysisID)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CreateAIAnswer(ctx context.Context, answer *model.AIAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *mockStore) GetAIAnswer(ctx context.Context, id string) (*model.AIAnswer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AIAnswer), args.Error(1)
}

func (m *mockStore) ListAIAnswers(ctx context.Context, analysisID string) ([]model.AIAnswer, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AIAnswer), args.Error(1)
}

func (m *mockStore) UpsertUserResponse(ctx context.Context, resp *model.UserResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

func (m *mockStore) UpsertUserResponses(ctx context.Context, resps []model.UserResponse) error {
	args := m.Called(ctx, resps)
	return args.Error(0)
}

func (m *mockStore) ListUserResponses(ctx context.Context, analysisID, userID string) ([]model.UserResponse, error) {
	args := m.Called(ctx, analysisID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserResponse), args.Error(1)
}

func (m *mockStore) GetSummary(ctx context.Context, analysisID string) (*model.AnalysisSummary, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisSummary), args.Error(1)
}

func (m *mockStore) UpsertSummary(ctx context.Context, summary *model.AnalysisSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Ensure interface compliance ---
var (
	_ anthropic.Client = (*mockAnthropicClient)(nil)
	_ store.Store      = (*mockStore)(nil)
)
