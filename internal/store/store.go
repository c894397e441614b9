package store

import (
	"context"
	"errors"

	"github.com/sells-group/rfp-insight/internal/model"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
// The constraint, not the preceding existence check, is the correctness
// guarantee under concurrent regeneration attempts.
var ErrDuplicate = errors.New("store: duplicate key")

// IsDuplicate reports whether err is a uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// Store defines the persistence interface for the analysis pipeline.
// Get* methods return (nil, nil) when the row does not exist.
type Store interface {
	// Analyses
	CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error)
	UpdateAnalysisStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error
	CompleteAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	SetSecondaryAnalysis(ctx context.Context, id string, sec *model.SecondaryAnalysis) error

	// Questions
	CreateQuestions(ctx context.Context, questions []model.Question) error
	ListQuestions(ctx context.Context, analysisID string) ([]model.Question, error)
	CountQuestions(ctx context.Context, analysisID string) (int, error)
	DeleteQuestions(ctx context.Context, analysisID string) (int, error)

	// AI answers
	CreateAIAnswer(ctx context.Context, answer *model.AIAnswer) error
	GetAIAnswer(ctx context.Context, id string) (*model.AIAnswer, error)
	ListAIAnswers(ctx context.Context, analysisID string) ([]model.AIAnswer, error)

	// User responses
	UpsertUserResponse(ctx context.Context, resp *model.UserResponse) error
	UpsertUserResponses(ctx context.Context, resps []model.UserResponse) error
	ListUserResponses(ctx context.Context, analysisID, userID string) ([]model.UserResponse, error)

	// Summaries
	GetSummary(ctx context.Context, analysisID string) (*model.AnalysisSummary, error)
	UpsertSummary(ctx context.Context, summary *model.AnalysisSummary) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
