package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-insight/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, project_id, source_text, sections`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetAnalysis(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateQuestions_UniqueViolation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO questions`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := s.CreateQuestions(context.Background(), []model.Question{{
		ID: "q1", AnalysisID: "a1", Text: "t", Type: model.QuestionShortText,
		OrderIndex: 1, CreatedAt: time.Now(),
	}})
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateAnalysisStatus_NoRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE analyses SET status`).
		WithArgs(model.StatusFailed, "boom", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAnalysisStatus(context.Background(), "a1", model.StatusFailed, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertSummary(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "summaries"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now()
	err := s.UpsertSummary(context.Background(), &model.AnalysisSummary{
		ID: "s1", AnalysisID: "a1",
		Stats:       model.AnswerStats{TotalQuestions: 4, AnsweredQuestions: 2, CompletionPercentage: 50},
		GeneratedAt: &now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountQuestions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM questions`).
		WithArgs("a1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.CountQuestions(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
