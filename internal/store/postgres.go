package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-insight/internal/db"
	"github.com/sells-group/rfp-insight/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id               TEXT PRIMARY KEY,
	project_id       TEXT,
	source_text      TEXT NOT NULL,
	sections         JSONB,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'pending',
	degraded         BOOLEAN NOT NULL DEFAULT FALSE,
	degraded_reason  TEXT NOT NULL DEFAULT '',
	model            TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	secondary        JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS questions (
	id               TEXT PRIMARY KEY,
	analysis_id      TEXT NOT NULL REFERENCES analyses(id),
	text             TEXT NOT NULL,
	type             TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	priority         TEXT NOT NULL DEFAULT 'medium',
	context          TEXT NOT NULL DEFAULT '',
	order_index      INTEGER NOT NULL,
	options          JSONB,
	next_step_impact TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (analysis_id, order_index)
);

CREATE TABLE IF NOT EXISTS ai_answers (
	id           TEXT PRIMARY KEY,
	question_id  TEXT NOT NULL REFERENCES questions(id),
	text         TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_responses (
	id            TEXT PRIMARY KEY,
	question_id   TEXT NOT NULL REFERENCES questions(id),
	user_id       TEXT NOT NULL,
	response_type TEXT NOT NULL,
	final_answer  TEXT NOT NULL,
	ai_answer_id  TEXT,
	user_text     TEXT NOT NULL DEFAULT '',
	is_final      BOOLEAN NOT NULL DEFAULT TRUE,
	answered_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (question_id, user_id)
);

CREATE TABLE IF NOT EXISTS summaries (
	id                 TEXT PRIMARY KEY,
	analysis_id        TEXT NOT NULL UNIQUE REFERENCES analyses(id),
	total_questions    INTEGER NOT NULL DEFAULT 0,
	answered_questions INTEGER NOT NULL DEFAULT 0,
	ai_answers_used    INTEGER NOT NULL DEFAULT 0,
	user_answers_used  INTEGER NOT NULL DEFAULT 0,
	completion_pct     DOUBLE PRECISION NOT NULL DEFAULT 0,
	insights           JSONB,
	market_ready       BOOLEAN NOT NULL DEFAULT FALSE,
	persona_ready      BOOLEAN NOT NULL DEFAULT FALSE,
	proposal_ready     BOOLEAN NOT NULL DEFAULT FALSE,
	generated_at       TIMESTAMPTZ,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_questions_analysis ON questions(analysis_id);
CREATE INDEX IF NOT EXISTS idx_ai_answers_question ON ai_answers(question_id);
CREATE INDEX IF NOT EXISTS idx_user_responses_user ON user_responses(user_id);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// isUniqueViolation maps Postgres error 23505 onto ErrDuplicate.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sections")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, project_id, source_text, sections, confidence_score, status, degraded, degraded_reason, model, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.ProjectID, rec.SourceText, sections, rec.ConfidenceScore,
		rec.Status, rec.Degraded, rec.DegradedReason, rec.Model, rec.Error,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return eris.Wrap(ErrDuplicate, "postgres: create analysis")
		}
		return eris.Wrap(err, "postgres: create analysis")
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, source_text, sections, confidence_score, status, degraded, degraded_reason, model, error, secondary, created_at, updated_at
		 FROM analyses WHERE id = $1`, id)

	var rec model.AnalysisRecord
	var sections, secondary []byte
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.SourceText, &sections,
		&rec.ConfidenceScore, &rec.Status, &rec.Degraded, &rec.DegradedReason,
		&rec.Model, &rec.Error, &secondary, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get analysis")
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &rec.Sections); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal sections")
		}
	}
	if len(secondary) > 0 {
		rec.Secondary = &model.SecondaryAnalysis{}
		if err := json.Unmarshal(secondary, rec.Secondary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal secondary")
		}
	}
	return &rec, nil
}

func (s *PostgresStore) UpdateAnalysisStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, error = $2, updated_at = now() WHERE id = $3`,
		status, errMsg, id)
	if err != nil {
		return eris.Wrap(err, "postgres: update analysis status")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: update analysis status: no row for %s", id)
	}
	return nil
}

func (s *PostgresStore) CompleteAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sections")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET sections = $1, confidence_score = $2, status = $3, degraded = $4, degraded_reason = $5, model = $6, error = '', updated_at = now()
		 WHERE id = $7`,
		sections, rec.ConfidenceScore, rec.Status, rec.Degraded, rec.DegradedReason, rec.Model, rec.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: complete analysis")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: complete analysis: no row for %s", rec.ID)
	}
	return nil
}

func (s *PostgresStore) SetSecondaryAnalysis(ctx context.Context, id string, sec *model.SecondaryAnalysis) error {
	payload, err := json.Marshal(sec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal secondary")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET secondary = $1, updated_at = now() WHERE id = $2`,
		payload, id)
	if err != nil {
		return eris.Wrap(err, "postgres: set secondary analysis")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: set secondary analysis: no row for %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateQuestions(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: create questions: begin")
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal options")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO questions (id, analysis_id, text, type, category, priority, context, order_index, options, next_step_impact, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			q.ID, q.AnalysisID, q.Text, q.Type, q.Category, q.Priority,
			q.Context, q.OrderIndex, options, q.NextStepImpact, q.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return eris.Wrap(ErrDuplicate, "postgres: create questions")
			}
			return eris.Wrap(err, "postgres: create questions")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: create questions: commit")
	}
	return nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, analysisID string) ([]model.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, analysis_id, text, type, category, priority, context, order_index, options, next_step_impact, created_at
		 FROM questions WHERE analysis_id = $1 ORDER BY order_index`, analysisID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.AnalysisID, &q.Text, &q.Type, &q.Category,
			&q.Priority, &q.Context, &q.OrderIndex, &options, &q.NextStepImpact,
			&q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan question")
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal options")
			}
		}
		questions = append(questions, q)
	}
	return questions, eris.Wrap(rows.Err(), "postgres: list questions")
}

func (s *PostgresStore) CountQuestions(ctx context.Context, analysisID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM questions WHERE analysis_id = $1`, analysisID).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count questions")
	}
	return n, nil
}

func (s *PostgresStore) DeleteQuestions(ctx context.Context, analysisID string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete questions: begin")
	}
	defer tx.Rollback(ctx)

	// Dependent rows first; questions are only removable as a unit.
	if _, err := tx.Exec(ctx,
		`DELETE FROM user_responses WHERE question_id IN (SELECT id FROM questions WHERE analysis_id = $1)`,
		analysisID); err != nil {
		return 0, eris.Wrap(err, "postgres: delete responses")
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM ai_answers WHERE question_id IN (SELECT id FROM questions WHERE analysis_id = $1)`,
		analysisID); err != nil {
		return 0, eris.Wrap(err, "postgres: delete ai answers")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM questions WHERE analysis_id = $1`, analysisID)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete questions")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: delete questions: commit")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CreateAIAnswer(ctx context.Context, answer *model.AIAnswer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_answers (id, question_id, text, model, confidence, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		answer.ID, answer.QuestionID, answer.Text, answer.Model,
		answer.Confidence, answer.GeneratedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create ai answer")
	}
	return nil
}

func (s *PostgresStore) GetAIAnswer(ctx context.Context, id string) (*model.AIAnswer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, question_id, text, model, confidence, generated_at FROM ai_answers WHERE id = $1`, id)
	var a model.AIAnswer
	err := row.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Model, &a.Confidence, &a.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get ai answer")
	}
	return &a, nil
}

func (s *PostgresStore) ListAIAnswers(ctx context.Context, analysisID string) ([]model.AIAnswer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.question_id, a.text, a.model, a.confidence, a.generated_at
		 FROM ai_answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.analysis_id = $1 ORDER BY a.generated_at`, analysisID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ai answers")
	}
	defer rows.Close()

	var answers []model.AIAnswer
	for rows.Next() {
		var a model.AIAnswer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Model, &a.Confidence, &a.GeneratedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ai answer")
		}
		answers = append(answers, a)
	}
	return answers, eris.Wrap(rows.Err(), "postgres: list ai answers")
}

var userResponseColumns = []string{
	"id", "question_id", "user_id", "response_type", "final_answer",
	"ai_answer_id", "user_text", "is_final", "answered_at",
}

var upsertUserResponseSQL = db.UpsertSQL("user_responses", userResponseColumns, []string{"question_id", "user_id"})

func (s *PostgresStore) UpsertUserResponse(ctx context.Context, resp *model.UserResponse) error {
	_, err := s.pool.Exec(ctx, upsertUserResponseSQL,
		resp.ID, resp.QuestionID, resp.UserID, resp.Type, resp.FinalAnswer,
		resp.AIAnswerID, resp.UserText, resp.IsFinal, resp.AnsweredAt)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert user response")
	}
	return nil
}

// UpsertUserResponses saves a batch of responses in one transaction so the
// per-question rows stay mutually consistent.
func (s *PostgresStore) UpsertUserResponses(ctx context.Context, resps []model.UserResponse) error {
	if len(resps) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert responses: begin")
	}
	defer tx.Rollback(ctx)

	for _, r := range resps {
		if _, err := tx.Exec(ctx, upsertUserResponseSQL,
			r.ID, r.QuestionID, r.UserID, r.Type, r.FinalAnswer,
			r.AIAnswerID, r.UserText, r.IsFinal, r.AnsweredAt); err != nil {
			return eris.Wrap(err, "postgres: upsert responses")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: upsert responses: commit")
	}
	return nil
}

func (s *PostgresStore) ListUserResponses(ctx context.Context, analysisID, userID string) ([]model.UserResponse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.question_id, r.user_id, r.response_type, r.final_answer, r.ai_answer_id, r.user_text, r.is_final, r.answered_at
		 FROM user_responses r JOIN questions q ON q.id = r.question_id
		 WHERE q.analysis_id = $1 AND r.user_id = $2 ORDER BY q.order_index`,
		analysisID, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list user responses")
	}
	defer rows.Close()

	var resps []model.UserResponse
	for rows.Next() {
		var r model.UserResponse
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.UserID, &r.Type, &r.FinalAnswer,
			&r.AIAnswerID, &r.UserText, &r.IsFinal, &r.AnsweredAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user response")
		}
		resps = append(resps, r)
	}
	return resps, eris.Wrap(rows.Err(), "postgres: list user responses")
}

var summaryColumns = []string{
	"id", "analysis_id", "total_questions", "answered_questions",
	"ai_answers_used", "user_answers_used", "completion_pct", "insights",
	"market_ready", "persona_ready", "proposal_ready", "generated_at", "updated_at",
}

var upsertSummarySQL = db.UpsertSQL("summaries", summaryColumns, []string{"analysis_id"})

func (s *PostgresStore) GetSummary(ctx context.Context, analysisID string) (*model.AnalysisSummary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, analysis_id, total_questions, answered_questions, ai_answers_used, user_answers_used, completion_pct, insights, market_ready, persona_ready, proposal_ready, generated_at, updated_at
		 FROM summaries WHERE analysis_id = $1`, analysisID)

	var sum model.AnalysisSummary
	var insights []byte
	err := row.Scan(&sum.ID, &sum.AnalysisID, &sum.Stats.TotalQuestions,
		&sum.Stats.AnsweredQuestions, &sum.Stats.AIAnswersUsed,
		&sum.Stats.UserAnswersUsed, &sum.Stats.CompletionPercentage, &insights,
		&sum.Readiness.MarketResearch, &sum.Readiness.PersonaAnalysis,
		&sum.Readiness.ProposalWriting, &sum.GeneratedAt, &sum.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get summary")
	}
	if len(insights) > 0 {
		if err := json.Unmarshal(insights, &sum.ConsolidatedInsights); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal insights")
		}
	}
	return &sum, nil
}

func (s *PostgresStore) UpsertSummary(ctx context.Context, summary *model.AnalysisSummary) error {
	insights, err := json.Marshal(summary.ConsolidatedInsights)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal insights")
	}
	_, err = s.pool.Exec(ctx, upsertSummarySQL,
		summary.ID, summary.AnalysisID, summary.Stats.TotalQuestions,
		summary.Stats.AnsweredQuestions, summary.Stats.AIAnswersUsed,
		summary.Stats.UserAnswersUsed, summary.Stats.CompletionPercentage,
		insights, summary.Readiness.MarketResearch, summary.Readiness.PersonaAnalysis,
		summary.Readiness.ProposalWriting, summary.GeneratedAt, summary.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert summary")
	}
	return nil
}
