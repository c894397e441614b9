package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rfp-insight/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It mirrors the
// Postgres schema and keeps the same uniqueness guarantees, for local and
// test runs without a database server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id               TEXT PRIMARY KEY,
	project_id       TEXT,
	source_text      TEXT NOT NULL,
	sections         TEXT,
	confidence_score REAL NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'pending',
	degraded         INTEGER NOT NULL DEFAULT 0,
	degraded_reason  TEXT NOT NULL DEFAULT '',
	model            TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	secondary        TEXT,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
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
	options          TEXT,
	next_step_impact TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	UNIQUE (analysis_id, order_index)
);

CREATE TABLE IF NOT EXISTS ai_answers (
	id           TEXT PRIMARY KEY,
	question_id  TEXT NOT NULL REFERENCES questions(id),
	text         TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	confidence   REAL NOT NULL DEFAULT 0,
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_responses (
	id            TEXT PRIMARY KEY,
	question_id   TEXT NOT NULL REFERENCES questions(id),
	user_id       TEXT NOT NULL,
	response_type TEXT NOT NULL,
	final_answer  TEXT NOT NULL,
	ai_answer_id  TEXT,
	user_text     TEXT NOT NULL DEFAULT '',
	is_final      INTEGER NOT NULL DEFAULT 1,
	answered_at   DATETIME NOT NULL,
	UNIQUE (question_id, user_id)
);

CREATE TABLE IF NOT EXISTS summaries (
	id                 TEXT PRIMARY KEY,
	analysis_id        TEXT NOT NULL UNIQUE REFERENCES analyses(id),
	total_questions    INTEGER NOT NULL DEFAULT 0,
	answered_questions INTEGER NOT NULL DEFAULT 0,
	ai_answers_used    INTEGER NOT NULL DEFAULT 0,
	user_answers_used  INTEGER NOT NULL DEFAULT 0,
	completion_pct     REAL NOT NULL DEFAULT 0,
	insights           TEXT,
	market_ready       INTEGER NOT NULL DEFAULT 0,
	persona_ready      INTEGER NOT NULL DEFAULT 0,
	proposal_ready     INTEGER NOT NULL DEFAULT 0,
	generated_at       DATETIME,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_questions_analysis ON questions(analysis_id);
CREATE INDEX IF NOT EXISTS idx_ai_answers_question ON ai_answers(question_id);
CREATE INDEX IF NOT EXISTS idx_user_responses_user ON user_responses(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteDuplicate maps the driver's unique-constraint error onto ErrDuplicate.
func sqliteDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sections")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, project_id, source_text, sections, confidence_score, status, degraded, degraded_reason, model, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, rec.SourceText, string(sections), rec.ConfidenceScore,
		rec.Status, rec.Degraded, rec.DegradedReason, rec.Model, rec.Error,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if sqliteDuplicate(err) {
			return eris.Wrap(ErrDuplicate, "sqlite: create analysis")
		}
		return eris.Wrap(err, "sqlite: create analysis")
	}
	return nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, source_text, sections, confidence_score, status, degraded, degraded_reason, model, error, secondary, created_at, updated_at
		 FROM analyses WHERE id = ?`, id)

	var rec model.AnalysisRecord
	var sections, secondary sql.NullString
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.SourceText, &sections,
		&rec.ConfidenceScore, &rec.Status, &rec.Degraded, &rec.DegradedReason,
		&rec.Model, &rec.Error, &secondary, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get analysis")
	}
	if sections.Valid && sections.String != "" {
		if err := json.Unmarshal([]byte(sections.String), &rec.Sections); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sections")
		}
	}
	if secondary.Valid && secondary.String != "" {
		rec.Secondary = &model.SecondaryAnalysis{}
		if err := json.Unmarshal([]byte(secondary.String), rec.Secondary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal secondary")
		}
	}
	return &rec, nil
}

func (s *SQLiteStore) UpdateAnalysisStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrap(err, "sqlite: update analysis status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: update analysis status: no row for %s", id)
	}
	return nil
}

func (s *SQLiteStore) CompleteAnalysis(ctx context.Context, rec *model.AnalysisRecord) error {
	sections, err := json.Marshal(rec.Sections)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sections")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET sections = ?, confidence_score = ?, status = ?, degraded = ?, degraded_reason = ?, model = ?, error = '', updated_at = ? WHERE id = ?`,
		string(sections), rec.ConfidenceScore, rec.Status, rec.Degraded,
		rec.DegradedReason, rec.Model, time.Now().UTC(), rec.ID)
	if err != nil {
		return eris.Wrap(err, "sqlite: complete analysis")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: complete analysis: no row for %s", rec.ID)
	}
	return nil
}

func (s *SQLiteStore) SetSecondaryAnalysis(ctx context.Context, id string, sec *model.SecondaryAnalysis) error {
	payload, err := json.Marshal(sec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal secondary")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET secondary = ?, updated_at = ? WHERE id = ?`,
		string(payload), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrap(err, "sqlite: set secondary analysis")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: set secondary analysis: no row for %s", id)
	}
	return nil
}

func (s *SQLiteStore) CreateQuestions(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: create questions: begin")
	}
	defer tx.Rollback()

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal options")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, analysis_id, text, type, category, priority, context, order_index, options, next_step_impact, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.AnalysisID, q.Text, q.Type, q.Category, q.Priority,
			q.Context, q.OrderIndex, string(options), q.NextStepImpact, q.CreatedAt)
		if err != nil {
			if sqliteDuplicate(err) {
				return eris.Wrap(ErrDuplicate, "sqlite: create questions")
			}
			return eris.Wrap(err, "sqlite: create questions")
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: create questions: commit")
	}
	return nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, analysisID string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, text, type, category, priority, context, order_index, options, next_step_impact, created_at
		 FROM questions WHERE analysis_id = ? ORDER BY order_index`, analysisID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options sql.NullString
		if err := rows.Scan(&q.ID, &q.AnalysisID, &q.Text, &q.Type, &q.Category,
			&q.Priority, &q.Context, &q.OrderIndex, &options, &q.NextStepImpact,
			&q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan question")
		}
		if options.Valid && options.String != "" {
			if err := json.Unmarshal([]byte(options.String), &q.Options); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal options")
			}
		}
		questions = append(questions, q)
	}
	return questions, eris.Wrap(rows.Err(), "sqlite: list questions")
}

func (s *SQLiteStore) CountQuestions(ctx context.Context, analysisID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM questions WHERE analysis_id = ?`, analysisID).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count questions")
	}
	return n, nil
}

func (s *SQLiteStore) DeleteQuestions(ctx context.Context, analysisID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete questions: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_responses WHERE question_id IN (SELECT id FROM questions WHERE analysis_id = ?)`,
		analysisID); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete responses")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ai_answers WHERE question_id IN (SELECT id FROM questions WHERE analysis_id = ?)`,
		analysisID); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete ai answers")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE analysis_id = ?`, analysisID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete questions")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete questions: commit")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) CreateAIAnswer(ctx context.Context, answer *model.AIAnswer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_answers (id, question_id, text, model, confidence, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		answer.ID, answer.QuestionID, answer.Text, answer.Model,
		answer.Confidence, answer.GeneratedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: create ai answer")
	}
	return nil
}

func (s *SQLiteStore) GetAIAnswer(ctx context.Context, id string) (*model.AIAnswer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, text, model, confidence, generated_at FROM ai_answers WHERE id = ?`, id)
	var a model.AIAnswer
	err := row.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Model, &a.Confidence, &a.GeneratedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get ai answer")
	}
	return &a, nil
}

func (s *SQLiteStore) ListAIAnswers(ctx context.Context, analysisID string) ([]model.AIAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.text, a.model, a.confidence, a.generated_at
		 FROM ai_answers a JOIN questions q ON q.id = a.question_id
		 WHERE q.analysis_id = ? ORDER BY a.generated_at`, analysisID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ai answers")
	}
	defer rows.Close()

	var answers []model.AIAnswer
	for rows.Next() {
		var a model.AIAnswer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Model, &a.Confidence, &a.GeneratedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ai answer")
		}
		answers = append(answers, a)
	}
	return answers, eris.Wrap(rows.Err(), "sqlite: list ai answers")
}

const sqliteUpsertResponse = `
INSERT INTO user_responses (id, question_id, user_id, response_type, final_answer, ai_answer_id, user_text, is_final, answered_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (question_id, user_id) DO UPDATE SET
	id = excluded.id,
	response_type = excluded.response_type,
	final_answer = excluded.final_answer,
	ai_answer_id = excluded.ai_answer_id,
	user_text = excluded.user_text,
	is_final = excluded.is_final,
	answered_at = excluded.answered_at`

func (s *SQLiteStore) UpsertUserResponse(ctx context.Context, resp *model.UserResponse) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertResponse,
		resp.ID, resp.QuestionID, resp.UserID, resp.Type, resp.FinalAnswer,
		resp.AIAnswerID, resp.UserText, resp.IsFinal, resp.AnsweredAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert user response")
	}
	return nil
}

func (s *SQLiteStore) UpsertUserResponses(ctx context.Context, resps []model.UserResponse) error {
	if len(resps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert responses: begin")
	}
	defer tx.Rollback()

	for _, r := range resps {
		if _, err := tx.ExecContext(ctx, sqliteUpsertResponse,
			r.ID, r.QuestionID, r.UserID, r.Type, r.FinalAnswer,
			r.AIAnswerID, r.UserText, r.IsFinal, r.AnsweredAt); err != nil {
			return eris.Wrap(err, "sqlite: upsert responses")
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: upsert responses: commit")
	}
	return nil
}

func (s *SQLiteStore) ListUserResponses(ctx context.Context, analysisID, userID string) ([]model.UserResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.question_id, r.user_id, r.response_type, r.final_answer, r.ai_answer_id, r.user_text, r.is_final, r.answered_at
		 FROM user_responses r JOIN questions q ON q.id = r.question_id
		 WHERE q.analysis_id = ? AND r.user_id = ? ORDER BY q.order_index`,
		analysisID, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list user responses")
	}
	defer rows.Close()

	var resps []model.UserResponse
	for rows.Next() {
		var r model.UserResponse
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.UserID, &r.Type, &r.FinalAnswer,
			&r.AIAnswerID, &r.UserText, &r.IsFinal, &r.AnsweredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user response")
		}
		resps = append(resps, r)
	}
	return resps, eris.Wrap(rows.Err(), "sqlite: list user responses")
}

func (s *SQLiteStore) GetSummary(ctx context.Context, analysisID string) (*model.AnalysisSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, analysis_id, total_questions, answered_questions, ai_answers_used, user_answers_used, completion_pct, insights, market_ready, persona_ready, proposal_ready, generated_at, updated_at
		 FROM summaries WHERE analysis_id = ?`, analysisID)

	var sum model.AnalysisSummary
	var insights sql.NullString
	var generatedAt sql.NullTime
	err := row.Scan(&sum.ID, &sum.AnalysisID, &sum.Stats.TotalQuestions,
		&sum.Stats.AnsweredQuestions, &sum.Stats.AIAnswersUsed,
		&sum.Stats.UserAnswersUsed, &sum.Stats.CompletionPercentage, &insights,
		&sum.Readiness.MarketResearch, &sum.Readiness.PersonaAnalysis,
		&sum.Readiness.ProposalWriting, &generatedAt, &sum.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get summary")
	}
	if insights.Valid && insights.String != "" {
		if err := json.Unmarshal([]byte(insights.String), &sum.ConsolidatedInsights); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal insights")
		}
	}
	if generatedAt.Valid {
		t := generatedAt.Time
		sum.GeneratedAt = &t
	}
	return &sum, nil
}

func (s *SQLiteStore) UpsertSummary(ctx context.Context, summary *model.AnalysisSummary) error {
	insights, err := json.Marshal(summary.ConsolidatedInsights)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal insights")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO summaries (id, analysis_id, total_questions, answered_questions, ai_answers_used, user_answers_used, completion_pct, insights, market_ready, persona_ready, proposal_ready, generated_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (analysis_id) DO UPDATE SET
			total_questions = excluded.total_questions,
			answered_questions = excluded.answered_questions,
			ai_answers_used = excluded.ai_answers_used,
			user_answers_used = excluded.user_answers_used,
			completion_pct = excluded.completion_pct,
			insights = excluded.insights,
			market_ready = excluded.market_ready,
			persona_ready = excluded.persona_ready,
			proposal_ready = excluded.proposal_ready,
			generated_at = excluded.generated_at,
			updated_at = excluded.updated_at`,
		summary.ID, summary.AnalysisID, summary.Stats.TotalQuestions,
		summary.Stats.AnsweredQuestions, summary.Stats.AIAnswersUsed,
		summary.Stats.UserAnswersUsed, summary.Stats.CompletionPercentage,
		string(insights), summary.Readiness.MarketResearch,
		summary.Readiness.PersonaAnalysis, summary.Readiness.ProposalWriting,
		summary.GeneratedAt, summary.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert summary")
	}
	return nil
}
