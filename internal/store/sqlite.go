package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/gauntlet/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS challenges (
	id              TEXT PRIMARY KEY,
	slug            TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	prompt          TEXT NOT NULL,
	expected_answer TEXT NOT NULL DEFAULT '',
	validation      TEXT NOT NULL,
	is_active       INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS models (
	id                    TEXT PRIMARY KEY,
	provider              TEXT NOT NULL,
	name                  TEXT NOT NULL,
	gateway_id            TEXT NOT NULL UNIQUE,
	max_completion_tokens INTEGER,
	is_active             INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS test_runs (
	id                TEXT PRIMARY KEY,
	challenge_id      TEXT NOT NULL REFERENCES challenges(id),
	model_id          TEXT NOT NULL REFERENCES models(id),
	executed_at       DATETIME NOT NULL,
	status            TEXT NOT NULL,
	raw_response      TEXT NOT NULL DEFAULT '',
	parsed_answer     TEXT NOT NULL DEFAULT '',
	is_correct        INTEGER NOT NULL DEFAULT 0,
	execution_ms      INTEGER NOT NULL DEFAULT 0,
	prompt_tokens     INTEGER,
	completion_tokens INTEGER,
	total_tokens      INTEGER,
	temperature       REAL NOT NULL DEFAULT 0,
	max_tokens        INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT
);

CREATE INDEX IF NOT EXISTS idx_test_runs_pair ON test_runs(challenge_id, model_id, executed_at DESC);
CREATE INDEX IF NOT EXISTS idx_test_runs_status ON test_runs(status);
CREATE INDEX IF NOT EXISTS idx_challenges_active ON challenges(is_active);
CREATE INDEX IF NOT EXISTS idx_models_active ON models(is_active);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListActiveChallenges(ctx context.Context) ([]model.Challenge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, category, prompt, expected_answer, validation, is_active, created_at
		 FROM challenges WHERE is_active = 1 ORDER BY slug`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active challenges")
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		var validationJSON string
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Category, &c.Prompt, &c.ExpectedAnswer, &validationJSON, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan challenge")
		}
		if err := json.Unmarshal([]byte(validationJSON), &c.Validation); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal validation for %s", c.Slug)
		}
		challenges = append(challenges, c)
	}
	return challenges, eris.Wrap(rows.Err(), "sqlite: list active challenges iterate")
}

func (s *SQLiteStore) ListActiveModels(ctx context.Context) ([]model.LLMModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, name, gateway_id, max_completion_tokens, is_active, created_at
		 FROM models WHERE is_active = 1 ORDER BY gateway_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active models")
	}
	defer rows.Close()

	var models []model.LLMModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, eris.Wrap(rows.Err(), "sqlite: list active models iterate")
}

func (s *SQLiteStore) UpsertChallenge(ctx context.Context, c model.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	validationJSON, err := json.Marshal(c.Validation)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal validation")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO challenges (id, slug, name, category, prompt, expected_answer, validation, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			prompt = excluded.prompt,
			expected_answer = excluded.expected_answer,
			validation = excluded.validation,
			is_active = excluded.is_active`,
		c.ID, c.Slug, c.Name, c.Category, c.Prompt, c.ExpectedAnswer, string(validationJSON), c.IsActive, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert challenge %s", c.Slug)
}

func (s *SQLiteStore) UpsertModel(ctx context.Context, m model.LLMModel) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	var maxTokens any
	if m.MaxCompletionTokens > 0 {
		maxTokens = m.MaxCompletionTokens
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (id, provider, name, gateway_id, max_completion_tokens, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(gateway_id) DO UPDATE SET
			provider = excluded.provider,
			name = excluded.name,
			max_completion_tokens = excluded.max_completion_tokens,
			is_active = excluded.is_active`,
		m.ID, m.Provider, m.Name, m.GatewayID, maxTokens, m.IsActive, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert model %s", m.GatewayID)
}

func (s *SQLiteStore) AppendRunRecord(ctx context.Context, run model.TestRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.ExecutedAt.IsZero() {
		run.ExecutedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_runs (id, challenge_id, model_id, executed_at, status, raw_response, parsed_answer,
			is_correct, execution_ms, prompt_tokens, completion_tokens, total_tokens, temperature, max_tokens, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ChallengeID, run.ModelID, run.ExecutedAt, string(run.Status), run.RawResponse, run.ParsedAnswer,
		run.IsCorrect, run.ExecutionMs, nullableInt(run.PromptTokens), nullableInt(run.CompletionTokens),
		nullableInt(run.TotalTokens), run.Temperature, run.MaxTokens, nullableStr(run.ErrorMessage),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: append run record")
	}
	return run.ID, nil
}

const sqliteRunColumns = `id, challenge_id, model_id, executed_at, status, raw_response, parsed_answer,
	is_correct, execution_ms, prompt_tokens, completion_tokens, total_tokens, temperature, max_tokens, error_message`

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.TestRun, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM test_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ChallengeID != "" {
		query += ` AND challenge_id = ?`
		args = append(args, filter.ChallengeID)
	}
	if filter.ModelID != "" {
		query += ` AND model_id = ?`
		args = append(args, filter.ModelID)
	}
	query += ` ORDER BY executed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	return collectRuns(rows, "sqlite")
}

func (s *SQLiteStore) LatestRuns(ctx context.Context) ([]model.TestRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY challenge_id, model_id ORDER BY executed_at DESC) AS rn
			FROM test_runs
		 ) t WHERE rn = 1`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest runs")
	}
	defer rows.Close()

	return collectRuns(rows, "sqlite")
}

func (s *SQLiteStore) ListErroredPairs(ctx context.Context) ([]model.PairRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT challenge_id, model_id FROM (
			SELECT challenge_id, model_id, status,
			       ROW_NUMBER() OVER (PARTITION BY challenge_id, model_id ORDER BY executed_at DESC) AS rn
			FROM test_runs
		 ) t WHERE rn = 1 AND status = 'error'`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list errored pairs")
	}
	defer rows.Close()

	var pairs []model.PairRef
	for rows.Next() {
		var p model.PairRef
		if err := rows.Scan(&p.ChallengeID, &p.ModelID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan errored pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: list errored pairs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanModel(row scannable) (*model.LLMModel, error) {
	var m model.LLMModel
	var maxTokens sql.NullInt64
	if err := row.Scan(&m.ID, &m.Provider, &m.Name, &m.GatewayID, &maxTokens, &m.IsActive, &m.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan model")
	}
	if maxTokens.Valid {
		m.MaxCompletionTokens = int(maxTokens.Int64)
	}
	return &m, nil
}

func collectRuns(rows *sql.Rows, backend string) ([]model.TestRun, error) {
	var runs []model.TestRun
	for rows.Next() {
		var r model.TestRun
		var promptTokens, completionTokens, totalTokens sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.ChallengeID, &r.ModelID, &r.ExecutedAt, &r.Status, &r.RawResponse, &r.ParsedAnswer,
			&r.IsCorrect, &r.ExecutionMs, &promptTokens, &completionTokens, &totalTokens, &r.Temperature, &r.MaxTokens, &errMsg); err != nil {
			return nil, eris.Wrapf(err, "%s: scan run", backend)
		}
		r.PromptTokens = int(promptTokens.Int64)
		r.CompletionTokens = int(completionTokens.Int64)
		r.TotalTokens = int(totalTokens.Int64)
		r.ErrorMessage = errMsg.String
		runs = append(runs, r)
	}
	return runs, eris.Wrapf(rows.Err(), "%s: iterate runs", backend)
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
