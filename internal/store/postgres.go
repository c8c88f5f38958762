package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gauntlet/internal/db"
	"github.com/sells-group/gauntlet/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot path: one run insert per scheduled unit.
var preparedStatements = map[string]string{
	"append_run": `INSERT INTO test_runs (id, challenge_id, model_id, executed_at, status, raw_response, parsed_answer,
		is_correct, execution_ms, prompt_tokens, completion_tokens, total_tokens, temperature, max_tokens, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
	"list_active_challenges": `SELECT id, slug, name, category, prompt, expected_answer, validation, is_active, created_at
		FROM challenges WHERE is_active ORDER BY slug`,
	"list_active_models": `SELECT id, provider, name, gateway_id, max_completion_tokens, is_active, created_at
		FROM models WHERE is_active ORDER BY gateway_id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS challenges (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	slug            TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	prompt          TEXT NOT NULL,
	expected_answer TEXT NOT NULL DEFAULT '',
	validation      JSONB NOT NULL,
	is_active       BOOLEAN NOT NULL DEFAULT true,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS models (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	provider              TEXT NOT NULL,
	name                  TEXT NOT NULL,
	gateway_id            TEXT NOT NULL UNIQUE,
	max_completion_tokens INTEGER,
	is_active             BOOLEAN NOT NULL DEFAULT false,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS test_runs (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	challenge_id      TEXT NOT NULL REFERENCES challenges(id),
	model_id          TEXT NOT NULL REFERENCES models(id),
	executed_at       TIMESTAMPTZ NOT NULL,
	status            TEXT NOT NULL,
	raw_response      TEXT NOT NULL DEFAULT '',
	parsed_answer     TEXT NOT NULL DEFAULT '',
	is_correct        BOOLEAN NOT NULL DEFAULT false,
	execution_ms      BIGINT NOT NULL DEFAULT 0,
	prompt_tokens     INTEGER,
	completion_tokens INTEGER,
	total_tokens      INTEGER,
	temperature       DOUBLE PRECISION NOT NULL DEFAULT 0,
	max_tokens        INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT
);

CREATE INDEX IF NOT EXISTS idx_test_runs_pair ON test_runs(challenge_id, model_id, executed_at DESC);
CREATE INDEX IF NOT EXISTS idx_test_runs_status ON test_runs(status);
CREATE INDEX IF NOT EXISTS idx_challenges_active ON challenges(is_active);
CREATE INDEX IF NOT EXISTS idx_models_active ON models(is_active);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListActiveChallenges(ctx context.Context) ([]model.Challenge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, name, category, prompt, expected_answer, validation, is_active, created_at
		 FROM challenges WHERE is_active ORDER BY slug`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active challenges")
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		var validationJSON []byte
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Category, &c.Prompt, &c.ExpectedAnswer, &validationJSON, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan challenge")
		}
		if err := json.Unmarshal(validationJSON, &c.Validation); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal validation for %s", c.Slug)
		}
		challenges = append(challenges, c)
	}
	return challenges, eris.Wrap(rows.Err(), "postgres: list active challenges iterate")
}

func (s *PostgresStore) ListActiveModels(ctx context.Context) ([]model.LLMModel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider, name, gateway_id, max_completion_tokens, is_active, created_at
		 FROM models WHERE is_active ORDER BY gateway_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active models")
	}
	defer rows.Close()

	var models []model.LLMModel
	for rows.Next() {
		var m model.LLMModel
		var maxTokens sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Provider, &m.Name, &m.GatewayID, &maxTokens, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan model")
		}
		if maxTokens.Valid {
			m.MaxCompletionTokens = int(maxTokens.Int64)
		}
		models = append(models, m)
	}
	return models, eris.Wrap(rows.Err(), "postgres: list active models iterate")
}

func (s *PostgresStore) UpsertChallenge(ctx context.Context, c model.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	validationJSON, err := json.Marshal(c.Validation)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal validation")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO challenges (id, slug, name, category, prompt, expected_answer, validation, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			prompt = excluded.prompt,
			expected_answer = excluded.expected_answer,
			validation = excluded.validation,
			is_active = excluded.is_active`,
		c.ID, c.Slug, c.Name, c.Category, c.Prompt, c.ExpectedAnswer, validationJSON, c.IsActive, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert challenge %s", c.Slug)
}

func (s *PostgresStore) UpsertModel(ctx context.Context, m model.LLMModel) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	var maxTokens any
	if m.MaxCompletionTokens > 0 {
		maxTokens = m.MaxCompletionTokens
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO models (id, provider, name, gateway_id, max_completion_tokens, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (gateway_id) DO UPDATE SET
			provider = excluded.provider,
			name = excluded.name,
			max_completion_tokens = excluded.max_completion_tokens,
			is_active = excluded.is_active`,
		m.ID, m.Provider, m.Name, m.GatewayID, maxTokens, m.IsActive, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert model %s", m.GatewayID)
}

func (s *PostgresStore) AppendRunRecord(ctx context.Context, run model.TestRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.ExecutedAt.IsZero() {
		run.ExecutedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO test_runs (id, challenge_id, model_id, executed_at, status, raw_response, parsed_answer,
			is_correct, execution_ms, prompt_tokens, completion_tokens, total_tokens, temperature, max_tokens, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		run.ID, run.ChallengeID, run.ModelID, run.ExecutedAt, string(run.Status), run.RawResponse, run.ParsedAnswer,
		run.IsCorrect, run.ExecutionMs, nullableInt(run.PromptTokens), nullableInt(run.CompletionTokens),
		nullableInt(run.TotalTokens), run.Temperature, run.MaxTokens, nullableStr(run.ErrorMessage),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: append run record")
	}
	return run.ID, nil
}

const postgresRunColumns = `id, challenge_id, model_id, executed_at, status, raw_response, parsed_answer,
	is_correct, execution_ms, prompt_tokens, completion_tokens, total_tokens, temperature, max_tokens, error_message`

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.TestRun, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM test_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.ChallengeID != "" {
		query += fmt.Sprintf(` AND challenge_id = $%d`, argIdx)
		args = append(args, filter.ChallengeID)
		argIdx++
	}
	if filter.ModelID != "" {
		query += fmt.Sprintf(` AND model_id = $%d`, argIdx)
		args = append(args, filter.ModelID)
		argIdx++
	}
	query += ` ORDER BY executed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	return collectPgxRuns(rows)
}

func (s *PostgresStore) LatestRuns(ctx context.Context) ([]model.TestRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresRunColumns+` FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY challenge_id, model_id ORDER BY executed_at DESC) AS rn
			FROM test_runs
		 ) t WHERE rn = 1`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest runs")
	}
	defer rows.Close()

	return collectPgxRuns(rows)
}

func (s *PostgresStore) ListErroredPairs(ctx context.Context) ([]model.PairRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT challenge_id, model_id FROM (
			SELECT challenge_id, model_id, status,
			       ROW_NUMBER() OVER (PARTITION BY challenge_id, model_id ORDER BY executed_at DESC) AS rn
			FROM test_runs
		 ) t WHERE rn = 1 AND status = 'error'`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list errored pairs")
	}
	defer rows.Close()

	var pairs []model.PairRef
	for rows.Next() {
		var p model.PairRef
		if err := rows.Scan(&p.ChallengeID, &p.ModelID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan errored pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "postgres: list errored pairs iterate")
}

func collectPgxRuns(rows pgx.Rows) ([]model.TestRun, error) {
	var runs []model.TestRun
	for rows.Next() {
		var r model.TestRun
		var promptTokens, completionTokens, totalTokens sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.ChallengeID, &r.ModelID, &r.ExecutedAt, &r.Status, &r.RawResponse, &r.ParsedAnswer,
			&r.IsCorrect, &r.ExecutionMs, &promptTokens, &completionTokens, &totalTokens, &r.Temperature, &r.MaxTokens, &errMsg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.PromptTokens = int(promptTokens.Int64)
		r.CompletionTokens = int(completionTokens.Int64)
		r.TotalTokens = int(totalTokens.Int64)
		r.ErrorMessage = errMsg.String
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
