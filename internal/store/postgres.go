package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/linkscope/audit-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
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
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	subjects    INTEGER NOT NULL DEFAULT 0,
	successes   INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS attempts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	platform   TEXT NOT NULL,
	username   TEXT NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS health_history (
	id          TEXT PRIMARY KEY,
	platform    TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	snapshot    JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id);
CREATE INDEX IF NOT EXISTS idx_health_platform_recorded ON health_history(platform, recorded_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, subjects, successes, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Status), run.Subjects, run.Successes, run.StartedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, successes int, finishedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, successes = $2, finished_at = $3 WHERE id = $4`,
		string(status), successes, finishedAt.UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, subjects, successes, started_at, finished_at FROM runs`
	var args []any

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(args) == 0 {
		query += ` LIMIT $1`
	} else {
		query += ` LIMIT $2`
	}
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Status, &r.Subjects, &r.Successes, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveAttempts(ctx context.Context, results []model.AttemptResult) error {
	for _, res := range results {
		resultJSON, err := json.Marshal(res)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal attempt")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO attempts (id, run_id, platform, username, result, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			res.ID, res.RunID, string(res.Subject.Platform), res.Subject.Username, string(resultJSON), res.Timestamp.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert attempt %s", res.ID)
		}
	}
	return nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, runID string) ([]model.AttemptResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT result FROM attempts WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list attempts")
	}
	defer rows.Close()

	var results []model.AttemptResult
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan attempt")
		}
		var res model.AttemptResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal attempt")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list attempts iterate")
}

func (s *PostgresStore) AppendHealth(ctx context.Context, h model.PlatformHealth) error {
	snapshot, err := json.Marshal(h)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal health snapshot")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO health_history (id, platform, run_id, snapshot, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), string(h.Platform), h.RunID, string(snapshot), h.Timestamp.UTC(),
	)
	return eris.Wrap(err, "postgres: append health")
}

func (s *PostgresStore) PruneHealth(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM health_history WHERE recorded_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune health")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListHealth(ctx context.Context, platform model.Platform, since time.Time) ([]model.PlatformHealth, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT snapshot FROM health_history WHERE platform = $1 AND recorded_at >= $2 ORDER BY recorded_at`,
		string(platform), since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list health")
	}
	defer rows.Close()

	var out []model.PlatformHealth
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, eris.Wrap(err, "postgres: scan health")
		}
		h, ok := decodeHealth(string(snapshot), string(platform))
		if !ok {
			continue
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list health iterate")
}

func (s *PostgresStore) LatestHealth(ctx context.Context, platform model.Platform) (*model.PlatformHealth, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM health_history WHERE platform = $1 ORDER BY recorded_at DESC LIMIT 1`,
		string(platform),
	)

	var snapshot []byte
	err := row.Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest health")
	}
	h, ok := decodeHealth(string(snapshot), string(platform))
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *PostgresStore) Platforms(ctx context.Context) ([]model.Platform, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT platform FROM health_history ORDER BY platform`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list platforms")
	}
	defer rows.Close()

	var out []model.Platform
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan platform")
		}
		out = append(out, model.Platform(p))
	}
	return out, eris.Wrap(rows.Err(), "postgres: list platforms iterate")
}
