package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/linkscope/audit-cli/internal/model"
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
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	subjects    INTEGER NOT NULL DEFAULT 0,
	successes   INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS attempts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	platform   TEXT NOT NULL,
	username   TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS health_history (
	id          TEXT PRIMARY KEY,
	platform    TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	snapshot    TEXT NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id);
CREATE INDEX IF NOT EXISTS idx_health_platform_recorded ON health_history(platform, recorded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, subjects, successes, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), run.Subjects, run.Successes, run.StartedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, successes int, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, successes = ?, finished_at = ? WHERE id = ?`,
		string(status), successes, finishedAt.UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, subjects, successes, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Status, &r.Subjects, &r.Successes, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveAttempts(ctx context.Context, results []model.AttemptResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save attempts")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, res := range results {
		resultJSON, err := json.Marshal(res)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal attempt")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attempts (id, run_id, platform, username, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			res.ID, res.RunID, string(res.Subject.Platform), res.Subject.Username, string(resultJSON), res.Timestamp.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert attempt %s", res.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save attempts")
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, runID string) ([]model.AttemptResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM attempts WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list attempts")
	}
	defer rows.Close()

	var results []model.AttemptResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attempt")
		}
		var res model.AttemptResult
		if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal attempt")
		}
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list attempts iterate")
}

func (s *SQLiteStore) AppendHealth(ctx context.Context, h model.PlatformHealth) error {
	snapshot, err := json.Marshal(h)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal health snapshot")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO health_history (id, platform, run_id, snapshot, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), string(h.Platform), h.RunID, string(snapshot), h.Timestamp.UTC(),
	)
	return eris.Wrap(err, "sqlite: append health")
}

func (s *SQLiteStore) PruneHealth(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM health_history WHERE recorded_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune health")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: prune rows affected")
}

func (s *SQLiteStore) ListHealth(ctx context.Context, platform model.Platform, since time.Time) ([]model.PlatformHealth, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot FROM health_history WHERE platform = ? AND recorded_at >= ? ORDER BY recorded_at`,
		string(platform), since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list health")
	}
	defer rows.Close()

	var out []model.PlatformHealth
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan health")
		}
		h, ok := decodeHealth(snapshot, string(platform))
		if !ok {
			continue
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list health iterate")
}

func (s *SQLiteStore) LatestHealth(ctx context.Context, platform model.Platform) (*model.PlatformHealth, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM health_history WHERE platform = ? ORDER BY recorded_at DESC LIMIT 1`,
		string(platform),
	)

	var snapshot string
	err := row.Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest health")
	}
	h, ok := decodeHealth(snapshot, string(platform))
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *SQLiteStore) Platforms(ctx context.Context) ([]model.Platform, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT platform FROM health_history ORDER BY platform`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list platforms")
	}
	defer rows.Close()

	var out []model.Platform
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan platform")
		}
		out = append(out, model.Platform(p))
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list platforms iterate")
}

// decodeHealth unmarshals a history row. Corrupt rows are recovered by
// skipping them with a warning so a damaged history never aborts a run.
func decodeHealth(snapshot, platform string) (model.PlatformHealth, bool) {
	var h model.PlatformHealth
	if err := json.Unmarshal([]byte(snapshot), &h); err != nil {
		zap.L().Warn("store: skipping malformed health snapshot",
			zap.String("platform", platform),
			zap.Error(err),
		)
		return model.PlatformHealth{}, false
	}
	return h, true
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
