package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"genforge/internal/types"
)

// RunSummary is the persisted outcome of one scheduling run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	Total         int           `json:"total"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	TotalDuration time.Duration `json:"total_duration"`
	FailedPaths   []string      `json:"failed_paths,omitempty"`
}

// RunStore records run summaries and per-artifact results, in Postgres when
// a DSN is configured and as JSON files on disk otherwise.
type RunStore struct {
	dir string
	db  *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewRunStore writes one JSON file per run under dir.
func NewRunStore(dir string) *RunStore {
	return &RunStore{dir: dir}
}

// NewPostgresRunStore connects via the pgx stdlib driver.
func NewPostgresRunStore(dsn string) (*RunStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RunStore{db: db}, nil
}

// NewRunStoreFromEnv prefers Postgres when GENFORGE_PG_DSN is set and falls
// back to the file store when it is empty or unreachable.
func NewRunStoreFromEnv(dir string) *RunStore {
	dsn := strings.TrimSpace(os.Getenv("GENFORGE_PG_DSN"))
	if dsn == "" {
		return NewRunStore(dir)
	}
	s, err := NewPostgresRunStore(dsn)
	if err != nil {
		return NewRunStore(dir)
	}
	return s
}

// Close releases the database handle, if any.
func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *RunStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
    run_id         TEXT PRIMARY KEY,
    started_at     TIMESTAMPTZ NOT NULL,
    total          INT NOT NULL,
    succeeded      INT NOT NULL,
    failed         INT NOT NULL,
    total_duration BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS run_artifacts (
    run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    path        TEXT NOT NULL,
    success     BOOLEAN NOT NULL,
    skipped     BOOLEAN NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    duration_ns BIGINT NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, path)
);`)
		s.schemaErr = err
	})
	return s.schemaErr
}

// SaveRun persists the summary and every per-artifact result.
func (s *RunStore) SaveRun(ctx context.Context, sum RunSummary, results map[string]types.Result) error {
	if s == nil {
		return fmt.Errorf("run store is nil")
	}
	if strings.TrimSpace(sum.RunID) == "" {
		return fmt.Errorf("run id is required")
	}
	if s.db != nil {
		return s.saveRunDB(ctx, sum, results)
	}
	return s.saveRunFile(sum, results)
}

func (s *RunStore) saveRunDB(ctx context.Context, sum RunSummary, results map[string]types.Result) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (run_id, started_at, total, succeeded, failed, total_duration)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id) DO UPDATE SET
    started_at = EXCLUDED.started_at,
    total = EXCLUDED.total,
    succeeded = EXCLUDED.succeeded,
    failed = EXCLUDED.failed,
    total_duration = EXCLUDED.total_duration`,
		sum.RunID, sum.StartedAt, sum.Total, sum.Succeeded, sum.Failed, int64(sum.TotalDuration))
	if err != nil {
		return err
	}
	for _, r := range results {
		_, err = tx.ExecContext(ctx, `
INSERT INTO run_artifacts (run_id, path, success, skipped, error, duration_ns, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (run_id, path) DO UPDATE SET
    success = EXCLUDED.success,
    skipped = EXCLUDED.skipped,
    error = EXCLUDED.error,
    duration_ns = EXCLUDED.duration_ns,
    finished_at = EXCLUDED.finished_at`,
			sum.RunID, r.Path, r.Success, r.Skipped, r.Error, int64(r.Duration), r.Timestamp)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type runFile struct {
	Summary RunSummary              `json:"summary"`
	Results map[string]types.Result `json:"results"`
}

func (s *RunStore) saveRunFile(sum RunSummary, results map[string]types.Result) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(runFile{Summary: sum, Results: results}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, sum.RunID+".json"), b, 0o644)
}

// LoadRun reads a run back (file backend only returns what SaveRun wrote;
// the DB backend reconstructs the summary row).
func (s *RunStore) LoadRun(ctx context.Context, runID string) (RunSummary, error) {
	if s == nil {
		return RunSummary{}, fmt.Errorf("run store is nil")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return RunSummary{}, fmt.Errorf("run id is required")
	}
	if s.db != nil {
		if err := s.ensureSchema(ctx); err != nil {
			return RunSummary{}, err
		}
		var sum RunSummary
		var totalDur int64
		err := s.db.QueryRowContext(ctx, `
SELECT run_id, started_at, total, succeeded, failed, total_duration
FROM runs WHERE run_id = $1`, runID).
			Scan(&sum.RunID, &sum.StartedAt, &sum.Total, &sum.Succeeded, &sum.Failed, &totalDur)
		if err == sql.ErrNoRows {
			return RunSummary{}, ErrNotFound
		}
		if err != nil {
			return RunSummary{}, err
		}
		sum.TotalDuration = time.Duration(totalDur)
		return sum, nil
	}

	b, err := os.ReadFile(filepath.Join(s.dir, runID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return RunSummary{}, ErrNotFound
		}
		return RunSummary{}, err
	}
	var rf runFile
	if err := json.Unmarshal(b, &rf); err != nil {
		return RunSummary{}, err
	}
	return rf.Summary, nil
}
