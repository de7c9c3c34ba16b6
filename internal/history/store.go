// Package history records optimization runs in a local SQLite database.
package history

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

	_ "modernc.org/sqlite"

	"github.com/HartBrook/keyfit/internal/errors"
)

// UnitRecord is one unit's final count in a run.
type UnitRecord struct {
	Unit  string
	Kind  string
	Count int
	Min   int
	Max   int
	Valid bool
}

// Run is one recorded optimization.
type Run struct {
	ID             string
	Source         string
	Keyword        string
	Status         string
	Iterations     int
	SourceChars    int
	ResultChars    int
	FullyOptimized bool
	Cached         bool
	Unsatisfied    []string
	Units          []UnitRecord
	StartedAt      time.Time
	Duration       time.Duration
}

// Store persists runs. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	keyword TEXT,
	status TEXT NOT NULL,
	iterations INTEGER NOT NULL,
	source_chars INTEGER NOT NULL,
	result_chars INTEGER NOT NULL,
	fully_optimized INTEGER NOT NULL,
	cached INTEGER NOT NULL DEFAULT 0,
	unsatisfied TEXT,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS unit_counts (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	unit TEXT NOT NULL,
	kind TEXT NOT NULL,
	count INTEGER NOT NULL,
	min_count INTEGER NOT NULL,
	max_count INTEGER NOT NULL,
	valid INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.HistoryFailed("failed to create history directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.HistoryFailed("failed to open history database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.HistoryFailed("failed to initialize history schema", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and its unit counts in one transaction.
func (s *Store) Record(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unsatisfied, err := json.Marshal(run.Unsatisfied)
	if err != nil {
		return errors.HistoryFailed("failed to encode run", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.HistoryFailed("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, keyword, status, iterations, source_chars, result_chars,
			fully_optimized, cached, unsatisfied, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Keyword, run.Status, run.Iterations, run.SourceChars, run.ResultChars,
		run.FullyOptimized, run.Cached, string(unsatisfied),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds())
	if err != nil {
		return errors.HistoryFailed(fmt.Sprintf("failed to record run %s", run.ID), err)
	}

	for i, u := range run.Units {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO unit_counts (run_id, position, unit, kind, count, min_count, max_count, valid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, u.Unit, u.Kind, u.Count, u.Min, u.Max, u.Valid)
		if err != nil {
			return errors.HistoryFailed(fmt.Sprintf("failed to record unit %q", u.Unit), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.HistoryFailed("failed to commit run", err)
	}
	return nil
}

const runColumns = `id, source, keyword, status, iterations, source_chars, result_chars,
	fully_optimized, cached, unsatisfied, started_at, duration_ms`

// Recent returns up to limit runs, newest first, with their unit counts.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.HistoryFailed("failed to query runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryFailed("failed to read runs", err)
	}
	rows.Close()

	for i := range runs {
		if runs[i].Units, err = s.units(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run by ID, or an ID prefix when it is unambiguous.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
	if err != nil {
		return nil, errors.HistoryFailed("failed to query run", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryFailed("failed to read run", err)
	}
	rows.Close()

	switch len(found) {
	case 0:
		return nil, errors.New(errors.ErrHistoryFailed, fmt.Sprintf("run %s not found", id), "List runs with 'keyfit history'")
	case 2:
		return nil, errors.New(errors.ErrHistoryFailed, fmt.Sprintf("run prefix %s is ambiguous", id), "Use more characters of the run ID")
	}

	run := found[0]
	if run.Units, err = s.units(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) units(ctx context.Context, runID string) ([]UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unit, kind, count, min_count, max_count, valid
		FROM unit_counts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, errors.HistoryFailed("failed to query unit counts", err)
	}
	defer rows.Close()

	var out []UnitRecord
	for rows.Next() {
		var u UnitRecord
		if err := rows.Scan(&u.Unit, &u.Kind, &u.Count, &u.Min, &u.Max, &u.Valid); err != nil {
			return nil, errors.HistoryFailed("failed to read unit count", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryFailed("failed to read unit counts", err)
	}
	return out, nil
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		run         Run
		keyword     sql.NullString
		unsatisfied sql.NullString
		startedAt   string
		durationMS  int64
	)
	err := rows.Scan(&run.ID, &run.Source, &keyword, &run.Status, &run.Iterations,
		&run.SourceChars, &run.ResultChars, &run.FullyOptimized, &run.Cached,
		&unsatisfied, &startedAt, &durationMS)
	if err != nil {
		return nil, errors.HistoryFailed("failed to read run", err)
	}

	run.Keyword = keyword.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, errors.HistoryFailed(fmt.Sprintf("run %s has a bad timestamp", run.ID), err)
	}
	if unsatisfied.Valid && unsatisfied.String != "" {
		if err := json.Unmarshal([]byte(unsatisfied.String), &run.Unsatisfied); err != nil {
			return nil, errors.HistoryFailed(fmt.Sprintf("run %s has bad violations", run.ID), err)
		}
	}
	return &run, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
