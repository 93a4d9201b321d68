// Package report stores batch evaluation runs in SQLite so quality can be
// compared across runs.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/liblearn/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	source     TEXT NOT NULL DEFAULT '',
	options    TEXT NOT NULL DEFAULT '',
	total      INTEGER NOT NULL DEFAULT 0,
	failures   INTEGER NOT NULL DEFAULT 0,
	mean       REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
	run_id   INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank     INTEGER NOT NULL,
	path     TEXT NOT NULL,
	quality  REAL NOT NULL,
	eligible INTEGER NOT NULL DEFAULT 0,
	cards    INTEGER NOT NULL DEFAULT 0,
	error    TEXT NOT NULL DEFAULT '',
	UNIQUE(run_id, path)
);

CREATE INDEX IF NOT EXISTS idx_results_path ON results(path);
`

// Run is one batch evaluation.
type Run struct {
	ID        int64
	StartedAt time.Time
	// Source is the provider kind the run resolved against.
	Source string
	// Options is a free-form description of the deck options used.
	Options  string
	Total    int
	Failures int
	// Mean is the mean quality over successful paths.
	Mean    float64
	Results []Result
}

// Result is the outcome for one path of a run. Failed paths carry the
// sentinel quality and a non-empty Error.
type Result struct {
	Rank     int
	Path     string
	Quality  float64
	Eligible int
	Cards    int
	Error    string
}

// PathResult is a Result seen from the history of a single path.
type PathResult struct {
	RunID     int64
	StartedAt time.Time
	Result
}

// DB wraps a sql.DB with report operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("report: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("report: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("report: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveRun stores run and its results in one transaction and returns the
// new run ID. Total, Failures and Mean are derived from the results.
func (db *DB) SaveRun(ctx context.Context, run Run) (int64, error) {
	total, failures, mean := Summarize(run.Results)
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("report: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, source, options, total, failures, mean)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.StartedAt.UTC(), run.Source, run.Options, total, failures, mean)
	if err != nil {
		return 0, fmt.Errorf("report: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("report: run id: %w", err)
	}

	if len(run.Results) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO results (run_id, rank, path, quality, eligible, cards, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("report: prepare result insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range run.Results {
			rank := r.Rank
			if rank == 0 {
				rank = i + 1
			}
			if _, err := stmt.ExecContext(ctx, id, rank, r.Path, r.Quality, r.Eligible, r.Cards, r.Error); err != nil {
				return 0, fmt.Errorf("report: insert result: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("report: commit: %w", err)
	}
	return id, nil
}

// Summarize returns the result count, the failure count and the mean quality
// over successful results.
func Summarize(results []Result) (total, failures int, mean float64) {
	var sum float64
	for _, r := range results {
		if r.Error != "" {
			failures++
			continue
		}
		sum += r.Quality
	}
	total = len(results)
	if ok := total - failures; ok > 0 {
		mean = sum / float64(ok)
	}
	return total, failures, mean
}

// ListRuns returns the most recent runs, newest first, without results.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, started_at, source, options, total, failures, mean
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("report: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Source, &r.Options, &r.Total, &r.Failures, &r.Mean); err != nil {
			return nil, fmt.Errorf("report: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns the run with the given ID and its results in rank order.
func (db *DB) GetRun(ctx context.Context, id int64) (*Run, error) {
	var r Run
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, started_at, source, options, total, failures, mean
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.StartedAt, &r.Source, &r.Options, &r.Total, &r.Failures, &r.Mean)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report: run %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("report: get run: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT rank, path, quality, eligible, cards, error
		FROM results WHERE run_id = ? ORDER BY rank
	`, id)
	if err != nil {
		return nil, fmt.Errorf("report: list results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.Rank, &res.Path, &res.Quality, &res.Eligible, &res.Cards, &res.Error); err != nil {
			return nil, fmt.Errorf("report: scan result: %w", err)
		}
		r.Results = append(r.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// PathHistory returns the recorded results for path, newest run first.
func (db *DB) PathHistory(ctx context.Context, path string, limit int) ([]PathResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, r.started_at, s.rank, s.path, s.quality, s.eligible, s.cards, s.error
		FROM results s JOIN runs r ON r.id = s.run_id
		WHERE s.path = ?
		ORDER BY r.id DESC LIMIT ?
	`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("report: path history: %w", err)
	}
	defer rows.Close()

	var out []PathResult
	for rows.Next() {
		var p PathResult
		if err := rows.Scan(&p.RunID, &p.StartedAt, &p.Rank, &p.Path, &p.Quality, &p.Eligible, &p.Cards, &p.Error); err != nil {
			return nil, fmt.Errorf("report: scan path result: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
