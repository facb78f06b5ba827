// Package history persists digest runs so plans can be compared over time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tfdigest/tfdigest/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT NOT NULL,
    analyzed_at DATETIME NOT NULL,
    created     INTEGER DEFAULT 0,
    changed     INTEGER DEFAULT 0,
    replaced    INTEGER DEFAULT 0,
    destroyed   INTEGER DEFAULT 0,
    moved       INTEGER DEFAULT 0,
    resources   INTEGER DEFAULT 0,
    modules     INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_analyzed_at ON runs(analyzed_at);
`

// Run is one recorded digest: where the plan came from, when it was
// analyzed, and what it counted.
type Run struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Created    int       `json:"created"`
	Changed    int       `json:"changed"`
	Replaced   int       `json:"replaced"`
	Destroyed  int       `json:"destroyed"`
	Moved      int       `json:"moved"`
	Resources  int       `json:"resources"`
	Modules    int       `json:"modules"`
}

// RunFromDigest flattens a digest into a run record.
func RunFromDigest(d *models.Digest) Run {
	modules := 0
	for _, g := range d.Groups {
		modules += len(g.Modules)
	}
	return Run{
		Source:     d.Source,
		AnalyzedAt: d.AnalyzedAt,
		Created:    d.Changes.Count(models.ActionCreated),
		Changed:    d.Changes.Count(models.ActionChanged),
		Replaced:   d.Changes.Count(models.ActionReplaced),
		Destroyed:  d.Changes.Count(models.ActionDestroyed),
		Moved:      d.Changes.Count(models.ActionMoved),
		Resources:  len(d.Changes.All()),
		Modules:    modules,
	}
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
}

// New opens a SQLite-backed run store, creating the parent directory when
// needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &Store{db: db}, nil
}

// Init creates the database schema if it doesn't exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run and returns its ID.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (source, analyzed_at, created, changed, replaced, destroyed, moved, resources, modules)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Source, run.AnalyzedAt.Format(time.RFC3339),
		run.Created, run.Changed, run.Replaced, run.Destroyed, run.Moved,
		run.Resources, run.Modules)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns the most recent runs, up to limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, analyzed_at, created, changed, replaced, destroyed, moved, resources, modules
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	return scanRuns(rows)
}

// OlderThan returns runs analyzed more than the given number of days ago,
// oldest first.
func (s *Store) OlderThan(ctx context.Context, days int) ([]Run, error) {
	threshold := time.Now().Add(-time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, analyzed_at, created, changed, replaced, destroyed, moved, resources, modules
		FROM runs WHERE analyzed_at < ? ORDER BY id
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	return scanRuns(rows)
}

// PruneOlderThan deletes runs analyzed more than the given number of days
// ago and returns how many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, days int) (int64, error) {
	threshold := time.Now().Add(-time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE analyzed_at < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RunCount returns the total number of recorded runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// ActionTotals returns the summed per-action counts across all runs.
func (s *Store) ActionTotals(ctx context.Context) (map[string]int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(created), 0), COALESCE(SUM(changed), 0), COALESCE(SUM(replaced), 0),
		       COALESCE(SUM(destroyed), 0), COALESCE(SUM(moved), 0)
		FROM runs
	`)

	var created, changed, replaced, destroyed, moved int
	if err := row.Scan(&created, &changed, &replaced, &destroyed, &moved); err != nil {
		return nil, err
	}
	return map[string]int{
		string(models.ActionCreated):   created,
		string(models.ActionChanged):   changed,
		string(models.ActionReplaced):  replaced,
		string(models.ActionDestroyed): destroyed,
		string(models.ActionMoved):     moved,
	}, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var analyzedAt string
		if err := rows.Scan(&r.ID, &r.Source, &analyzedAt,
			&r.Created, &r.Changed, &r.Replaced, &r.Destroyed, &r.Moved,
			&r.Resources, &r.Modules); err != nil {
			return nil, err
		}
		r.AnalyzedAt, _ = time.Parse(time.RFC3339, analyzedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
