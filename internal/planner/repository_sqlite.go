package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/p-n-ai/pai-planner/internal/plan"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plans (
	id         TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	doc        TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plans_subject ON plans (subject_id, updated_at);
`

// SQLiteRepository stores each plan as one JSON document in a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at dsn, applies pragmas and creates
// the schema when missing.
func OpenSQLite(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Save(ctx context.Context, p plan.LearningPlan) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return storageErr("save", fmt.Errorf("marshal plan: %w", err))
	}

	_, err = sq.Insert("plans").
		Columns("id", "subject_id", "doc", "updated_at").
		Values(p.ID, p.Subject.ID, string(doc), time.Now().UnixNano()).
		Suffix("ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return storageErr("save", err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, subjectID string) (*plan.LearningPlan, error) {
	p, err := r.queryPlan(ctx, sq.Eq{"subject_id": subjectID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, planID string) (*plan.LearningPlan, error) {
	p, err := r.queryPlan(ctx, sq.Eq{"id": planID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return p, nil
}

// List returns the current plan of every subject, most recently updated first.
func (r *SQLiteRepository) List(ctx context.Context) ([]plan.LearningPlan, error) {
	rows, err := sq.Select("doc").
		From("plans").
		OrderBy("updated_at DESC").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var plans []plan.LearningPlan
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, storageErr("list", err)
		}
		var p plan.LearningPlan
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, storageErr("list", fmt.Errorf("decode plan: %w", err))
		}
		if seen[p.Subject.ID] {
			continue
		}
		seen[p.Subject.ID] = true
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return plans, nil
}

func (r *SQLiteRepository) queryPlan(ctx context.Context, where sq.Eq) (*plan.LearningPlan, error) {
	var doc string
	err := sq.Select("doc").
		From("plans").
		Where(where).
		OrderBy("updated_at DESC").
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&doc)
	if err != nil {
		return nil, err
	}

	var p plan.LearningPlan
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}

// applyPragmas configures SQLite for single-user use.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultSQLitePath resolves the database file path in priority order:
// 1. PLAN_SQLITE_PATH environment variable
// 2. $XDG_DATA_HOME/pai-planner/plans.db
// 3. ~/.local/share/pai-planner/plans.db
func DefaultSQLitePath() (string, error) {
	if p := os.Getenv("PLAN_SQLITE_PATH"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "pai-planner", "plans.db")
	return p, ensureDir(p)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
