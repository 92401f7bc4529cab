package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"quartergrid/internal/core"
	applog "quartergrid/internal/log"

	_ "modernc.org/sqlite"
)

var ErrSubmissionNotFound = errors.New("submission not found")

// Sync states of a stored submission.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// Submission is an accepted grid as stored. Accepted is re-derived from the
// stored raw cells, so it matches what was computed at submit time.
type Submission struct {
	ID           int64
	SessionID    string
	SyncStatus   string
	SyncAttempts int
	CreatedAt    time.Time
	Accepted     *core.Accepted
}

// PendingSubmission identifies a submission waiting for export.
type PendingSubmission struct {
	ID        int64
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := applog.New(applog.Config{Handler: slog.Default().Handler()}).WithComponent(applog.ComponentStorage)
	if _, err := RunMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements sheets.SubmissionWriter
func (r *SQLiteRepository) Save(ctx context.Context, sessionID string, acc *core.Accepted) (string, error) {
	id, err := r.SaveSubmission(ctx, sessionID, acc)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// SaveSubmission stores the accepted grid: dimensions plus every non-empty
// cell, derived ones included, in one transaction.
func (r *SQLiteRepository) SaveSubmission(ctx context.Context, sessionID string, acc *core.Accepted) (int64, error) {
	if acc == nil {
		return 0, errors.New("nil submission")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO submissions (session_id, table_count, row_count, current_year) VALUES (?, ?, ?, ?)`,
		sessionID, acc.State.Tables, acc.State.Rows, acc.State.CurrentYear)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("submission id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO submission_cells (submission_id, table_index, row_index, column_id, value, computed) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare cell insert: %w", err)
	}
	defer stmt.Close()

	cells := acc.Cells()
	for _, c := range cells {
		if _, err := stmt.ExecContext(ctx, id, c.Key.Table, c.Key.Row, string(c.Key.Column), c.Value, c.Key.Column.Derived()); err != nil {
			return 0, fmt.Errorf("insert cell %s: %w", c.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit submission: %w", err)
	}

	slog.InfoContext(ctx, "Submission saved to SQLite",
		"id", id,
		"session_id", sessionID,
		"tables", acc.State.Tables,
		"rows", acc.State.Rows,
		"cells", len(cells))

	return id, nil
}

// GetSubmission loads a stored submission by id.
func (r *SQLiteRepository) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	var (
		s     Submission
		state core.State
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, table_count, row_count, current_year, sync_status, sync_attempts, created_at
		 FROM submissions WHERE id = ?`, id).
		Scan(&s.ID, &s.SessionID, &state.Tables, &state.Rows, &state.CurrentYear, &s.SyncStatus, &s.SyncAttempts, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSubmissionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %d: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT table_index, row_index, column_id, value FROM submission_cells
		 WHERE submission_id = ? AND computed = 0`, id)
	if err != nil {
		return nil, fmt.Errorf("get submission cells %d: %w", id, err)
	}
	defer rows.Close()

	snap := core.Snapshot{}
	for rows.Next() {
		var (
			table, row int
			col        string
			value      float64
		)
		if err := rows.Scan(&table, &row, &col, &value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		snap.Set(table, row, core.Column(col), value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}

	acc, err := core.Submit(state, snap)
	if err != nil {
		return nil, fmt.Errorf("rebuild submission %d: %w", id, err)
	}
	s.Accepted = acc
	return &s, nil
}

// LatestSubmission returns the most recently stored submission.
func (r *SQLiteRepository) LatestSubmission(ctx context.Context) (*Submission, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM submissions ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest submission: %w", err)
	}
	return r.GetSubmission(ctx, id)
}

// PendingSync returns submissions that still need exporting, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM submissions
		 WHERE sync_status IN ('pending', 'error')
		 ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending submissions: %w", err)
	}
	defer rows.Close()

	var out []PendingSubmission
	for rows.Next() {
		var p PendingSubmission
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending submission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a submission as successfully exported
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setStatus(ctx, id, SyncDone); err != nil {
		return fmt.Errorf("mark submission synced: %w", err)
	}
	slog.InfoContext(ctx, "Submission marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed export attempt
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.setStatus(ctx, id, SyncError); err != nil {
		return fmt.Errorf("mark submission sync error: %w", err)
	}
	slog.WarnContext(ctx, "Submission marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE submissions SET sync_status = ?, sync_attempts = sync_attempts + 1 WHERE id = ?`
	if status == SyncDone {
		query = `UPDATE submissions SET sync_status = ?, synced_at = CURRENT_TIMESTAMP WHERE id = ?`
	}
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrSubmissionNotFound, id)
	}
	return nil
}
