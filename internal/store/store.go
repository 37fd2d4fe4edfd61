// Package store indexes experiment runs and their trial files in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuireach/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusAborted  = "aborted"
)

// ErrRunNotFound is returned when a run id matches no stored run.
var ErrRunNotFound = errors.New("run not found")

// Store wraps SQLite access for the run index.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			prefix TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			width REAL NOT NULL,
			height REAL NOT NULL,
			sessions INTEGER NOT NULL,
			status TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trials (
			run_id TEXT NOT NULL,
			session INTEGER NOT NULL,
			trial INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			reason TEXT NOT NULL,
			samples INTEGER NOT NULL,
			perturbed INTEGER NOT NULL,
			angle_deg REAL NOT NULL,
			target_angle_deg REAL NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (run_id, session, trial)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun records a new running run and returns its generated id.
func (s *Store) InsertRun(ctx context.Context, run model.RunRecord) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", id, err)
	}
	status := run.Status
	if status == "" {
		status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, prefix, started_at, ended_at, width, height, sessions, status)
		 VALUES (?, ?, ?, NULL, ?, ?, ?, ?)`,
		id,
		run.Prefix,
		run.StartedAt.Format(time.RFC3339Nano),
		run.Width,
		run.Height,
		run.Sessions,
		status,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun stamps the end time and final status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, endedAt time.Time, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, status = ? WHERE id = ?`,
		endedAt.Format(time.RFC3339Nano), status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// UpdateRunSize records the display size once the first frame is known.
func (s *Store) UpdateRunSize(ctx context.Context, id string, width, height float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET width = ?, height = ? WHERE id = ?`, width, height, id)
	return err
}

// InsertTrial indexes a saved trial file.
func (s *Store) InsertTrial(ctx context.Context, tr model.TrialRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, tr.RunID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		err = fmt.Errorf("%w: %s", ErrRunNotFound, tr.RunID)
		return err
	}

	perturbed := 0
	if tr.Perturbed {
		perturbed = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO trials (run_id, session, trial, started_at, ended_at, reason, samples, perturbed, angle_deg, target_angle_deg, path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.RunID,
		tr.Session,
		tr.Trial,
		tr.StartedAt.Format(time.RFC3339Nano),
		tr.EndedAt.Format(time.RFC3339Nano),
		tr.Reason.String(),
		tr.Samples,
		perturbed,
		tr.AngleDeg,
		tr.TargetAngleDeg,
		tr.Path,
	)
	if err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// ListRuns returns the most recent runs first with their trial counts.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.prefix, r.started_at, r.ended_at, r.width, r.height, r.sessions, r.status,
			(SELECT COUNT(1) FROM trials t WHERE t.run_id = r.id) AS trials
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.Prefix, &startedAt, &endedAt, &run.Width, &run.Height, &run.Sessions, &run.Status, &run.Trials); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		run.StartedAt = parsed
		if endedAt.Valid {
			ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, err
			}
			run.EndedAt = &ended
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListTrials returns the trials of a run in session and trial order. The id
// may be a unique prefix of the full run id.
func (s *Store) ListTrials(ctx context.Context, runID string) ([]model.TrialRecord, error) {
	id, err := s.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, session, trial, started_at, ended_at, reason, samples, perturbed, angle_deg, target_angle_deg, path
		FROM trials
		WHERE run_id = ?
		ORDER BY session ASC, trial ASC`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var trials []model.TrialRecord
	for rows.Next() {
		var tr model.TrialRecord
		var startedAt, endedAt, reason string
		var perturbed int
		if err := rows.Scan(&tr.RunID, &tr.Session, &tr.Trial, &startedAt, &endedAt, &reason, &tr.Samples, &perturbed, &tr.AngleDeg, &tr.TargetAngleDeg, &tr.Path); err != nil {
			return nil, err
		}
		if tr.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if tr.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		tr.Reason = model.ParseStopReason(reason)
		tr.Perturbed = perturbed != 0
		trials = append(trials, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trials, nil
}

func (s *Store) resolveRunID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id %q is ambiguous", prefix)
	}
}
