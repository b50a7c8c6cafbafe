package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"completearr/internal/config"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryDBPath())
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: filepath.Clean(dbPath)}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun inserts a completed pass and returns its row id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            run_id, trigger_source, started_at, finished_at,
            items_checked, promotions, demotions, corrections,
            already_correct, skipped, errors, monitor_changes,
            aborted, abort_reason
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Trigger,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.ItemsChecked,
		run.Promotions,
		run.Demotions,
		run.Corrections,
		run.AlreadyCorrect,
		run.Skipped,
		run.Errors,
		run.MonitorChanges,
		boolToInt(run.Aborted),
		nullableString(run.AbortReason),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordMove inserts one attempted placement change.
func (s *Store) RecordMove(ctx context.Context, move Move) (int64, error) {
	createdAt := move.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO moves (
            run_id, item_id, item_kind, item_title,
            old_path, new_path, decision, outcome,
            issued, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		move.RunID,
		move.ItemID,
		move.ItemKind,
		move.ItemTitle,
		move.OldPath,
		move.NewPath,
		move.Decision,
		move.Outcome,
		move.Issued,
		nullableString(move.Error),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert move: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent passes, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, trigger_source, started_at, finished_at,
            items_checked, promotions, demotions, corrections,
            already_correct, skipped, errors, monitor_changes,
            aborted, abort_reason
        FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// MovesForRun returns the moves recorded during one pass, oldest first.
func (s *Store) MovesForRun(ctx context.Context, runID string) ([]Move, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, item_id, item_kind, item_title,
            old_path, new_path, decision, outcome,
            issued, error_message, created_at
        FROM moves WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	var moves []Move
	for rows.Next() {
		move, err := scanMove(rows)
		if err != nil {
			return nil, err
		}
		moves = append(moves, move)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

// Prune removes runs (and their moves) older than the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) error {
	cutoff := before.UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM moves WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)`,
		cutoff,
	); err != nil {
		return fmt.Errorf("prune moves: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff); err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run         Run
		startedAt   string
		finishedAt  string
		aborted     int
		abortReason sql.NullString
	)
	if err := rows.Scan(
		&run.ID, &run.RunID, &run.Trigger, &startedAt, &finishedAt,
		&run.ItemsChecked, &run.Promotions, &run.Demotions, &run.Corrections,
		&run.AlreadyCorrect, &run.Skipped, &run.Errors, &run.MonitorChanges,
		&aborted, &abortReason,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	run.Aborted = aborted != 0
	run.AbortReason = abortReason.String
	return run, nil
}

func scanMove(rows *sql.Rows) (Move, error) {
	var (
		move      Move
		errMsg    sql.NullString
		createdAt string
	)
	if err := rows.Scan(
		&move.ID, &move.RunID, &move.ItemID, &move.ItemKind, &move.ItemTitle,
		&move.OldPath, &move.NewPath, &move.Decision, &move.Outcome,
		&move.Issued, &errMsg, &createdAt,
	); err != nil {
		return Move{}, fmt.Errorf("scan move: %w", err)
	}
	move.Error = errMsg.String
	move.CreatedAt = parseTime(createdAt)
	return move, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
