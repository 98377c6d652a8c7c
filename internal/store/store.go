// Package store is the record-oriented data access layer over sqlx. Every
// query is written with ? placeholders and rebound for the active driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

func New(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		logger: logger.Named("store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunMaintenance compacts the database: VACUUM on sqlite, VACUUM ANALYZE on postgres.
func (s *Store) RunMaintenance(ctx context.Context) error {
	stmt := "VACUUM"
	if s.db.DriverName() == "postgres" {
		stmt = "VACUUM ANALYZE"
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}
	return nil
}

// Prune deletes completed tasks, focus sessions and recommendation snapshots
// older than cutoff in one transaction. Every snapshot before the cutoff goes,
// including the newest one.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (PruneResult, error) {
	cutoff = cutoff.UTC()
	var res PruneResult

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		r, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM focus_sessions WHERE start_time < ?`), cutoff)
		if err != nil {
			return fmt.Errorf("prune focus sessions: %w", err)
		}
		res.Sessions, _ = r.RowsAffected()

		// sessions still pointing at a pruned task are detached first
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE focus_sessions SET task_id = NULL
			WHERE task_id IN (
				SELECT id FROM tasks
				WHERE status = ? AND completed_at IS NOT NULL AND completed_at < ?
			)`), StatusCompleted, cutoff); err != nil {
			return fmt.Errorf("detach sessions: %w", err)
		}

		r, err = tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM tasks
			WHERE status = ? AND completed_at IS NOT NULL AND completed_at < ?`),
			StatusCompleted, cutoff)
		if err != nil {
			return fmt.Errorf("prune tasks: %w", err)
		}
		res.Tasks, _ = r.RowsAffected()

		r, err = tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM recommendations WHERE created_at < ?`), cutoff)
		if err != nil {
			return fmt.Errorf("prune recommendations: %w", err)
		}
		res.Recommendations, _ = r.RowsAffected()
		return nil
	})
	if err != nil {
		return PruneResult{}, err
	}

	return res, nil
}
