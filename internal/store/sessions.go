package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, task_id, duration, start_time, end_time, efficiency_score`

// CreateSession inserts a focus session. When TaskID is set the task must
// exist, otherwise ErrNotFound is returned and nothing is written.
func (s *Store) CreateSession(ctx context.Context, fs *FocusSession) error {
	fs.StartTime = fs.StartTime.UTC()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if fs.TaskID != nil {
			var n int
			if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM tasks WHERE id = ?`), *fs.TaskID); err != nil {
				return fmt.Errorf("check task %d: %w", *fs.TaskID, err)
			}
			if n == 0 {
				return fmt.Errorf("task %d: %w", *fs.TaskID, ErrNotFound)
			}
		}

		err := tx.QueryRowxContext(ctx, tx.Rebind(`
			INSERT INTO focus_sessions (task_id, duration, start_time, end_time, efficiency_score)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			fs.TaskID, fs.Duration, fs.StartTime, utcPtr(fs.EndTime), fs.EfficiencyScore,
		).Scan(&fs.ID)
		if err != nil {
			return fmt.Errorf("insert focus session: %w", err)
		}
		return nil
	})
}

// CountSessions returns the total number of stored focus sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM focus_sessions`); err != nil {
		return 0, fmt.Errorf("count focus sessions: %w", err)
	}
	return n, nil
}

// ListSessionsSince returns sessions started at or after since, oldest first.
func (s *Store) ListSessionsSince(ctx context.Context, since time.Time) ([]FocusSession, error) {
	sessions := []FocusSession{}
	if err := s.db.SelectContext(ctx, &sessions, s.db.Rebind(`
		SELECT `+sessionColumns+` FROM focus_sessions
		WHERE start_time >= ?
		ORDER BY start_time ASC, id ASC`), since.UTC()); err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	return sessions, nil
}
