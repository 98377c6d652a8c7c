package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const taskColumns = `id, title, description, priority, tags, status, order_index, created_at, completed_at`

// CreateTask inserts t after the current last task: order_index is
// COALESCE(MAX(order_index), 0) + 1. ID, OrderIndex and CreatedAt are filled in.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	t.CreatedAt = t.CreatedAt.UTC()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var maxOrder int
		if err := tx.GetContext(ctx, &maxOrder,
			`SELECT COALESCE(MAX(order_index), 0) FROM tasks`); err != nil {
			return fmt.Errorf("read max order index: %w", err)
		}
		t.OrderIndex = maxOrder + 1

		err := tx.QueryRowxContext(ctx, tx.Rebind(`
			INSERT INTO tasks (title, description, priority, tags, status, order_index, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			t.Title, t.Description, t.Priority, t.Tags, t.Status, t.OrderIndex, t.CreatedAt, utcPtr(t.CompletedAt),
		).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
}

// GetTask returns ErrNotFound when id does not exist.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// ListTasks returns every task in display order.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	tasks := []Task{}
	if err := s.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks ORDER BY order_index ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListTasksCreatedSince returns tasks created at or after since, oldest first.
func (s *Store) ListTasksCreatedSince(ctx context.Context, since time.Time) ([]Task, error) {
	tasks := []Task{}
	if err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(`
		SELECT `+taskColumns+` FROM tasks
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC`), since.UTC()); err != nil {
		return nil, fmt.Errorf("list tasks created since: %w", err)
	}
	return tasks, nil
}

// ListTasksCompletedSince returns completed tasks whose completed_at is at or after since.
func (s *Store) ListTasksCompletedSince(ctx context.Context, since time.Time) ([]Task, error) {
	tasks := []Task{}
	if err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(`
		SELECT `+taskColumns+` FROM tasks
		WHERE status = ? AND completed_at IS NOT NULL AND completed_at >= ?
		ORDER BY completed_at ASC, id ASC`), StatusCompleted, since.UTC()); err != nil {
		return nil, fmt.Errorf("list tasks completed since: %w", err)
	}
	return tasks, nil
}

// UpdateTask writes every mutable column of t.
func (s *Store) UpdateTask(ctx context.Context, t *Task) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE tasks
		SET title = ?, description = ?, priority = ?, tags = ?, status = ?, order_index = ?, completed_at = ?
		WHERE id = ?`),
		t.Title, t.Description, t.Priority, t.Tags, t.Status, t.OrderIndex, utcPtr(t.CompletedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task; its focus sessions stay with task_id cleared.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE focus_sessions SET task_id = NULL WHERE task_id = ?`), id); err != nil {
			return fmt.Errorf("detach sessions of task %d: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete task %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ReorderTasks sets each task's order_index to its position in ids. Unknown
// ids are skipped without shifting the others. It returns how many tasks were
// updated; when none matched nothing is committed.
func (s *Store) ReorderTasks(ctx context.Context, ids []int64) (int, error) {
	updated := 0
	errNoneMatched := errors.New("no task matched")

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`UPDATE tasks SET order_index = ? WHERE id = ?`))
		if err != nil {
			return fmt.Errorf("prepare reorder: %w", err)
		}
		defer stmt.Close()

		for i, id := range ids {
			res, err := stmt.ExecContext(ctx, i, id)
			if err != nil {
				return fmt.Errorf("reorder task %d: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				updated++
			}
		}
		if updated == 0 {
			return errNoneMatched
		}
		return nil
	})
	if errors.Is(err, errNoneMatched) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
