package tasks

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/httpx"
	"focus-tasks-backend/internal/store"
)

// Store is the task persistence the handlers need.
type Store interface {
	ListTasks(ctx context.Context) ([]store.Task, error)
	CreateTask(ctx context.Context, t *store.Task) error
	GetTask(ctx context.Context, id int64) (*store.Task, error)
	UpdateTask(ctx context.Context, t *store.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ReorderTasks(ctx context.Context, ids []int64) (int, error)
}

const itemPrefix = "/api/tasks/"

// writeError maps validation and not-found errors to 400 and 404, anything else to 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "task not found")
	default:
		httpx.InternalError(w, logger, msg, err)
	}
}

func decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return invalid("%s", err.Error())
	}
	return nil
}

// -------------------------------
// HANDLERS
// -------------------------------

func GetTasksHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := st.ListTasks(r.Context())
		if err != nil {
			httpx.InternalError(w, logger, "list tasks", err)
			return
		}
		httpx.OK(w, http.StatusOK, list)
	}
}

func CreateTaskHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTaskRequest
		if err := decode(r, &req); err != nil {
			writeError(w, logger, "create task", err)
			return
		}

		task, err := newTask(req)
		if err != nil {
			writeError(w, logger, "create task", err)
			return
		}

		if err := st.CreateTask(r.Context(), task); err != nil {
			httpx.InternalError(w, logger, "create task", err)
			return
		}

		logger.Info("task created", zap.Int64("task_id", task.ID), zap.Int("order_index", task.OrderIndex))
		httpx.OK(w, http.StatusCreated, task)
	}
}

func UpdateTaskHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.PathID(r.URL.Path, itemPrefix)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}

		task, err := st.GetTask(r.Context(), id)
		if err != nil {
			writeError(w, logger, "load task", err)
			return
		}

		var req UpdateTaskRequest
		if err := decode(r, &req); err != nil {
			writeError(w, logger, "update task", err)
			return
		}
		if err := applyUpdate(task, req, time.Now()); err != nil {
			writeError(w, logger, "update task", err)
			return
		}

		if err := st.UpdateTask(r.Context(), task); err != nil {
			writeError(w, logger, "update task", err)
			return
		}
		httpx.OK(w, http.StatusOK, task)
	}
}

func DeleteTaskHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.PathID(r.URL.Path, itemPrefix)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := st.DeleteTask(r.Context(), id); err != nil {
			writeError(w, logger, "delete task", err)
			return
		}

		logger.Info("task deleted", zap.Int64("task_id", id))
		httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true})
	}
}

func ReorderTasksHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := decode(r, &req); err != nil {
			writeError(w, logger, "reorder tasks", err)
			return
		}

		ids, err := parseTaskIDs(req.TaskIDs)
		if err != nil {
			writeError(w, logger, "reorder tasks", err)
			return
		}

		updated, err := st.ReorderTasks(r.Context(), ids)
		if err != nil {
			httpx.InternalError(w, logger, "reorder tasks", err)
			return
		}
		if updated == 0 {
			httpx.Fail(w, http.StatusNotFound, "no matching tasks found")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, ReorderResponse{Success: true, Updated: updated})
	}
}
