package tasks

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"focus-tasks-backend/internal/httpx"
	"focus-tasks-backend/internal/store"
)

// ErrValidation marks input the client must fix.
var ErrValidation = errors.New("validation failed")

// validationError carries the client-facing message and matches ErrValidation.
type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// newTask validates req and builds the task to insert.
func newTask(req CreateTaskRequest) (*store.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := httpx.Validate(req); err != nil {
		return nil, invalid("%s", err.Error())
	}

	priority := 1
	if req.Priority != nil {
		priority = *req.Priority
	}

	return &store.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Tags:        store.NormalizeTags(req.Tags),
		Status:      store.StatusPending,
	}, nil
}

// applyUpdate validates every supplied field and applies them to t. Nothing
// is applied when any field is invalid.
func applyUpdate(t *store.Task, req UpdateTaskRequest, now time.Time) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		req.Description = &desc
	}
	if err := httpx.Validate(req); err != nil {
		return invalid("%s", err.Error())
	}

	next := *t
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Priority != nil {
		next.Priority = *req.Priority
	}
	if req.Tags != nil {
		next.Tags = store.NormalizeTags(*req.Tags)
	}
	if req.Status != nil {
		switch *req.Status {
		case store.StatusCompleted:
			if next.CompletedAt == nil {
				at := now.UTC()
				next.CompletedAt = &at
			}
		case store.StatusPending:
			next.CompletedAt = nil
		}
		next.Status = *req.Status
	}

	*t = next
	return nil
}

// parseTaskIDs converts reorder input into ids. Integral JSON numbers and
// numeric strings are accepted.
func parseTaskIDs(raw []any) ([]int64, error) {
	if len(raw) == 0 {
		return nil, invalid("task_ids must be a non-empty array")
	}

	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case float64:
			if id != math.Trunc(id) || math.IsInf(id, 0) {
				return nil, invalid("task_ids must contain integers")
			}
			ids = append(ids, int64(id))
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
			if err != nil {
				return nil, invalid("task_ids must contain integers")
			}
			ids = append(ids, n)
		default:
			return nil, invalid("task_ids must contain integers")
		}
	}
	return ids, nil
}
