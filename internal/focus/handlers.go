// Package focus records focus sessions and hands each one to the
// recommendation pipeline.
package focus

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/httpx"
	"focus-tasks-backend/internal/store"
)

const (
	defaultEfficiency = 0.5
	defaultListDays   = 7
	maxListDays       = 365
)

type Store interface {
	CreateSession(ctx context.Context, fs *store.FocusSession) error
	ListSessionsSince(ctx context.Context, since time.Time) ([]store.FocusSession, error)
}

// Recommender is notified after every stored session.
type Recommender interface {
	OnSessionRecorded(ctx context.Context) (*store.Recommendation, error)
}

type CreateSessionRequest struct {
	TaskID          *int64   `json:"task_id"`
	Duration        *float64 `json:"duration"         validate:"required,gt=0,lte=480"`
	EfficiencyScore any      `json:"efficiency_score"`
	EndTime         *string  `json:"end_time"`
}

type sessionResponse struct {
	Success bool                  `json:"success"`
	Data    *store.FocusSession   `json:"data"`
	Rec     *store.Recommendation `json:"recommendation,omitempty"`
}

// efficiency returns v when it is a number in [0,1], otherwise 0.5.
func efficiency(v any) float64 {
	f, ok := v.(float64)
	if !ok || f < 0 || f > 1 {
		return defaultEfficiency
	}
	return f
}

var endTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseEndTime parses an ISO-8601 timestamp. Values without a zone are UTC.
// Unparseable input yields now.
func parseEndTime(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range endTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

// -------------------------------
// HANDLERS
// -------------------------------

// CreateSessionHandler stores a session and then runs the recommender. A
// recommender failure is logged and never fails the request.
func CreateSessionHandler(st Store, rec Recommender, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := httpx.Validate(req); err != nil {
			httpx.Fail(w, http.StatusBadRequest, err.Error())
			return
		}

		now := time.Now().UTC()
		fs := &store.FocusSession{
			Duration:        *req.Duration,
			StartTime:       now,
			EfficiencyScore: efficiency(req.EfficiencyScore),
		}
		if req.TaskID != nil && *req.TaskID != 0 {
			fs.TaskID = req.TaskID
		}
		if req.EndTime != nil && *req.EndTime != "" {
			end := parseEndTime(*req.EndTime, now)
			fs.EndTime = &end
		}

		if err := st.CreateSession(r.Context(), fs); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.Fail(w, http.StatusNotFound, "task not found")
				return
			}
			httpx.InternalError(w, logger, "record focus session", err)
			return
		}

		resp := sessionResponse{Success: true, Data: fs}
		if rec != nil {
			snapshot, err := rec.OnSessionRecorded(r.Context())
			if err != nil {
				logger.Warn("no recommendation produced", zap.Int64("session_id", fs.ID), zap.Error(err))
			}
			resp.Rec = snapshot
		}

		httpx.WriteJSON(w, http.StatusCreated, resp)
	}
}

// ListSessionsHandler returns sessions started in the last ?days= days (default 7).
func ListSessionsHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := defaultListDays
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxListDays {
				httpx.Fail(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
				return
			}
			days = n
		}

		since := time.Now().UTC().AddDate(0, 0, -days)
		sessions, err := st.ListSessionsSince(r.Context(), since)
		if err != nil {
			httpx.InternalError(w, logger, "list focus sessions", err)
			return
		}
		httpx.OK(w, http.StatusOK, sessions)
	}
}
