package analytics

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/httpx"
)

// WeeklyHandler serves GET /api/analytics/weekly.
func WeeklyHandler(st Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := Weekly(r.Context(), st, time.Now())
		if err != nil {
			httpx.InternalError(w, logger, "weekly analytics", err)
			return
		}
		httpx.OK(w, http.StatusOK, report)
	}
}
