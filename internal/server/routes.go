package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/analytics"
	"focus-tasks-backend/internal/focus"
	"focus-tasks-backend/internal/httpx"
	"focus-tasks-backend/internal/recommend"
	"focus-tasks-backend/internal/tasks"
)

// routes builds the API mux. Every /api route sits behind the auth middleware.
func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	log := s.logger

	listTasks := tasks.GetTasksHandler(s.store, log.Named("tasks"))
	createTask := tasks.CreateTaskHandler(s.store, log.Named("tasks"))
	updateTask := tasks.UpdateTaskHandler(s.store, log.Named("tasks"))
	deleteTask := tasks.DeleteTaskHandler(s.store, log.Named("tasks"))
	reorder := tasks.ReorderTasksHandler(s.store, log.Named("tasks"))

	api.HandleFunc("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listTasks(w, r)
		case http.MethodPost:
			createTask(w, r)
		default:
			httpx.MethodNotAllowed(w)
		}
	})

	api.HandleFunc("/api/tasks/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tasks/reorder" {
			if r.Method != http.MethodPost {
				httpx.MethodNotAllowed(w)
				return
			}
			reorder(w, r)
			return
		}

		switch r.Method {
		case http.MethodPut:
			updateTask(w, r)
		case http.MethodDelete:
			deleteTask(w, r)
		default:
			httpx.MethodNotAllowed(w)
		}
	})

	createSession := focus.CreateSessionHandler(s.store, s.orchestrator, log.Named("focus"))
	listSessions := focus.ListSessionsHandler(s.store, log.Named("focus"))
	api.HandleFunc("/api/focus-time", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listSessions(w, r)
		case http.MethodPost:
			createSession(w, r)
		default:
			httpx.MethodNotAllowed(w)
		}
	})

	weekly := analytics.WeeklyHandler(s.store, log.Named("analytics"))
	api.HandleFunc("/api/analytics/weekly", getOnly(weekly))

	recommendation := recommend.GetRecommendationHandler(s.orchestrator, log.Named("recommend"))
	train := recommend.TrainHandler(s.orchestrator, log.Named("recommend"))
	api.HandleFunc("/api/recommendation", getOnly(recommendation))
	api.HandleFunc("/api/recommendation/train", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.MethodNotAllowed(w)
			return
		}
		train(w, r)
	})

	api.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "not found")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.Handle("/api/", s.auth.Wrap(api))

	return s.cors.Handler(requestLogger(log.Named("http"))(mux))
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.MethodNotAllowed(w)
			return
		}
		h(w, r)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		httpx.Fail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"})
}
