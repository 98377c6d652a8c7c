// Package auth guards the API with an HS256 bearer token when a secret is configured.
package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/httpx"
)

type Middleware struct {
	secret []byte
	logger *zap.Logger
}

// New returns a middleware; an empty secret disables the check.
func New(secret []byte, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Middleware{secret: secret, logger: logger}
}

// Enabled reports whether requests are checked.
func (m Middleware) Enabled() bool { return len(m.secret) > 0 }

func (m Middleware) Wrap(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			httpx.Fail(w, http.StatusUnauthorized, "missing token")
			return
		}

		if err := ParseToken(m.secret, strings.TrimPrefix(h, "Bearer ")); err != nil {
			m.logger.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
			httpx.Fail(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
