package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"provena/pkg/requestcontext"
)

const tokenHeader = "X-Admin-Token"

// RequireAdminToken guards the administrative surface behind a shared token.
// Comparison is constant time. An empty configured token denies every
// request.
func RequireAdminToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(tokenHeader)
			if expected == "" ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
