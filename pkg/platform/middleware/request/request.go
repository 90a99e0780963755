// Package request assigns each inbound request an ID for log correlation.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"provena/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware propagates a caller-supplied request ID or generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
