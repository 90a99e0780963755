// Package requesttime pins a single "now" per request so audit timestamps and
// holding-period math inside one request agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"provena/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
