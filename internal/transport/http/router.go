// Package httptransport composes the HTTP surface: middleware chain, route
// groups, and operational endpoints. Business logic stays in the domain
// services.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithandler "provena/internal/audit/handler"
	ledgerhandler "provena/internal/ledger/handler"
	"provena/internal/platform/metrics"
	policyhandler "provena/internal/policy/handler"
	"provena/internal/ratelimit"
	transferhandler "provena/internal/transfer/handler"
	"provena/pkg/platform/middleware/admin"
	"provena/pkg/platform/middleware/auth"
	"provena/pkg/platform/middleware/metadata"
	"provena/pkg/platform/middleware/request"
	"provena/pkg/platform/middleware/requesttime"
)

// Handlers collects the per-domain handlers the router mounts.
type Handlers struct {
	Policy   *policyhandler.Handler
	Ledger   *ledgerhandler.Handler
	Transfer *transferhandler.Handler
	Audit    *audithandler.Handler
}

// Deps collects the cross-cutting pieces of the middleware chain.
type Deps struct {
	AdminToken     string
	TokenValidator auth.TokenValidator
	RateLimit      *ratelimit.Middleware
	Logger         *slog.Logger
}

// NewRouter wires all endpoints. Three route groups: read-only queries (open),
// principal operations (bearer token), and administration (admin token).
func NewRouter(h Handlers, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Read-only query surface.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		h.Policy.Register(r)
		h.Ledger.Register(r)
		h.Audit.Register(r)
	})

	// Principal surface: transfer proposals and lookups.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.TokenValidator, deps.Logger))
		r.Use(deps.RateLimit.Limit)

		h.Transfer.Register(r)
	})

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(deps.AdminToken, deps.Logger))

		h.Policy.RegisterAdmin(r)
		h.Ledger.RegisterAdmin(r)
		h.Transfer.RegisterAdmin(r)
		h.Audit.RegisterAdmin(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
