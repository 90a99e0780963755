// Package handler wires the compliance policy endpoints to the policy
// service. All mutating endpoints sit behind the admin token middleware; the
// service still re-checks the actor role itself.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"provena/internal/policy"
	"provena/internal/registry/ports"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/httputil"
	"provena/pkg/requestcontext"
)

// Service defines the policy operations the handler needs.
type Service interface {
	SetKYC(ctx context.Context, actor, principal id.PrincipalID, approved bool) error
	SetAccredited(ctx context.Context, actor, principal id.PrincipalID, accredited bool) error
	SetBlacklisted(ctx context.Context, actor, principal id.PrincipalID, blacklisted bool) error
	SetJurisdiction(ctx context.Context, actor, principal id.PrincipalID, code id.JurisdictionCode, approved bool) error
	SetRiskScore(ctx context.Context, actor, principal id.PrincipalID, score int) error
	Profile(ctx context.Context, principal id.PrincipalID) (policy.ComplianceProfile, error)
	SetConfig(ctx context.Context, actor id.PrincipalID, cfg policy.Config) error
	Config() policy.Config
	HasMinHoldingPeriodElapsed(ctx context.Context, acquiredAt time.Time) bool
}

// Handler wires policy endpoints to the policy service.
type Handler struct {
	service Service
	admin   id.PrincipalID
	risk    ports.Risk
	logger  *slog.Logger
}

// New constructs a policy handler. risk may be nil when no risk collaborator
// is deployed.
func New(service Service, admin id.PrincipalID, risk ports.Risk, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		admin:   admin,
		risk:    risk,
		logger:  logger,
	}
}

// RegisterAdmin mounts the mutating endpoints. Mount behind the admin token
// middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/policy/principals/{principalID}/kyc", h.HandleSetKYC)
	r.Put("/policy/principals/{principalID}/accreditation", h.HandleSetAccredited)
	r.Put("/policy/principals/{principalID}/blacklist", h.HandleSetBlacklisted)
	r.Put("/policy/principals/{principalID}/jurisdictions/{code}", h.HandleSetJurisdiction)
	r.Put("/policy/principals/{principalID}/risk-score", h.HandleSetRiskScore)
	r.Put("/policy/config", h.HandleSetConfig)
}

// Register mounts the read-only endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/policy/principals/{principalID}", h.HandleProfile)
	r.Get("/policy/principals/{principalID}/risk-level", h.HandleRiskLevel)
	r.Get("/policy/config", h.HandleConfig)
	r.Get("/policy/holding-period", h.HandleHoldingPeriod)
}

func (h *Handler) principalFromPath(r *http.Request) (id.PrincipalID, error) {
	return id.ParsePrincipalID(chi.URLParam(r, "principalID"))
}

// setFlag factors the shared shape of the boolean profile mutations.
func (h *Handler) setFlag(w http.ResponseWriter, r *http.Request, field string, set func(ctx context.Context, principal id.PrincipalID, value bool) error) {
	ctx := r.Context()
	principal, err := h.principalFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[FlagRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := set(ctx, principal, req.Value()); err != nil {
		h.logger.ErrorContext(ctx, "policy update failed",
			"request_id", requestcontext.RequestID(ctx),
			"field", field,
			"principal_id", principal,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy updated",
		"request_id", requestcontext.RequestID(ctx),
		"field", field,
		"principal_id", principal,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetKYC(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "kyc", func(ctx context.Context, principal id.PrincipalID, value bool) error {
		return h.service.SetKYC(ctx, h.admin, principal, value)
	})
}

func (h *Handler) HandleSetAccredited(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "accreditation", func(ctx context.Context, principal id.PrincipalID, value bool) error {
		return h.service.SetAccredited(ctx, h.admin, principal, value)
	})
}

func (h *Handler) HandleSetBlacklisted(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, "blacklist", func(ctx context.Context, principal id.PrincipalID, value bool) error {
		return h.service.SetBlacklisted(ctx, h.admin, principal, value)
	})
}

func (h *Handler) HandleSetJurisdiction(w http.ResponseWriter, r *http.Request) {
	code := id.JurisdictionCode(chi.URLParam(r, "code"))
	if code == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "jurisdiction code is required"))
		return
	}
	h.setFlag(w, r, "jurisdiction", func(ctx context.Context, principal id.PrincipalID, value bool) error {
		return h.service.SetJurisdiction(ctx, h.admin, principal, code, value)
	})
}

func (h *Handler) HandleSetRiskScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := h.principalFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RiskScoreRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.SetRiskScore(ctx, h.admin, principal, req.Score); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principalFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.Profile(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProfile(profile))
}

func (h *Handler) HandleRiskLevel(w http.ResponseWriter, r *http.Request) {
	if h.risk == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no risk collaborator configured"))
		return
	}

	principal, err := h.principalFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	level, err := h.risk.RiskLevel(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RiskLevelResponse{RiskLevel: string(level)})
}

func (h *Handler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[ConfigRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.SetConfig(r.Context(), h.admin, req.ToConfig()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromConfig(h.service.Config()))
}

func (h *Handler) HandleHoldingPeriod(w http.ResponseWriter, r *http.Request) {
	acquiredAt, err := time.Parse(time.RFC3339, r.URL.Query().Get("acquired_at"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "acquired_at must be RFC 3339"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HoldingPeriodResponse{
		Elapsed: h.service.HasMinHoldingPeriodElapsed(r.Context(), acquiredAt),
	})
}
