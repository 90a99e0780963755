// Package handler exposes the audit log over HTTP. The action registry and
// writer set are admin operations; the query surface is read-only.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"provena/internal/audit"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/httputil"
	"provena/pkg/requestcontext"
)

// Service defines the audit operations the handler needs.
type Service interface {
	RegisterAction(ctx context.Context, actor id.PrincipalID, code string) error
	DeregisterAction(ctx context.Context, actor id.PrincipalID, code string) error
	AuthorizeWriter(ctx context.Context, actor, writer id.PrincipalID) error
	DeauthorizeWriter(ctx context.Context, actor, writer id.PrincipalID) error
	Get(ctx context.Context, entryID id.AuditEntryID) (audit.Entry, error)
	Range(ctx context.Context, startID, endID id.AuditEntryID) ([]audit.Entry, error)
	Count(ctx context.Context) (uint64, error)
	ListByActor(ctx context.Context, actor id.PrincipalID) ([]audit.Entry, error)
}

// Handler wires audit endpoints to the audit service.
type Handler struct {
	service Service
	admin   id.PrincipalID
	logger  *slog.Logger
}

// New constructs an audit handler.
func New(service Service, admin id.PrincipalID, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		admin:   admin,
		logger:  logger,
	}
}

// RegisterAdmin mounts the registry and writer set endpoints. Mount behind
// the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/audit/actions", h.HandleRegisterAction)
	r.Delete("/audit/actions/{code}", h.HandleDeregisterAction)
	r.Post("/audit/writers", h.HandleAuthorizeWriter)
	r.Delete("/audit/writers/{writerID}", h.HandleDeauthorizeWriter)
}

// Register mounts the read-only query endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entries", h.HandleRange)
	r.Get("/audit/entries/count", h.HandleCount)
	r.Get("/audit/entries/{entryID}", h.HandleGet)
	r.Get("/audit/actors/{actorID}/entries", h.HandleListByActor)
}

func (h *Handler) HandleRegisterAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ActionRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.RegisterAction(ctx, h.admin, req.Code); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit action registered",
		"request_id", requestcontext.RequestID(ctx),
		"action", req.Code,
	)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleDeregisterAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	if err := h.service.DeregisterAction(ctx, h.admin, code); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit action deregistered",
		"request_id", requestcontext.RequestID(ctx),
		"action", code,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAuthorizeWriter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[WriterRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.AuthorizeWriter(ctx, h.admin, req.Writer()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit writer authorized",
		"request_id", requestcontext.RequestID(ctx),
		"writer_id", req.Writer(),
	)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleDeauthorizeWriter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writer, err := id.ParsePrincipalID(chi.URLParam(r, "writerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeauthorizeWriter(ctx, h.admin, writer); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit writer deauthorized",
		"request_id", requestcontext.RequestID(ctx),
		"writer_id", writer,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseUint(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entry id must be a positive integer"))
		return
	}

	entry, err := h.service.Get(r.Context(), id.AuditEntryID(entryID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntry(entry))
}

func (h *Handler) HandleRange(w http.ResponseWriter, r *http.Request) {
	startID, err := strconv.ParseUint(r.URL.Query().Get("start"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "start must be a positive integer"))
		return
	}
	endID, err := strconv.ParseUint(r.URL.Query().Get("end"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "end must be a positive integer"))
		return
	}

	entries, err := h.service.Range(r.Context(), id.AuditEntryID(startID), id.AuditEntryID(endID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

func (h *Handler) HandleListByActor(w http.ResponseWriter, r *http.Request) {
	actor, err := id.ParsePrincipalID(chi.URLParam(r, "actorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.ListByActor(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}
