// Package handler exposes the transfer workflow over HTTP. Proposals and
// cancellations come from authenticated principals; approval, rejection, and
// settlement are admin operations.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"provena/internal/transfer"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/httputil"
	"provena/pkg/requestcontext"
)

// Service defines the workflow operations the handler needs.
type Service interface {
	Propose(ctx context.Context, from, to id.PrincipalID, itemID id.ItemID, amount uint64, attestationHash, legalHash string) (id.TransferID, error)
	Approve(ctx context.Context, transferID id.TransferID) error
	Reject(ctx context.Context, transferID id.TransferID, reason string) error
	Cancel(ctx context.Context, transferID id.TransferID) error
	Complete(ctx context.Context, transferID id.TransferID) error
	Status(ctx context.Context, transferID id.TransferID) (transfer.Status, error)
	Elapsed(ctx context.Context, transferID id.TransferID) (time.Duration, error)
	Get(ctx context.Context, transferID id.TransferID) (*transfer.Transfer, error)
	ListByItem(ctx context.Context, itemID id.ItemID) ([]transfer.Transfer, error)
}

// Handler wires transfer endpoints to the workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a transfer handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the authenticated endpoints. Mount behind the bearer token
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transfers", h.HandlePropose)
	r.Post("/transfers/{transferID}/cancel", h.HandleCancel)
	r.Get("/transfers/{transferID}", h.HandleGet)
	r.Get("/transfers/{transferID}/status", h.HandleStatus)
	r.Get("/ledger/items/{itemID}/transfers", h.HandleListByItem)
}

// RegisterAdmin mounts the review and settlement endpoints. Mount behind the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/transfers/{transferID}/approve", h.HandleApprove)
	r.Post("/transfers/{transferID}/reject", h.HandleReject)
	r.Post("/transfers/{transferID}/complete", h.HandleComplete)
}

func transferFromPath(r *http.Request) (id.TransferID, error) {
	raw, err := strconv.ParseUint(chi.URLParam(r, "transferID"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "transfer id must be a positive integer")
	}
	return id.TransferID(raw), nil
}

func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	from := requestcontext.ActorID(ctx)
	if from.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ProposeRequest](w, r, h.logger)
	if !ok {
		return
	}

	transferID, err := h.service.Propose(ctx, from, req.Recipient(), req.Item(), req.Amount, req.ComplianceAttestationHash, req.LegalDocumentHash)
	if err != nil {
		h.logger.ErrorContext(ctx, "transfer proposal failed",
			"request_id", requestID,
			"from", from,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer proposed",
		"request_id", requestID,
		"transfer_id", transferID,
		"from", from,
	)
	httputil.WriteJSON(w, http.StatusCreated, ProposeResponse{TransferID: uint64(transferID)})
}

// HandleCancel lets the proposer withdraw a pending transfer. Only the
// proposing principal may cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transferID, err := transferFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := requestcontext.ActorID(ctx)
	t, err := h.service.Get(ctx, transferID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if t.From != actor {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "only the proposer may cancel"))
		return
	}

	if err := h.service.Cancel(ctx, transferID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approved", h.service.Approve)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "completed", h.service.Complete)
}

// review factors the shared shape of the bodyless admin transitions.
func (h *Handler) review(w http.ResponseWriter, r *http.Request, verb string, op func(context.Context, id.TransferID) error) {
	ctx := r.Context()
	transferID, err := transferFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := op(ctx, transferID); err != nil {
		h.logger.ErrorContext(ctx, "transfer transition failed",
			"request_id", requestcontext.RequestID(ctx),
			"transfer_id", transferID,
			"transition", verb,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer "+verb,
		"request_id", requestcontext.RequestID(ctx),
		"transfer_id", transferID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transferID, err := transferFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Reject(ctx, transferID, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	transferID, err := transferFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	t, err := h.service.Get(r.Context(), transferID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransfer(*t))
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transferID, err := transferFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.service.Status(ctx, transferID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	elapsed, err := h.service.Elapsed(ctx, transferID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		TransferID: uint64(transferID),
		Status:     string(status),
		ElapsedMS:  elapsed.Milliseconds(),
	})
}

func (h *Handler) HandleListByItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	transfers, err := h.service.ListByItem(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		responses = append(responses, FromTransfer(t))
	}
	httputil.WriteJSON(w, http.StatusOK, responses)
}
