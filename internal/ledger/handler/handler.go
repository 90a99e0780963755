// Package handler exposes the fragment ledger over HTTP. Initialization is
// admin-only; the balance and valuation queries are read-only.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"provena/internal/registry/ports"
	id "provena/pkg/domain"
	dErrors "provena/pkg/domain-errors"
	"provena/pkg/platform/httputil"
	"provena/pkg/requestcontext"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	InitializeFragments(ctx context.Context, itemID id.ItemID, totalFragments uint64, initialHolder id.PrincipalID) error
	BalanceOf(ctx context.Context, itemID id.ItemID, principal id.PrincipalID) (uint64, error)
	HolderCount(ctx context.Context, itemID id.ItemID) (uint64, error)
	FragmentValue(ctx context.Context, itemID id.ItemID, fragmentCount, totalValue uint64) (uint64, error)
}

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service   Service
	valuation ports.Valuation
	logger    *slog.Logger
}

// New constructs a ledger handler. valuation may be nil when no valuation
// collaborator is deployed; fragment value queries then require an explicit
// total_value parameter.
func New(service Service, valuation ports.Valuation, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		valuation: valuation,
		logger:    logger,
	}
}

// RegisterAdmin mounts the mutating endpoints. Mount behind the admin token
// middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/ledger/items/{itemID}/fragments", h.HandleInitialize)
}

// Register mounts the read-only endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/items/{itemID}/balances/{principalID}", h.HandleBalance)
	r.Get("/ledger/items/{itemID}/holders/count", h.HandleHolderCount)
	r.Get("/ledger/items/{itemID}/fragment-value", h.HandleFragmentValue)
}

func itemFromPath(r *http.Request) (id.ItemID, error) {
	return id.ParseItemID(chi.URLParam(r, "itemID"))
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID, err := itemFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.InitializeFragments(ctx, itemID, req.TotalFragments, req.Holder()); err != nil {
		h.logger.ErrorContext(ctx, "fragment initialization failed",
			"request_id", requestcontext.RequestID(ctx),
			"item_id", itemID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "fragments initialized",
		"request_id", requestcontext.RequestID(ctx),
		"item_id", itemID,
		"total_fragments", req.TotalFragments,
	)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	principal, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.service.BalanceOf(r.Context(), itemID, principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{
		ItemID:      itemID.String(),
		PrincipalID: principal.String(),
		Balance:     balance,
	})
}

func (h *Handler) HandleHolderCount(w http.ResponseWriter, r *http.Request) {
	itemID, err := itemFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.service.HolderCount(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HolderCountResponse{
		ItemID:      itemID.String(),
		HolderCount: count,
	})
}

// HandleFragmentValue values a holding. The item's total value comes from the
// valuation collaborator when one is configured, otherwise from the caller's
// total_value parameter.
func (h *Handler) HandleFragmentValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID, err := itemFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fragmentCount, err := strconv.ParseUint(r.URL.Query().Get("fragment_count"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "fragment_count must be a non-negative integer"))
		return
	}

	var totalValue uint64
	if h.valuation != nil {
		totalValue, err = h.valuation.CurrentValue(ctx, itemID)
		if err != nil {
			h.logger.ErrorContext(ctx, "valuation lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"item_id", itemID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "valuation lookup failed"))
			return
		}
	} else {
		totalValue, err = strconv.ParseUint(r.URL.Query().Get("total_value"), 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "total_value must be a non-negative integer"))
			return
		}
	}

	value, err := h.service.FragmentValue(ctx, itemID, fragmentCount, totalValue)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FragmentValueResponse{
		ItemID:        itemID.String(),
		FragmentCount: fragmentCount,
		TotalValue:    totalValue,
		Value:         value,
	})
}
