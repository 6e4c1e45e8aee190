package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-tableside/internal/auth"
	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/logger"
	"ms-tableside/internal/models"
	"ms-tableside/internal/orders"
	"ms-tableside/internal/sse"
	"ms-tableside/internal/utils"
)

type Handler struct {
	Service *orders.Service
	Emitter *sse.Emitter
	Logger  *logger.Logger
}

func NewHandler(service *orders.Service, emitter *sse.Emitter, log *logger.Logger) *Handler {
	return &Handler{Service: service, Emitter: emitter, Logger: log}
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		Items         []models.CartItem `json:"items"`
		CustomerEmail string            `json:"customerEmail"`
		CustomerName  string            `json:"customerName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.CustomerName == "" {
		req.CustomerName = identity.DisplayName
	}

	order, err := h.Service.CreateFromCart(r.Context(), identity.UserID, req.CustomerEmail, req.Items, req.CustomerName)
	if err != nil {
		h.writeError(w, "Could not place order", err)
		return
	}

	h.Logger.LogOrder("CREATE", order.ID, "pickup code "+order.PickupCode)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.loadOwned(w, r)
	if err != nil {
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// GetPickupQR renders the order's pickup code as PNG.
func (h *Handler) GetPickupQR(w http.ResponseWriter, r *http.Request) {
	order, err := h.loadOwned(w, r)
	if err != nil {
		return
	}

	png, err := h.Service.PickupQR(order)
	if err != nil {
		h.writeError(w, "Could not render QR code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	result, err := h.Service.ListForCustomer(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "Could not list orders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListActive(r.Context())
	if err != nil {
		h.writeError(w, "Could not list active orders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListAll(r.Context())
	if err != nil {
		h.writeError(w, "Could not list orders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.Service.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeError(w, "Could not update order status", err)
		return
	}

	h.Logger.LogOrder("STATUS", orderID, string(req.Status))
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	itemID := chi.URLParam(r, "itemId")

	var req struct {
		Status   models.ItemStatus `json:"status"`
		Override bool              `json:"override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		order *models.Order
		err   error
	)
	if req.Override {
		order, err = h.Service.SetItemStatusOverride(r.Context(), orderID, itemID, req.Status)
	} else {
		order, err = h.Service.SetItemStatus(r.Context(), orderID, itemID, req.Status)
	}
	if err != nil {
		h.writeError(w, "Could not update item status", err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// StreamOrder pushes one order's snapshot on every change.
func (h *Handler) StreamOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.loadOwned(w, r)
	if err != nil {
		return
	}

	sse.Stream(w, r, h.Emitter, sse.KeyOrder(order.ID), func(ctx context.Context) (interface{}, error) {
		return h.Service.Get(ctx, order.ID)
	})
}

// StreamMine pushes the caller's active orders. The initial snapshot
// comes from the same active-only set the engine emits after each write,
// so an order never appears in one snapshot and vanishes from the next
// without a change.
func (h *Handler) StreamMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	sse.Stream(w, r, h.Emitter, sse.KeyCustomerOrders(identity.UserID), func(ctx context.Context) (interface{}, error) {
		return h.Service.ListActiveForCustomer(ctx, identity.UserID)
	})
}

// StreamActive pushes all active pickup orders for the kitchen board.
func (h *Handler) StreamActive(w http.ResponseWriter, r *http.Request) {
	sse.Stream(w, r, h.Emitter, sse.KeyActiveOrders, func(ctx context.Context) (interface{}, error) {
		return h.Service.ListActive(ctx)
	})
}

// loadOwned fetches the order and enforces that customers only reach
// their own orders. Staff, expo, and admin see everything.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Order, error) {
	order, err := h.Service.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, "Could not get order", err)
		return nil, err
	}

	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return nil, lifecycle.ErrInvalidArgument
	}
	if !identity.CanActAs(auth.RoleStaff, auth.RoleExpo) && order.CustomerID != identity.UserID {
		http.Error(w, "order belongs to another customer", http.StatusForbidden)
		return nil, lifecycle.ErrInvalidArgument
	}

	return order, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	status := lifecycle.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("ORDER", message+": "+err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err.Error()))
}
