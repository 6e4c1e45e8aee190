package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-tableside/internal/auth"
	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/logger"
	"ms-tableside/internal/models"
	"ms-tableside/internal/sse"
	"ms-tableside/internal/tickets"
	"ms-tableside/internal/utils"
)

type Handler struct {
	Service *tickets.Service
	Emitter *sse.Emitter
	Logger  *logger.Logger
}

func NewHandler(service *tickets.Service, emitter *sse.Emitter, log *logger.Logger) *Handler {
	return &Handler{Service: service, Emitter: emitter, Logger: log}
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind         models.TicketKind `json:"kind"`
		TableNumber  int               `json:"tableNumber"`
		CustomerName string            `json:"customerName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	identity, _ := auth.IdentityFrom(r.Context())
	ticket, err := h.Service.Create(r.Context(), req.Kind, req.TableNumber, req.CustomerName, identity.UserID, identity.DisplayName)
	if err != nil {
		h.writeError(w, "Could not create ticket", err)
		return
	}

	h.Logger.LogTicket("CREATE", ticket.ID, string(ticket.Kind))
	h.writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Service.Get(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, "Could not get ticket", err)
		return
	}
	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) ListForTable(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := tableNumberParam(r)
	if err != nil {
		h.writeError(w, "Invalid table number", err)
		return
	}

	open, err := h.Service.ListOpenForTable(r.Context(), tableNumber)
	if err != nil {
		h.writeError(w, "Could not list tickets", err)
		return
	}
	h.writeJSON(w, http.StatusOK, open)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	result, err := h.Service.ListForStaff(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "Could not list tickets", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListTogo(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListOpenTogo(r.Context())
	if err != nil {
		h.writeError(w, "Could not list togo tickets", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	var req models.CartItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	identity, _ := auth.IdentityFrom(r.Context())
	ticket, err := h.Service.AddItem(r.Context(), ticketID, req, identity.UserID)
	if err != nil {
		h.writeError(w, "Could not add item", err)
		return
	}

	h.Logger.LogTicket("ADD_ITEM", ticketID, req.MenuItemID)
	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	itemID := chi.URLParam(r, "itemId")

	ticket, err := h.Service.RemoveItem(r.Context(), ticketID, itemID)
	if err != nil {
		h.writeError(w, "Could not remove item", err)
		return
	}

	h.Logger.LogTicket("REMOVE_ITEM", ticketID, itemID)
	h.writeJSON(w, http.StatusOK, ticket)
}

// RemoveItemAt removes by list position, kept for clients that predate
// stable item IDs.
func (h *Handler) RemoveItemAt(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid item index", http.StatusBadRequest)
		return
	}

	ticket, err := h.Service.RemoveItemAt(r.Context(), ticketID, index)
	if err != nil {
		h.writeError(w, "Could not remove item", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	itemID := chi.URLParam(r, "itemId")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.Service.SetItemQuantity(r.Context(), ticketID, itemID, req.Quantity)
	if err != nil {
		h.writeError(w, "Could not update quantity", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
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
		ticket *models.Ticket
		err    error
	)
	if req.Override {
		ticket, err = h.Service.SetItemStatusOverride(r.Context(), ticketID, itemID, req.Status)
	} else {
		ticket, err = h.Service.SetItemStatus(r.Context(), ticketID, itemID, req.Status)
	}
	if err != nil {
		h.writeError(w, "Could not update item status", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) SendToKitchen(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	ticket, err := h.Service.SendToKitchen(r.Context(), ticketID)
	if err != nil {
		h.writeError(w, "Could not send ticket to kitchen", err)
		return
	}

	h.Logger.LogTicket("SEND", ticketID, "sent to kitchen")
	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) CloseTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	ticket, err := h.Service.Close(r.Context(), ticketID)
	if err != nil {
		h.writeError(w, "Could not close ticket", err)
		return
	}

	h.Logger.LogTicket("CLOSE", ticketID, "ticket closed")
	h.writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	if err := h.Service.Delete(r.Context(), ticketID); err != nil {
		h.writeError(w, "Could not delete ticket", err)
		return
	}

	h.Logger.LogTicket("DELETE", ticketID, "ticket deleted")
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Ticket deleted", nil))
}

// StreamTicket pushes a ticket snapshot on every mutation.
func (h *Handler) StreamTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	sse.Stream(w, r, h.Emitter, sse.KeyTicket(ticketID), func(ctx context.Context) (interface{}, error) {
		return h.Service.Get(ctx, ticketID)
	})
}

// StreamTableTickets pushes the open tickets of one table.
func (h *Handler) StreamTableTickets(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := tableNumberParam(r)
	if err != nil {
		h.writeError(w, "Invalid table number", err)
		return
	}

	sse.Stream(w, r, h.Emitter, sse.KeyTableTickets(tableNumber), func(ctx context.Context) (interface{}, error) {
		return h.Service.ListOpenForTable(ctx, tableNumber)
	})
}

// StreamTogo pushes the open to-go queue.
func (h *Handler) StreamTogo(w http.ResponseWriter, r *http.Request) {
	sse.Stream(w, r, h.Emitter, sse.KeyTogoTickets, func(ctx context.Context) (interface{}, error) {
		return h.Service.ListOpenTogo(ctx)
	})
}

// StreamExpo pushes open table tickets already handed to the kitchen.
func (h *Handler) StreamExpo(w http.ResponseWriter, r *http.Request) {
	sse.Stream(w, r, h.Emitter, sse.KeyExpoTickets, func(ctx context.Context) (interface{}, error) {
		return h.Service.ListSentToExpo(ctx)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	status := lifecycle.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("TICKET", message+": "+err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err.Error()))
}

func tableNumberParam(r *http.Request) (int, error) {
	tableNumber, err := strconv.Atoi(chi.URLParam(r, "tableNumber"))
	if err != nil || tableNumber < 1 {
		return 0, lifecycle.ErrInvalidArgument
	}
	return tableNumber, nil
}
