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
	"ms-tableside/internal/tables"
	"ms-tableside/internal/utils"
)

type Handler struct {
	Service *tables.Service
	Emitter *sse.Emitter
	Logger  *logger.Logger
}

func NewHandler(service *tables.Service, emitter *sse.Emitter, log *logger.Logger) *Handler {
	return &Handler{Service: service, Emitter: emitter, Logger: log}
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	var (
		result []models.Table
		err    error
	)

	if staffID := r.URL.Query().Get("staffId"); staffID != "" {
		result, err = h.Service.ListForStaff(r.Context(), staffID)
	} else {
		result, err = h.Service.ListAll(r.Context())
	}
	if err != nil {
		h.writeError(w, "Could not list tables", err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := tableNumberParam(r)
	if err != nil {
		h.writeError(w, "Invalid table number", err)
		return
	}

	table, err := h.Service.Get(r.Context(), tableNumber)
	if err != nil {
		h.writeError(w, "Could not get table", err)
		return
	}

	h.writeJSON(w, http.StatusOK, table)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := tableNumberParam(r)
	if err != nil {
		h.writeError(w, "Invalid table number", err)
		return
	}

	var req struct {
		Status   models.TableStatus `json:"status"`
		TicketID *string            `json:"currentTicketId"`
		StaffID  *string            `json:"assignedStaffId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.StaffID == nil {
		if identity, ok := auth.IdentityFrom(r.Context()); ok && req.Status == models.TableOccupied {
			req.StaffID = &identity.UserID
		}
	}

	if err := h.Service.SetStatus(r.Context(), tableNumber, req.Status, req.TicketID, req.StaffID); err != nil {
		h.writeError(w, "Could not update table", err)
		return
	}

	h.Logger.LogTable("STATUS", tableNumber, string(req.Status))
	table, err := h.Service.Get(r.Context(), tableNumber)
	if err != nil {
		h.writeError(w, "Could not read table back", err)
		return
	}
	h.writeJSON(w, http.StatusOK, table)
}

func (h *Handler) ClearTable(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := tableNumberParam(r)
	if err != nil {
		h.writeError(w, "Invalid table number", err)
		return
	}

	if err := h.Service.Clear(r.Context(), tableNumber); err != nil {
		h.writeError(w, "Could not clear table", err)
		return
	}

	h.Logger.LogTable("CLEAR", tableNumber, "table cleared")
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Table cleared", nil))
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.Service.ReconcileOrphans(r.Context())
	if err != nil {
		h.writeError(w, "Reconcile failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Reconcile complete", map[string]interface{}{
		"clearedTables": cleared,
	}))
}

// StreamTables pushes the full floor snapshot on every table change.
func (h *Handler) StreamTables(w http.ResponseWriter, r *http.Request) {
	sse.Stream(w, r, h.Emitter, sse.KeyAllTables, func(ctx context.Context) (interface{}, error) {
		return h.Service.ListAll(ctx)
	})
}

// StreamTable pushes one table's snapshot on every change to it.
func (h *Handler) StreamTable(w http.ResponseWriter, r *http.Request) {
	tableNumber, err := tableNumberParam(r)
	if err != nil {
		h.writeError(w, "Invalid table number", err)
		return
	}

	sse.Stream(w, r, h.Emitter, sse.KeyTable(tableNumber), func(ctx context.Context) (interface{}, error) {
		return h.Service.Get(ctx, tableNumber)
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
		h.Logger.Error("TABLE", message+": "+err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err.Error()))
}

func tableNumberParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "tableNumber")
	tableNumber, err := strconv.Atoi(raw)
	if err != nil || tableNumber < 1 {
		return 0, lifecycle.ErrInvalidArgument
	}
	return tableNumber, nil
}
