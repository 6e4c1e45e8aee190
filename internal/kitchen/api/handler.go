package api

import (
	"encoding/json"
	"net/http"

	"ms-tableside/internal/kitchen"
	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/logger"
	"ms-tableside/internal/utils"
)

type Handler struct {
	Projection *kitchen.Projection
	Logger     *logger.Logger
}

func NewHandler(projection *kitchen.Projection, log *logger.Logger) *Handler {
	return &Handler{Projection: projection, Logger: log}
}

func (h *Handler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.Projection.ActiveOrders(r.Context())
	if err != nil {
		h.writeError(w, "Could not load kitchen orders", err)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) ExpoTickets(w http.ResponseWriter, r *http.Request) {
	result, err := h.Projection.ExpoTickets(r.Context())
	if err != nil {
		h.writeError(w, "Could not load expo tickets", err)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) TogoTickets(w http.ResponseWriter, r *http.Request) {
	result, err := h.Projection.TogoTickets(r.Context())
	if err != nil {
		h.writeError(w, "Could not load togo tickets", err)
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	status := lifecycle.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("KITCHEN", message+": "+err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err.Error()))
}
