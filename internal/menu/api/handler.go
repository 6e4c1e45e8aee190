package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-tableside/internal/lifecycle"
	"ms-tableside/internal/menu"
	"ms-tableside/internal/utils"
)

type Handler struct {
	DB *menu.DB
}

func NewHandler(db *menu.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.DB.ListAvailable(r.Context())
	if err != nil {
		h.writeError(w, "Could not load menu", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.DB.GetMenuItem(r.Context(), chi.URLParam(r, "menuItemId"))
	if err != nil {
		h.writeError(w, "Could not get menu item", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(lifecycle.HTTPStatus(err))
	json.NewEncoder(w).Encode(utils.ErrorResponse(message, err.Error()))
}
