package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/game-economy/internal/inventory"
)

// InventoryHandlers exposes the inventory read and grant pipelines.
type InventoryHandlers struct {
	svc *inventory.Service
}

func NewInventoryHandlers(svc *inventory.Service) *InventoryHandlers {
	return &InventoryHandlers{svc: svc}
}

func (h *InventoryHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type grantRequest struct {
	UserID        string `json:"user_id"`
	CatalogItemID string `json:"catalog_item_id"`
	Quantity      int64  `json:"quantity"`
}

func (h *InventoryHandlers) GrantItems(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Grant(r.Context(), req.UserID, req.CatalogItemID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}
