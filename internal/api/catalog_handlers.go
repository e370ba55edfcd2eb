package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/game-economy/internal/auth"
	"github.com/example/game-economy/internal/catalog"
)

// CatalogHandlers exposes the catalog mutation pipeline over HTTP.
type CatalogHandlers struct {
	svc       *catalog.Service
	tokens    *auth.TokenService
	adminUser string
	adminHash string
}

func NewCatalogHandlers(svc *catalog.Service, tokens *auth.TokenService, adminUser, adminHash string) *CatalogHandlers {
	return &CatalogHandlers{
		svc:       svc,
		tokens:    tokens,
		adminUser: adminUser,
		adminHash: adminHash,
	}
}

func (h *CatalogHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *CatalogHandlers) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

func (h *CatalogHandlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Create(r.Context(), req.Name, req.Description, req.Price)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/items/"+item.ID)
	respondJSON(w, http.StatusCreated, item)
}

func (h *CatalogHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Description, req.Price)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *CatalogHandlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token issues an admin access token against the bootstrap credentials.
func (h *CatalogHandlers) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username != h.adminUser || !auth.CheckPassword(req.Password, h.adminHash) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.tokens.Generate(req.Username, auth.RoleAdmin)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_at":   expiresAt,
	})
}
