package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/example/game-economy/internal/api/middleware"
	"github.com/example/game-economy/internal/auth"
)

// NewCatalogRouter wires the catalog service routes. Reads are open;
// mutations require an admin token.
func NewCatalogRouter(h *CatalogHandlers, tokens *auth.TokenService) *chi.Mux {
	r := newRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/token", h.Token)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Get("/{id}", h.GetItem)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(tokens))
				r.Post("/", h.CreateItem)
				r.Put("/{id}", h.UpdateItem)
				r.Delete("/{id}", h.DeleteItem)
			})
		})
	})

	return r
}

// NewInventoryRouter wires the inventory service routes.
func NewInventoryRouter(h *InventoryHandlers) *chi.Mux {
	r := newRouter()

	r.Route("/v1/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.GrantItems)
	})

	return r
}

func newRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
