package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/game-economy/internal/catalog"
	"github.com/example/game-economy/internal/inventory"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps pipeline errors onto the client/server split:
// validation failures and not-found are client results, everything else
// is a server failure the caller may retry. Server failures are logged
// in full but never echoed to the client.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, inventory.ErrInvalidUser),
		errors.Is(err, inventory.ErrInvalidItem),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInsufficientQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrContention):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
