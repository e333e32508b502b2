package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// FavoritesHandler handles the caller's favorite items.
type FavoritesHandler struct {
	DB *sql.DB
}

type favoriteRequest struct {
	Item string `json:"item"`
}

// List handles GET /favorites/.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListFavoriteItems(r.Context(), h.DB, GetClaims(r.Context()).UserUUID)
	if err != nil {
		storeError(w, err, "list favorites")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Add handles POST /favorites/.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Item == "" {
		jsonError(w, http.StatusBadRequest, "item required")
		return
	}

	if err := store.AddFavorite(r.Context(), h.DB, GetClaims(r.Context()).UserUUID, req.Item); err != nil {
		storeError(w, err, "add favorite")
		return
	}
	jsonResponse(w, http.StatusCreated, map[string]string{"item": req.Item})
}

// Remove handles DELETE /favorites/{item_id}.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := store.RemoveFavorite(r.Context(), h.DB, GetClaims(r.Context()).UserUUID, r.PathValue("item_id"))
	if err != nil {
		storeError(w, err, "remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
