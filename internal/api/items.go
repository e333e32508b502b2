package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// ItemsHandler handles catalog endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type itemRequest struct {
	Name         string           `json:"name"`
	Price        *decimal.Decimal `json:"price"`
	Description  string           `json:"description"`
	Category     string           `json:"category"`
	Availability int              `json:"availability"`
}

func (req *itemRequest) item() model.Item {
	return model.Item{
		Name:         req.Name,
		Price:        *req.Price,
		Description:  req.Description,
		Category:     req.Category,
		Availability: req.Availability,
	}
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (*itemRequest, bool) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.Price == nil {
		jsonError(w, http.StatusBadRequest, "price required")
		return nil, false
	}
	return &req, true
}

// List handles GET /items/. An optional category query parameter filters
// the result.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, r.URL.Query().Get("category"))
	if err != nil {
		storeError(w, err, "list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /items/.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req.item())
	if err != nil {
		storeError(w, err, "create item")
		return
	}

	slog.Info("item created", "user", GetClaims(r.Context()).Email, "item", item.UUID, "name", item.Name)
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, r.PathValue("id"), req.item())
	if err != nil {
		storeError(w, err, "update item")
		return
	}

	slog.Info("item updated", "user", GetClaims(r.Context()).Email, "item", item.UUID)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete item")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Email, "item", id)
	w.WriteHeader(http.StatusNoContent)
}
