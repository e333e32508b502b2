package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/erazemk/trgovina/internal/metrics"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// OrdersHandler handles order endpoints.
type OrdersHandler struct {
	DB *sql.DB
}

// orderRequest is the body of order create and modify requests. UUID and
// User are only compared against the stored order on modify.
type orderRequest struct {
	UUID  string          `json:"uuid"`
	User  string          `json:"user"`
	Items *model.LineList `json:"items"`
}

// decodeOrderRequest reads a JSON or form-encoded order body.
func decodeOrderRequest(w http.ResponseWriter, r *http.Request) (*orderRequest, error) {
	var req orderRequest

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := r.ParseMultipartForm(maxBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("invalid form body")
		}
		req.UUID = r.PostFormValue("uuid")
		req.User = r.PostFormValue("user")
		if raw, ok := r.PostForm["items"]; ok && len(raw) > 0 {
			var ll model.LineList
			if err := model.ParseLineList(raw[0], &ll); err != nil {
				return nil, err
			}
			req.Items = &ll
		}
		return &req, nil
	}

	if err := decodeJSON(w, r, &req); err != nil {
		return nil, fmt.Errorf("invalid request body: %v", err)
	}
	return &req, nil
}

// rejectionReason labels order rejections for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, store.ErrValidation):
		return "validation"
	case errors.Is(err, store.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, store.ErrInvalidItemReference):
		return "invalid_item"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrOrderNotFound):
		return "order_not_found"
	default:
		return "internal"
	}
}

// recordStockChange counts the units an order change took from and returned
// to stock, per item. A nil order holds no stock.
func recordStockChange(before, after *model.Order) {
	delta := make(map[string]int)
	if before != nil {
		for _, l := range before.Items {
			delta[l.ItemUUID] -= l.Quantity
		}
	}
	if after != nil {
		for _, l := range after.Items {
			delta[l.ItemUUID] += l.Quantity
		}
	}

	for _, d := range delta {
		switch {
		case d > 0:
			metrics.ReservedUnitsTotal.Add(float64(d))
		case d < 0:
			metrics.ReleasedUnitsTotal.Add(float64(-d))
		}
	}
}

// List handles GET /orders/. Admins see every order, users their own.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var orders []model.Order
	var err error
	if isAdmin(claims) {
		orders, err = store.ListOrders(r.Context(), h.DB)
	} else {
		orders, err = store.ListOrdersByUser(r.Context(), h.DB, claims.UserUUID)
	}
	if err != nil {
		storeError(w, err, "list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// visibleOrder loads an order the caller may see. It writes the response and
// returns nil when the order is absent or belongs to someone else.
func (h *OrdersHandler) visibleOrder(w http.ResponseWriter, r *http.Request) *model.Order {
	id := r.PathValue("id")
	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get order")
		return nil
	}
	if order == nil || !canAccess(GetClaims(r.Context()), order.UserUUID) {
		jsonError(w, http.StatusNotFound, "order not found")
		return nil
	}
	return order
}

// Get handles GET /orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if order := h.visibleOrder(w, r); order != nil {
		jsonResponse(w, http.StatusOK, order)
	}
}

// Create handles POST /orders/.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	req, err := decodeOrderRequest(w, r)
	if err != nil {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.User == "" {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, "user required")
		return
	}
	if req.Items == nil {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, "items required")
		return
	}
	if !canAccess(claims, req.User) {
		jsonError(w, http.StatusForbidden, "orders can only be placed for your own account")
		return
	}

	order, err := store.CreateOrder(r.Context(), h.DB, req.User, *req.Items)
	if err != nil {
		metrics.OrderRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		storeError(w, err, "create order")
		return
	}

	metrics.OrdersTotal.WithLabelValues(metrics.OpCreate).Inc()
	recordStockChange(nil, order)
	slog.Info("order created", "user", claims.Email, "order", order.UUID, "total", order.TotalPrice.String())
	jsonResponse(w, http.StatusCreated, order)
}

// Update handles PUT /orders/{id}. Only the item list can change.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	req, err := decodeOrderRequest(w, r)
	if err != nil {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing := h.visibleOrder(w, r)
	if existing == nil {
		metrics.OrderRejectionsTotal.WithLabelValues("order_not_found").Inc()
		return
	}

	if req.UUID != "" && req.UUID != existing.UUID {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, "order id cannot be changed")
		return
	}
	if req.User != "" && req.User != existing.UserUUID {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, "order owner cannot be changed")
		return
	}
	if req.Items == nil {
		metrics.OrderRejectionsTotal.WithLabelValues("validation").Inc()
		jsonError(w, http.StatusBadRequest, "items required")
		return
	}

	order, err := store.UpdateOrder(r.Context(), h.DB, existing.UUID, *req.Items)
	if err != nil {
		metrics.OrderRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		storeError(w, err, "update order")
		return
	}

	metrics.OrdersTotal.WithLabelValues(metrics.OpModify).Inc()
	recordStockChange(existing, order)
	slog.Info("order updated", "user", claims.Email, "order", order.UUID, "total", order.TotalPrice.String())
	jsonResponse(w, http.StatusOK, order)
}

// Delete handles DELETE /orders/{id}.
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	existing := h.visibleOrder(w, r)
	if existing == nil {
		return
	}

	if err := store.DeleteOrder(r.Context(), h.DB, existing.UUID); err != nil {
		storeError(w, err, "delete order")
		return
	}

	metrics.OrdersTotal.WithLabelValues(metrics.OpDelete).Inc()
	recordStockChange(existing, nil)
	slog.Info("order deleted", "user", claims.Email, "order", existing.UUID)
	w.WriteHeader(http.StatusNoContent)
}
