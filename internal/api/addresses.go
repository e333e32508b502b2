package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// AddressesHandler handles shipping address endpoints.
type AddressesHandler struct {
	DB *sql.DB
}

type addressRequest struct {
	User         string `json:"user"`
	Nation       string `json:"nation"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	LocalAddress string `json:"local_address"`
	Phone        string `json:"phone"`
}

func (req *addressRequest) address() model.Address {
	return model.Address{
		UserUUID:     req.User,
		Nation:       req.Nation,
		City:         req.City,
		PostalCode:   req.PostalCode,
		LocalAddress: req.LocalAddress,
		Phone:        req.Phone,
	}
}

// List handles GET /addresses/. Admins see every address and may filter with
// the user query parameter.
func (h *AddressesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	userID := claims.UserUUID
	if isAdmin(claims) {
		userID = r.URL.Query().Get("user")
	}

	addresses, err := store.ListAddresses(r.Context(), h.DB, userID)
	if err != nil {
		storeError(w, err, "list addresses")
		return
	}
	if addresses == nil {
		addresses = []model.Address{}
	}
	jsonResponse(w, http.StatusOK, addresses)
}

// Create handles POST /addresses/. The address belongs to the caller unless
// an admin names another user.
func (h *AddressesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req addressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.User == "" {
		req.User = claims.UserUUID
	}
	if !canAccess(claims, req.User) {
		jsonError(w, http.StatusForbidden, "addresses can only be added to your own account")
		return
	}

	a, err := store.CreateAddress(r.Context(), h.DB, req.address())
	if err != nil {
		storeError(w, err, "create address")
		return
	}
	jsonResponse(w, http.StatusCreated, a)
}

func (h *AddressesHandler) visibleAddress(w http.ResponseWriter, r *http.Request) *model.Address {
	a, err := store.GetAddress(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get address")
		return nil
	}
	if a == nil || !canAccess(GetClaims(r.Context()), a.UserUUID) {
		jsonError(w, http.StatusNotFound, "address not found")
		return nil
	}
	return a
}

// Get handles GET /addresses/{id}.
func (h *AddressesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if a := h.visibleAddress(w, r); a != nil {
		jsonResponse(w, http.StatusOK, a)
	}
}

// Update handles PUT /addresses/{id}.
func (h *AddressesHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.visibleAddress(w, r)
	if existing == nil {
		return
	}

	var req addressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User != "" && req.User != existing.UserUUID {
		jsonError(w, http.StatusBadRequest, "address owner cannot be changed")
		return
	}

	a, err := store.UpdateAddress(r.Context(), h.DB, existing.UUID, req.address())
	if err != nil {
		storeError(w, err, "update address")
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// Delete handles DELETE /addresses/{id}.
func (h *AddressesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.visibleAddress(w, r)
	if existing == nil {
		return
	}

	if err := store.DeleteAddress(r.Context(), h.DB, existing.UUID); err != nil {
		storeError(w, err, "delete address")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
