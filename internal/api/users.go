package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// UsersHandler handles account endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type updateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func validateProfile(firstName, lastName, email string) string {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return "first and last name required"
	}
	if err := model.ValidateEmail(model.NormalizeEmail(email)); err != nil {
		return err.Error()
	}
	return ""
}

// Register handles POST /users/. New accounts always get the user role.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateProfile(req.FirstName, req.LastName, req.Email); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.FirstName, req.LastName, req.Email, hash, model.RoleUser)
	if err != nil {
		storeError(w, err, "create user")
		return
	}

	slog.Info("user registered", "user", user.Email)
	jsonResponse(w, http.StatusCreated, user)
}

// List handles GET /users/.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !canAccess(GetClaims(r.Context()), id) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	if !user.Active() {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /users/{id}. Only admins may change roles.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if !canAccess(claims, id) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateProfile(req.FirstName, req.LastName, req.Email); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			jsonError(w, http.StatusBadRequest, "invalid role")
			return
		}
		if !isAdmin(claims) && req.Role != claims.Role {
			jsonError(w, http.StatusForbidden, "only admins can change roles")
			return
		}
		if isAdmin(claims) && claims.UserUUID == id && req.Role != model.RoleAdmin {
			jsonError(w, http.StatusBadRequest, "cannot remove your own admin role")
			return
		}
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, req.FirstName, req.LastName, req.Email)
	if err != nil {
		storeError(w, err, "update user")
		return
	}

	if req.Role != "" && req.Role != user.Role {
		if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
			storeError(w, err, "update user role")
			return
		}
		slog.Info("user role updated", "user", claims.Email, "target_user", user.Email, "new_role", req.Role)
		user.Role = req.Role
	}

	slog.Info("user updated", "user", claims.Email, "target_user", user.Email)
	jsonResponse(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}. The account is disabled, its orders
// stay in place.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if !canAccess(claims, id) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	// An admin cannot lock themselves out.
	if isAdmin(claims) && claims.UserUUID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete user")
		return
	}

	slog.Info("user deleted", "user", claims.Email, "deleted_user", id)
	w.WriteHeader(http.StatusNoContent)
}
