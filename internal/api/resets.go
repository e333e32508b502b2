package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/mail"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// ResetsHandler handles password reset endpoints.
type ResetsHandler struct {
	DB      *sql.DB
	TTL     time.Duration
	Mailer  mail.Sender
	BaseURL string
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// Request handles POST /resets/request. The response does not reveal whether
// the account exists.
func (h *ResetsHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Email == "" {
		jsonError(w, http.StatusBadRequest, "email required")
		return
	}

	accepted := map[string]string{"message": "if the account exists, a reset code was sent"}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		slog.Error("failed to load user", "error", err)
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}
	if user == nil {
		slog.Warn("password reset for unknown email", "email", req.Email, "remote", r.RemoteAddr)
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}

	reset, err := store.CreatePasswordReset(r.Context(), h.DB, user.UUID, h.TTL)
	if err != nil {
		slog.Error("failed to create password reset", "error", err)
		jsonResponse(w, http.StatusAccepted, accepted)
		return
	}

	if err := h.Mailer.Send(r.Context(), mail.PasswordReset(user.Email, h.BaseURL, reset.Code)); err != nil {
		slog.Error("failed to send reset mail", "user", user.Email, "error", err)
	} else {
		slog.Info("password reset requested", "user", user.Email)
	}
	jsonResponse(w, http.StatusAccepted, accepted)
}

// Confirm handles POST /resets/.
func (h *ResetsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		jsonError(w, http.StatusBadRequest, "code required")
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

	userID, err := store.ConsumePasswordReset(r.Context(), h.DB, req.Code, hash)
	if err != nil {
		storeError(w, err, "reset password")
		return
	}

	slog.Info("password reset completed", "user", userID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
