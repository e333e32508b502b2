package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware authenticates requests with either a Bearer JWT or HTTP Basic
// email and password, and adds the caller's claims to the context. Tokens
// that were revoked or belong to a disabled account are rejected. The role is
// always taken from the database so role changes apply immediately.
func AuthMiddleware(db *sql.DB, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims *auth.Claims
			var ok bool

			header := r.Header.Get("Authorization")
			switch {
			case strings.HasPrefix(header, "Bearer "):
				claims, ok = bearerClaims(r.Context(), db, secret, strings.TrimPrefix(header, "Bearer "))
			case strings.HasPrefix(header, "Basic "):
				if email, password, found := r.BasicAuth(); found {
					claims, ok = passwordClaims(r.Context(), db, email, password)
				}
			default:
				w.Header().Set("WWW-Authenticate", `Basic realm="trgovina"`)
				jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			if !ok {
				jsonError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerClaims(ctx context.Context, db *sql.DB, secret, tokenStr string) (*auth.Claims, bool) {
	claims, err := auth.ValidateToken(secret, tokenStr)
	if err != nil {
		return nil, false
	}

	revoked, err := store.IsTokenRevoked(ctx, db, claims.ID)
	if err != nil {
		slog.Error("failed to check token revocation", "error", err)
		return nil, false
	}
	if revoked {
		return nil, false
	}

	user, err := store.GetUser(ctx, db, claims.UserUUID)
	if err != nil {
		slog.Error("failed to load token user", "error", err)
		return nil, false
	}
	if !user.Active() {
		return nil, false
	}

	claims.Role = user.Role
	claims.Email = user.Email
	return claims, true
}

func passwordClaims(ctx context.Context, db *sql.DB, email, password string) (*auth.Claims, bool) {
	user, err := store.GetUserByEmail(ctx, db, email)
	if err != nil {
		slog.Error("failed to load user", "error", err)
		return nil, false
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		slog.Warn("basic auth failed", "email", email)
		return nil, false
	}

	return &auth.Claims{UserUUID: user.UUID, Email: user.Email, Role: user.Role}, true
}

// RequireRole returns middleware that checks if the user has at least the given role.
func RequireRole(minimum string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !model.RoleAtLeast(claims.Role, minimum) {
				jsonError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the caller's claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func isAdmin(c *auth.Claims) bool {
	return c != nil && c.Role == model.RoleAdmin
}

// canAccess reports whether the caller may act on a resource owned by ownerID.
func canAccess(c *auth.Claims, ownerID string) bool {
	return isAdmin(c) || (c != nil && c.UserUUID == ownerID)
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
