package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/trgovina/internal/mail"
	"github.com/erazemk/trgovina/internal/metrics"
	"github.com/erazemk/trgovina/internal/model"
)

// Options holds router settings beyond the database and signing secret.
type Options struct {
	TokenTTL time.Duration
	ResetTTL time.Duration
	Mailer   mail.Sender
	BaseURL  string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	if opts.Mailer == nil {
		opts.Mailer = mail.LogSender{}
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, TokenTTL: opts.TokenTTL}
	ordersHandler := &OrdersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	picturesHandler := &PicturesHandler{DB: db}
	usersHandler := &UsersHandler{DB: db}
	addressesHandler := &AddressesHandler{DB: db}
	favoritesHandler := &FavoritesHandler{DB: db}
	resetsHandler := &ResetsHandler{DB: db, TTL: opts.ResetTTL, Mailer: opts.Mailer, BaseURL: opts.BaseURL}

	authMW := AuthMiddleware(db, jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /users/{$}", usersHandler.Register)
	mux.HandleFunc("POST /resets/request", resetsHandler.Request)
	mux.HandleFunc("POST /resets/{$}", resetsHandler.Confirm)
	mux.HandleFunc("GET /healthz", Healthz(db))
	mux.Handle("GET /metrics", metrics.Handler())

	// Session.
	mux.Handle("POST /auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /auth/password", authed(authHandler.ChangePassword))

	// Orders: users see and change their own, admins everything.
	mux.Handle("GET /orders/{$}", authed(ordersHandler.List))
	mux.Handle("POST /orders/{$}", authed(ordersHandler.Create))
	mux.Handle("GET /orders/{id}", authed(ordersHandler.Get))
	mux.Handle("PUT /orders/{id}", authed(ordersHandler.Update))
	mux.Handle("DELETE /orders/{id}", authed(ordersHandler.Delete))

	// Items: public read, admin write.
	mux.HandleFunc("GET /items/{$}", itemsHandler.List)
	mux.HandleFunc("GET /items/{id}", itemsHandler.Get)
	mux.Handle("POST /items/{$}", admin(itemsHandler.Create))
	mux.Handle("PUT /items/{id}", admin(itemsHandler.Update))
	mux.Handle("DELETE /items/{id}", admin(itemsHandler.Delete))

	// Pictures.
	mux.HandleFunc("GET /items/{id}/pictures", picturesHandler.List)
	mux.Handle("POST /items/{id}/pictures", admin(picturesHandler.Upload))
	mux.HandleFunc("GET /pictures/{id}", picturesHandler.Get)
	mux.Handle("DELETE /pictures/{id}", admin(picturesHandler.Delete))

	// Users: admin lists, self or admin for the rest.
	mux.Handle("GET /users/{$}", admin(usersHandler.List))
	mux.Handle("GET /users/{id}", authed(usersHandler.Get))
	mux.Handle("PUT /users/{id}", authed(usersHandler.Update))
	mux.Handle("DELETE /users/{id}", authed(usersHandler.Delete))

	// Addresses.
	mux.Handle("GET /addresses/{$}", authed(addressesHandler.List))
	mux.Handle("POST /addresses/{$}", authed(addressesHandler.Create))
	mux.Handle("GET /addresses/{id}", authed(addressesHandler.Get))
	mux.Handle("PUT /addresses/{id}", authed(addressesHandler.Update))
	mux.Handle("DELETE /addresses/{id}", authed(addressesHandler.Delete))

	// Favorites.
	mux.Handle("GET /favorites/{$}", authed(favoritesHandler.List))
	mux.Handle("POST /favorites/{$}", authed(favoritesHandler.Add))
	mux.Handle("DELETE /favorites/{item_id}", authed(favoritesHandler.Remove))

	return metrics.Middleware(mux)
}
