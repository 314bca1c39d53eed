package api

import (
	"database/sql"
	"net/http"

	"github.com/mzidar/numizmat/internal/store"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	accountsHandler := &AccountsHandler{DB: db}
	coinsHandler := &CoinsHandler{DB: db}
	transfersHandler := &TransfersHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)

	// Public: login, health, metrics.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", MetricsHandler())

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Accounts (admin only).
	mux.Handle("GET /api/accounts", authMW(RequireAdmin(http.HandlerFunc(accountsHandler.List))))
	mux.Handle("POST /api/accounts", authMW(RequireAdmin(http.HandlerFunc(accountsHandler.Create))))
	mux.Handle("GET /api/accounts/{id}", authMW(RequireAdmin(http.HandlerFunc(accountsHandler.Get))))
	mux.Handle("PUT /api/accounts/{id}/password", authMW(RequireAdmin(http.HandlerFunc(accountsHandler.ResetPassword))))
	mux.Handle("DELETE /api/accounts/{id}", authMW(RequireAdmin(http.HandlerFunc(accountsHandler.Delete))))

	// Catalog tables: read (any account), mutate (admin only).
	registerCatalog(mux, authMW, &CatalogHandler{DB: db, Table: store.CoinTypes}, "coin-types")
	registerCatalog(mux, authMW, &CatalogHandler{DB: db, Table: store.Currencies}, "currencies")
	registerCatalog(mux, authMW, &CatalogHandler{DB: db, Table: store.Mints}, "mints")
	registerCatalog(mux, authMW, &CatalogHandler{DB: db, Table: store.IssuingStates}, "issuing-states")

	// Coins: owner-scoped CRUD for standard accounts, full access for admins.
	mux.Handle("GET /api/coins", authMW(http.HandlerFunc(coinsHandler.List)))
	mux.Handle("POST /api/coins", authMW(http.HandlerFunc(coinsHandler.Create)))
	mux.Handle("GET /api/coins/export", authMW(http.HandlerFunc(coinsHandler.Export)))
	mux.Handle("GET /api/coins/{id}", authMW(http.HandlerFunc(coinsHandler.Get)))
	mux.Handle("PUT /api/coins/{id}", authMW(http.HandlerFunc(coinsHandler.Update)))
	mux.Handle("DELETE /api/coins/{id}", authMW(http.HandlerFunc(coinsHandler.Delete)))
	mux.Handle("PUT /api/coins/{id}/image", authMW(http.HandlerFunc(coinsHandler.UploadImage)))
	mux.Handle("GET /api/coins/{id}/image", authMW(http.HandlerFunc(coinsHandler.GetImage)))
	mux.Handle("GET /api/coins/{id}/history", authMW(http.HandlerFunc(coinsHandler.GetHistory)))

	// Transfers: create is admin-only; approve/decline are scoped to the
	// destination by the visibility filtration.
	mux.Handle("POST /api/transfers", authMW(RequireAdmin(http.HandlerFunc(transfersHandler.Create))))
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("GET /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("POST /api/transfers/{id}/approve", authMW(http.HandlerFunc(transfersHandler.Approve)))
	mux.Handle("POST /api/transfers/{id}/decline", authMW(http.HandlerFunc(transfersHandler.Decline)))

	return MetricsMiddleware(mux, mux)
}

func registerCatalog(mux *http.ServeMux, authMW func(http.Handler) http.Handler, h *CatalogHandler, path string) {
	mux.Handle("GET /api/"+path, authMW(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/"+path+"/{id}", authMW(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/"+path, authMW(RequireAdmin(http.HandlerFunc(h.Create))))
	mux.Handle("DELETE /api/"+path+"/{id}", authMW(RequireAdmin(http.HandlerFunc(h.Delete))))
}
