package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/mzidar/numizmat/internal/model"
	"github.com/mzidar/numizmat/internal/store"
)

// AccountsHandler handles account management endpoints (admin only).
type AccountsHandler struct {
	DB *sql.DB
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

const maxNameLength = 30

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := store.ListAccounts(r.Context(), h.DB)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if accounts == nil {
		accounts = []*model.Account{}
	}
	jsonResponse(w, http.StatusOK, accounts)
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || len(req.Name) > maxNameLength {
		jsonError(w, http.StatusBadRequest, "name required (at most 30 characters)")
		return
	}
	if req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	account, err := store.CreateAccount(r.Context(), h.DB, req.Name, string(hash), req.IsAdmin)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("account created", "name", account.Name, "admin", account.IsAdmin)
	jsonResponse(w, http.StatusCreated, account)
}

// Get handles GET /api/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := store.GetAccount(r.Context(), h.DB, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, account)
}

// ResetPassword handles PUT /api/accounts/{id}/password.
func (h *AccountsHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateAccountPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/accounts/{id}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := store.DeleteAccount(r.Context(), h.DB, id); err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "account deactivated"})
}
