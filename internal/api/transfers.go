package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mzidar/numizmat/internal/model"
	"github.com/mzidar/numizmat/internal/store"
)

// TransfersHandler handles the transfer lifecycle endpoints.
type TransfersHandler struct {
	DB *sql.DB
}

type createTransferRequest struct {
	SourceID      int64  `json:"source_id"`
	DestinationID int64  `json:"destination_id"`
	CoinID        int64  `json:"coin_id"`
	Comment       string `json:"comment"`
}

// Create handles POST /api/transfers (admin only, acting on behalf of the
// source owner).
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	var req createTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceID <= 0 || req.DestinationID <= 0 || req.CoinID <= 0 {
		jsonError(w, http.StatusBadRequest, "source_id, destination_id and coin_id must be positive")
		return
	}
	if len(req.Comment) > 100 {
		jsonError(w, http.StatusBadRequest, "comment too long (at most 100 characters)")
		return
	}

	transfer, err := store.CreateTransfer(r.Context(), h.DB,
		p.AccountID, req.SourceID, req.DestinationID, req.CoinID, req.Comment)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("transfer created",
		"transfer", transfer.ID, "coin", transfer.CoinID,
		"source", transfer.SourceID, "destination", transfer.DestinationID,
		"creator", p.Name)
	jsonResponse(w, http.StatusCreated, transfer)
}

// List handles GET /api/transfers. Standard principals only see active
// transfers addressed to them; admins see all active transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	transfers, err := store.ListTransfers(r.Context(), h.DB, store.ActiveVisibleTo(p))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if transfers == nil {
		transfers = []*model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Get handles GET /api/transfers/{id}. Parties to a transfer (and admins)
// may read it even after it closed.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	transfer, err := store.GetTransfer(r.Context(), h.DB, id, store.PartyTo(p))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, transfer)
}

// Approve handles POST /api/transfers/{id}/approve.
func (h *TransfersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	transfer, err := store.ApproveTransfer(r.Context(), h.DB, p, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("transfer approved",
		"transfer", transfer.ID, "coin", transfer.CoinID,
		"new_owner", transfer.DestinationID, "by", p.Name)
	jsonResponse(w, http.StatusOK, transfer)
}

// Decline handles POST /api/transfers/{id}/decline.
func (h *TransfersHandler) Decline(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	transfer, err := store.DeclineTransfer(r.Context(), h.DB, p, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("transfer declined", "transfer", transfer.ID, "by", p.Name)
	jsonResponse(w, http.StatusOK, transfer)
}
