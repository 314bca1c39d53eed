package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/mzidar/numizmat/internal/model"
	"github.com/mzidar/numizmat/internal/store"
)

// CatalogHandler serves one of the four catalog reference tables. The same
// handler wires coin types, currencies, mints and issuing states; only the
// table descriptor differs.
type CatalogHandler struct {
	DB    *sql.DB
	Table store.Table[*model.CatalogEntry]
}

// List handles GET /api/{catalog}.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := store.List(r.Context(), h.DB, h.Table)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.CatalogEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Get handles GET /api/{catalog}/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := store.Get(r.Context(), h.DB, h.Table, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Create handles POST /api/{catalog} (admin only).
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	entry, err := store.CreateCatalogEntry(r.Context(), h.DB, h.Table)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, entry)
}

// Delete handles DELETE /api/{catalog}/{id} (admin only).
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := store.SoftDelete(r.Context(), h.DB, h.Table, id); err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "deleted"})
}
