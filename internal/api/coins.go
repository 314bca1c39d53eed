package api

import (
	"database/sql"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"github.com/mzidar/numizmat/internal/imaging"
	"github.com/mzidar/numizmat/internal/model"
	"github.com/mzidar/numizmat/internal/store"
)

// CoinsHandler handles coin CRUD, photos and export.
type CoinsHandler struct {
	DB *sql.DB
}

type coinRequest struct {
	Description    string `json:"description"`
	NominalPrice   int64  `json:"nominal_price"`
	ReleaseYear    string `json:"release_year"`
	SerialNumber   string `json:"serial_number"`
	TypeID         int64  `json:"type_id"`
	CurrencyID     int64  `json:"currency_id"`
	MintID         int64  `json:"mint_id"`
	IssuingStateID int64  `json:"issuing_state_id"`
}

func (req *coinRequest) validate() string {
	switch {
	case len(req.Description) > 100:
		return "description too long (at most 100 characters)"
	case req.ReleaseYear == "" || len(req.ReleaseYear) > 4:
		return "release_year required (at most 4 characters)"
	case req.SerialNumber == "" || len(req.SerialNumber) > 30:
		return "serial_number required (at most 30 characters)"
	case req.TypeID <= 0 || req.CurrencyID <= 0 || req.MintID <= 0 || req.IssuingStateID <= 0:
		return "type_id, currency_id, mint_id and issuing_state_id must be positive"
	}
	return ""
}

func (req *coinRequest) fields() store.CoinFields {
	return store.CoinFields{
		Description:    req.Description,
		NominalPrice:   req.NominalPrice,
		ReleaseYear:    req.ReleaseYear,
		SerialNumber:   req.SerialNumber,
		TypeID:         req.TypeID,
		CurrencyID:     req.CurrencyID,
		MintID:         req.MintID,
		IssuingStateID: req.IssuingStateID,
	}
}

// coinColumns is the allowlist for externally supplied filter and order-by
// fields. Raw client strings never reach the query layer.
var coinColumns = map[string]bool{
	"id":               true,
	"owner_id":         true,
	"description":      true,
	"nominal_price":    true,
	"release_year":     true,
	"serial_number":    true,
	"type_id":          true,
	"currency_id":      true,
	"mint_id":          true,
	"issuing_state_id": true,
}

// coinScope returns the base visibility filtration for coins: standard
// principals only see their own, admins see everything.
func coinScope(p model.Principal) []store.Filtration {
	if p.Admin {
		return nil
	}
	return []store.Filtration{store.OwnedBy(p.AccountID)}
}

// parseCoinQuery translates filter and order_by query parameters into
// filtrations. Returns a client error message on invalid input.
func parseCoinQuery(r *http.Request) ([]store.Filtration, string) {
	var fs []store.Filtration

	for column := range coinColumns {
		value := r.URL.Query().Get(column)
		if value == "" {
			continue
		}
		fs = append(fs, store.FieldEquals(column, value))
	}

	orderBy := r.URL.Query().Get("order_by")
	if orderBy == "" {
		return fs, ""
	}
	for part := range strings.SplitSeq(orderBy, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		column := strings.TrimLeft(part, "+-")
		if !coinColumns[column] {
			return nil, "invalid order_by field: " + column
		}
		fs = append(fs, store.OrderBy(column, desc))
	}
	return fs, ""
}

// List handles GET /api/coins.
func (h *CoinsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	fs, errMsg := parseCoinQuery(r)
	if errMsg != "" {
		jsonError(w, http.StatusBadRequest, errMsg)
		return
	}
	fs = append(coinScope(p), fs...)

	coins, err := store.List(r.Context(), h.DB, store.Coins, fs...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if coins == nil {
		coins = []*model.Coin{}
	}
	jsonResponse(w, http.StatusOK, coins)
}

// Create handles POST /api/coins. The caller becomes the owner.
func (h *CoinsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	var req coinRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	coin, err := store.CreateCoin(r.Context(), h.DB, p.AccountID, req.fields())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, coin)
}

// Get handles GET /api/coins/{id}.
func (h *CoinsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid coin id")
		return
	}

	coin, err := store.Get(r.Context(), h.DB, store.Coins, id, coinScope(p)...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, coin)
}

// Update handles PUT /api/coins/{id}.
func (h *CoinsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid coin id")
		return
	}

	var req coinRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	coin, err := store.UpdateCoin(r.Context(), h.DB, id, req.fields(), coinScope(p)...)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, coin)
}

// Delete handles DELETE /api/coins/{id}.
func (h *CoinsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid coin id")
		return
	}

	if err := store.SoftDelete(r.Context(), h.DB, store.Coins, id, coinScope(p)...); err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "coin deleted"})
}

// UploadImage handles PUT /api/coins/{id}/image.
func (h *CoinsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid coin id")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetCoinImage(r.Context(), h.DB, id, processed.Data, processed.MIME, coinScope(p)...); err != nil {
		writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/coins/{id}/image.
func (h *CoinsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid coin id")
		return
	}

	data, mime, err := store.GetCoinImage(r.Context(), h.DB, id, coinScope(p)...)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// GetHistory handles GET /api/coins/{id}/history.
func (h *CoinsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid coin id")
		return
	}

	history, err := store.CoinTransferHistory(r.Context(), h.DB, id, store.PartyTo(p))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if history == nil {
		history = []*model.Transfer{}
	}
	jsonResponse(w, http.StatusOK, history)
}

// Export handles GET /api/coins/export, writing the caller's visible coins
// as CSV.
func (h *CoinsHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	coins, err := store.List(r.Context(), h.DB, store.Coins, coinScope(p)...)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="coins.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "description", "nominal_price", "release_year",
		"serial_number", "owner_id", "type_id", "currency_id", "mint_id", "issuing_state_id"})
	for _, c := range coins {
		cw.Write([]string{
			strconv.FormatInt(c.ID, 10),
			c.Description,
			strconv.FormatInt(c.NominalPrice, 10),
			c.ReleaseYear,
			c.SerialNumber,
			strconv.FormatInt(c.OwnerID, 10),
			strconv.FormatInt(c.TypeID, 10),
			strconv.FormatInt(c.CurrencyID, 10),
			strconv.FormatInt(c.MintID, 10),
			strconv.FormatInt(c.IssuingStateID, 10),
		})
	}
	cw.Flush()
}
