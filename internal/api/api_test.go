package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mzidar/numizmat/internal/db"
	"github.com/mzidar/numizmat/internal/model"
	"github.com/mzidar/numizmat/internal/store"
)

const testJWTSecret = "test-secret"

// Hashing cost does not matter in tests.
var testHash, _ = bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, string) {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testJWTSecret))
	t.Cleanup(server.Close)

	token := newAccountToken(t, server, database, "admin", true)
	return server, database, token
}

// newAccountToken creates an account and logs it in over HTTP.
func newAccountToken(t *testing.T, server *httptest.Server, database *sql.DB, name string, admin bool) string {
	t.Helper()

	if _, err := store.CreateAccount(context.Background(), database, name, string(testHash), admin); err != nil {
		t.Fatalf("creating account %q: %v", name, err)
	}

	body, _ := json.Marshal(map[string]string{"name": name, "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp["token"] == "" {
		t.Fatal("empty token from login")
	}
	return loginResp["token"]
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON performs an authenticated request and decodes the JSON response.
func doJSON(t *testing.T, method, url, token string, body, target any) int {
	t.Helper()

	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if target != nil {
		json.NewDecoder(resp.Body).Decode(target)
	}
	return resp.StatusCode
}

// newCatalogIDs seeds one entry per catalog table directly through the store.
func newCatalogIDs(t *testing.T, database *sql.DB) (typeID, currencyID, mintID, stateID int64) {
	t.Helper()
	ctx := context.Background()

	ids := make([]int64, 0, 4)
	for _, table := range []store.Table[*model.CatalogEntry]{
		store.CoinTypes, store.Currencies, store.Mints, store.IssuingStates,
	} {
		entry, err := store.CreateCatalogEntry(ctx, database, table)
		if err != nil {
			t.Fatalf("creating %s entry: %v", table.Name, err)
		}
		ids = append(ids, entry.ID)
	}
	return ids[0], ids[1], ids[2], ids[3]
}

func coinBody(typeID, currencyID, mintID, stateID int64) map[string]any {
	return map[string]any{
		"description":      "1 tolar",
		"nominal_price":    1,
		"release_year":     "1992",
		"serial_number":    "SN-001",
		"type_id":          typeID,
		"currency_id":      currencyID,
		"mint_id":          mintID,
		"issuing_state_id": stateID,
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"name": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{"name": "nobody", "password": "password"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown account, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/coins")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, database, _ := setupTestServer(t)
	token := newAccountToken(t, server, database, "alice", false)

	if status := doJSON(t, "POST", server.URL+"/api/auth/logout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}
	if status := doJSON(t, "GET", server.URL+"/api/coins", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
}

func TestAdminOnlyRoutes(t *testing.T) {
	server, database, _ := setupTestServer(t)
	token := newAccountToken(t, server, database, "alice", false)

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{"GET", "/api/accounts", nil},
		{"POST", "/api/accounts", map[string]any{"name": "eve", "password": "pw"}},
		{"POST", "/api/coin-types", nil},
		{"DELETE", "/api/currencies/1", nil},
		{"POST", "/api/transfers", map[string]any{"source_id": 1, "destination_id": 2, "coin_id": 1}},
	} {
		status := doJSON(t, tc.method, server.URL+tc.path, token, tc.body, nil)
		if status != http.StatusForbidden {
			t.Errorf("%s %s: expected 403 for standard account, got %d", tc.method, tc.path, status)
		}
	}

	// Reads on catalogs stay open to standard accounts.
	if status := doJSON(t, "GET", server.URL+"/api/coin-types", token, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 for catalog read, got %d", status)
	}
}

func TestCatalogAPIFlow(t *testing.T) {
	server, _, adminToken := setupTestServer(t)

	var entry model.CatalogEntry
	if status := doJSON(t, "POST", server.URL+"/api/mints", adminToken, nil, &entry); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	var entries []model.CatalogEntry
	if status := doJSON(t, "GET", server.URL+"/api/mints", adminToken, nil, &entries); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Errorf("expected the created entry in the list, got %v", entries)
	}

	url := fmt.Sprintf("%s/api/mints/%d", server.URL, entry.ID)
	if status := doJSON(t, "DELETE", url, adminToken, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", status)
	}
	if status := doJSON(t, "GET", url, adminToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestCoinsAPIFlow(t *testing.T) {
	server, database, adminToken := setupTestServer(t)
	aliceToken := newAccountToken(t, server, database, "alice", false)
	bobToken := newAccountToken(t, server, database, "bob", false)

	typeID, currencyID, mintID, stateID := newCatalogIDs(t, database)

	var coin model.Coin
	status := doJSON(t, "POST", server.URL+"/api/coins", aliceToken,
		coinBody(typeID, currencyID, mintID, stateID), &coin)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	// Owners and admins see the coin, other accounts do not.
	url := fmt.Sprintf("%s/api/coins/%d", server.URL, coin.ID)
	if status := doJSON(t, "GET", url, aliceToken, nil, nil); status != http.StatusOK {
		t.Errorf("owner read: expected 200, got %d", status)
	}
	if status := doJSON(t, "GET", url, adminToken, nil, nil); status != http.StatusOK {
		t.Errorf("admin read: expected 200, got %d", status)
	}
	if status := doJSON(t, "GET", url, bobToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("non-owner read: expected 404, got %d", status)
	}

	var coins []model.Coin
	if status := doJSON(t, "GET", server.URL+"/api/coins", bobToken, nil, &coins); status != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", status)
	}
	if len(coins) != 0 {
		t.Errorf("expected empty list for non-owner, got %d coins", len(coins))
	}

	if status := doJSON(t, "DELETE", url, bobToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("non-owner delete: expected 404, got %d", status)
	}
	if status := doJSON(t, "DELETE", url, aliceToken, nil, nil); status != http.StatusOK {
		t.Errorf("owner delete: expected 200, got %d", status)
	}
	if status := doJSON(t, "GET", url, aliceToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestCoinMissingReferences(t *testing.T) {
	server, database, _ := setupTestServer(t)
	aliceToken := newAccountToken(t, server, database, "alice", false)

	typeID, currencyID, _, _ := newCatalogIDs(t, database)

	var errResp struct {
		Error       string   `json:"error"`
		MissingKeys []string `json:"missing_keys"`
	}
	status := doJSON(t, "POST", server.URL+"/api/coins", aliceToken,
		coinBody(typeID, currencyID, 9999, 9999), &errResp)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	want := []string{"mint_id", "issuing_state_id"}
	if !slices.Equal(errResp.MissingKeys, want) {
		t.Errorf("expected missing keys %v, got %v", want, errResp.MissingKeys)
	}
}

func TestTransfersAPIFlow(t *testing.T) {
	server, database, adminToken := setupTestServer(t)
	aliceToken := newAccountToken(t, server, database, "alice", false)
	bobToken := newAccountToken(t, server, database, "bob", false)

	ctx := context.Background()
	alice, err := store.GetAccountByName(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetAccountByName: %v", err)
	}
	bob, err := store.GetAccountByName(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetAccountByName: %v", err)
	}

	typeID, currencyID, mintID, stateID := newCatalogIDs(t, database)
	var coin model.Coin
	if status := doJSON(t, "POST", server.URL+"/api/coins", aliceToken,
		coinBody(typeID, currencyID, mintID, stateID), &coin); status != http.StatusCreated {
		t.Fatalf("creating coin: expected 201, got %d", status)
	}

	// Self-transfers are rejected outright.
	status := doJSON(t, "POST", server.URL+"/api/transfers", adminToken, map[string]any{
		"source_id": alice.ID, "destination_id": alice.ID, "coin_id": coin.ID,
	}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("self transfer: expected 422, got %d", status)
	}

	var transfer model.Transfer
	status = doJSON(t, "POST", server.URL+"/api/transfers", adminToken, map[string]any{
		"source_id": alice.ID, "destination_id": bob.ID, "coin_id": coin.ID, "comment": "gift",
	}, &transfer)
	if status != http.StatusCreated {
		t.Fatalf("creating transfer: expected 201, got %d", status)
	}

	// A second active transfer for the same coin collides.
	status = doJSON(t, "POST", server.URL+"/api/transfers", adminToken, map[string]any{
		"source_id": alice.ID, "destination_id": bob.ID, "coin_id": coin.ID,
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("duplicate transfer: expected 409, got %d", status)
	}

	// Only the destination sees the pending transfer in their list.
	var pending []model.Transfer
	if status := doJSON(t, "GET", server.URL+"/api/transfers", bobToken, nil, &pending); status != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", status)
	}
	if len(pending) != 1 {
		t.Errorf("expected 1 pending transfer for destination, got %d", len(pending))
	}
	var othersPending []model.Transfer
	doJSON(t, "GET", server.URL+"/api/transfers", aliceToken, nil, &othersPending)
	if len(othersPending) != 0 {
		t.Errorf("expected no pending transfers for source, got %d", len(othersPending))
	}

	// The source cannot act on the transfer; the destination approves it.
	approveURL := fmt.Sprintf("%s/api/transfers/%d/approve", server.URL, transfer.ID)
	if status := doJSON(t, "POST", approveURL, aliceToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("source approval: expected 404, got %d", status)
	}
	var closed model.Transfer
	if status := doJSON(t, "POST", approveURL, bobToken, nil, &closed); status != http.StatusOK {
		t.Fatalf("approval: expected 200, got %d", status)
	}
	if closed.Status != model.TransferStatusApproved {
		t.Errorf("expected status %q, got %q", model.TransferStatusApproved, closed.Status)
	}

	// Approval is terminal and moves the coin to the destination.
	if status := doJSON(t, "POST", approveURL, bobToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("second approval: expected 404, got %d", status)
	}
	coinURL := fmt.Sprintf("%s/api/coins/%d", server.URL, coin.ID)
	if status := doJSON(t, "GET", coinURL, bobToken, nil, nil); status != http.StatusOK {
		t.Errorf("expected coin visible to new owner, got %d", status)
	}
	if status := doJSON(t, "GET", coinURL, aliceToken, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected coin hidden from old owner, got %d", status)
	}

	// Both parties still see the closed transfer in the coin history.
	historyURL := fmt.Sprintf("%s/api/coins/%d/history", server.URL, coin.ID)
	var history []model.Transfer
	if status := doJSON(t, "GET", historyURL, aliceToken, nil, &history); status != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", status)
	}
	if len(history) != 1 || history[0].Status != model.TransferStatusApproved {
		t.Errorf("unexpected history for source: %v", history)
	}
}

func TestHealthz(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
