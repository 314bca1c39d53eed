package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mzidar/numizmat/internal/model"
)

// Shared test fixtures for the store package.

func newAccount(t *testing.T, db *sql.DB, name string, admin bool) *model.Account {
	t.Helper()
	account, err := CreateAccount(context.Background(), db, name, "hash", admin)
	if err != nil {
		t.Fatalf("creating account %q: %v", name, err)
	}
	return account
}

// newCatalogSet creates one entry in each catalog table and returns the
// CoinFields referencing them.
func newCatalogSet(t *testing.T, db *sql.DB) CoinFields {
	t.Helper()
	ctx := context.Background()

	f := CoinFields{
		Description:  "1 tolar",
		NominalPrice: 1,
		ReleaseYear:  "1992",
		SerialNumber: "SN-001",
	}
	for _, ref := range []struct {
		table Table[*model.CatalogEntry]
		id    *int64
	}{
		{CoinTypes, &f.TypeID},
		{Currencies, &f.CurrencyID},
		{Mints, &f.MintID},
		{IssuingStates, &f.IssuingStateID},
	} {
		entry, err := CreateCatalogEntry(ctx, db, ref.table)
		if err != nil {
			t.Fatalf("creating %s entry: %v", ref.table.Name, err)
		}
		*ref.id = entry.ID
	}
	return f
}

func newCoin(t *testing.T, db *sql.DB, ownerID int64, f CoinFields) *model.Coin {
	t.Helper()
	coin, err := CreateCoin(context.Background(), db, ownerID, f)
	if err != nil {
		t.Fatalf("creating coin: %v", err)
	}
	return coin
}
