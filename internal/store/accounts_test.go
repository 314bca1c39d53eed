package store

import (
	"context"
	"errors"
	"testing"

	"github.com/mzidar/numizmat/internal/db"
)

func TestCreateAccountUniqueName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	newAccount(t, database, "alice", false)

	_, err := CreateAccount(ctx, database, "alice", "hash", false)
	if !errors.Is(err, ErrUnique) {
		t.Errorf("expected ErrUnique for duplicate name, got %v", err)
	}
}

func TestSoftDeletedNameReusable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	old := newAccount(t, database, "alice", false)
	if err := DeleteAccount(ctx, database, old.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	// The partial unique index only covers active accounts.
	replacement, err := CreateAccount(ctx, database, "alice", "hash", false)
	if err != nil {
		t.Fatalf("expected name to be reusable after soft delete: %v", err)
	}
	if replacement.ID == old.ID {
		t.Error("expected a new account row")
	}
}

func TestGetAccountByNameIgnoresDeleted(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	account := newAccount(t, database, "bob", true)

	got, err := GetAccountByName(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetAccountByName: %v", err)
	}
	if got.ID != account.ID || !got.IsAdmin {
		t.Errorf("unexpected account: %+v", got)
	}

	if err := DeleteAccount(ctx, database, account.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if _, err := GetAccountByName(ctx, database, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted account, got %v", err)
	}
}
