package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mzidar/numizmat/internal/model"
)

// Accounts describes the accounts table to the resource engine.
var Accounts = Table[*model.Account]{
	Name:    "accounts",
	Columns: []string{"id", "name", "password_hash", "is_admin", "created_at", "deleted_at"},
	Scan: func(row RowScanner) (*model.Account, error) {
		a := &model.Account{}
		err := row.Scan(&a.ID, &a.Name, &a.PasswordHash, &a.IsAdmin, &a.CreatedAt, &a.DeletedAt)
		return a, err
	},
}

// CreateAccount creates a new account. Name collisions with another active
// account return ErrUnique; a soft-deleted account's name may be reused.
func CreateAccount(ctx context.Context, dbtx DBTX, name, passwordHash string, isAdmin bool) (*model.Account, error) {
	return Insert(ctx, dbtx, Accounts,
		[]string{"name", "password_hash", "is_admin"},
		name, passwordHash, isAdmin)
}

// GetAccount returns an active account by ID, or ErrNotFound.
func GetAccount(ctx context.Context, dbtx DBTX, id int64) (*model.Account, error) {
	return Get(ctx, dbtx, Accounts, id)
}

// GetAccountByName returns an active account by name, or ErrNotFound.
// Soft-deleted accounts never resolve, so a deactivated collector cannot
// authenticate.
func GetAccountByName(ctx context.Context, dbtx DBTX, name string) (*model.Account, error) {
	a := &model.Account{}
	err := dbtx.QueryRowContext(ctx,
		`SELECT id, name, password_hash, is_admin, created_at, deleted_at
		 FROM accounts WHERE name = ? AND deleted_at IS NULL`, name,
	).Scan(&a.ID, &a.Name, &a.PasswordHash, &a.IsAdmin, &a.CreatedAt, &a.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting account by name: %w", err)
	}
	return a, nil
}

// ListAccounts returns all active accounts ordered by id.
func ListAccounts(ctx context.Context, dbtx DBTX) ([]*model.Account, error) {
	return List(ctx, dbtx, Accounts)
}

// UpdateAccountPassword replaces an account's password hash.
func UpdateAccountPassword(ctx context.Context, dbtx DBTX, id int64, passwordHash string) error {
	_, err := Update(ctx, dbtx, Accounts, id, []string{"password_hash"}, []any{passwordHash})
	return err
}

// DeleteAccount soft-deletes an account. The row stays for history and the
// name becomes available again.
func DeleteAccount(ctx context.Context, dbtx DBTX, id int64) error {
	return SoftDelete(ctx, dbtx, Accounts, id)
}
