package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: Replace hard UNIQUE on account name with a partial unique
	// index that only covers active (non-deleted) accounts so that
	// soft-deleted names can be reused.
	`DROP INDEX IF EXISTS sqlite_autoindex_accounts_1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_name_active
	     ON accounts(name) WHERE deleted_at IS NULL`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
