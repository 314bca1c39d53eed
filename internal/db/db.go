package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Open opens a SQLite database connection and configures pragmas.
// Transactions start in immediate mode so that every multi-statement
// workflow (transfer create/approve) holds the write lock from its first
// statement instead of failing on a later snapshot upgrade. Pragmas ride on
// the DSN so every pooled connection gets them.
func Open(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The partial unique indexes on active account names and active
// transfers surface through here.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// The driver occasionally wraps constraint failures in plain errors.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
