package store

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the resource engine and the transfer state
// machine. The API layer maps these to status codes; the store never
// formats user-facing messages beyond these.
var (
	// ErrNotFound covers both genuinely absent rows and rows hidden by a
	// filtration. Callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrUnique signals a collision on a uniqueness rule: an active account
	// name, or a second active transfer for the same (source, coin) pair.
	ErrUnique = errors.New("already exists")

	// ErrSelfTransfer signals a transfer whose source and destination are
	// the same account.
	ErrSelfTransfer = errors.New("source and destination are the same account")

	// ErrOwnerMismatch signals that the stated source does not currently
	// own the coin.
	ErrOwnerMismatch = errors.New("source does not own the coin")
)

// MissingReferencesError reports foreign keys that did not resolve to an
// existing, non-deleted row. Keys holds the field names of every offending
// reference.
type MissingReferencesError struct {
	Keys []string
}

func (e *MissingReferencesError) Error() string {
	return fmt.Sprintf("missing references: %s", strings.Join(e.Keys, ", "))
}
