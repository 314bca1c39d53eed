package model

import "time"

// CatalogEntry is a minimal reference record: coin types, currencies, mints
// and issuing states all share this shape. Coins point at them by id and may
// only reference non-deleted entries.
type CatalogEntry struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
