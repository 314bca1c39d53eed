package store

import (
	"context"

	"github.com/mzidar/numizmat/internal/model"
)

// catalogTable builds a Table descriptor for one of the four catalog tables,
// which all share the minimal reference-record shape.
func catalogTable(name string) Table[*model.CatalogEntry] {
	return Table[*model.CatalogEntry]{
		Name:    name,
		Columns: []string{"id", "created_at", "deleted_at"},
		Scan: func(row RowScanner) (*model.CatalogEntry, error) {
			e := &model.CatalogEntry{}
			err := row.Scan(&e.ID, &e.CreatedAt, &e.DeletedAt)
			return e, err
		},
	}
}

// The catalog tables coins reference by foreign key.
var (
	CoinTypes     = catalogTable("coin_types")
	Currencies    = catalogTable("currencies")
	Mints         = catalogTable("mints")
	IssuingStates = catalogTable("issuing_states")
)

// CreateCatalogEntry inserts a new reference record into the given catalog
// table.
func CreateCatalogEntry(ctx context.Context, dbtx DBTX, t Table[*model.CatalogEntry]) (*model.CatalogEntry, error) {
	// Reference records carry no payload; INSERT with defaults only.
	return Insert(ctx, dbtx, t, []string{"deleted_at"}, nil)
}
