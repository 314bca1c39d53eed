package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mzidar/numizmat/internal/model"
)

// Coins describes the coins table to the resource engine.
var Coins = Table[*model.Coin]{
	Name: "coins",
	Columns: []string{
		"id", "description", "nominal_price", "release_year", "serial_number",
		"owner_id", "type_id", "currency_id", "mint_id", "issuing_state_id",
		"image_mime", "created_at", "updated_at", "deleted_at",
	},
	Scan: func(row RowScanner) (*model.Coin, error) {
		c := &model.Coin{}
		var mime sql.NullString
		err := row.Scan(&c.ID, &c.Description, &c.NominalPrice, &c.ReleaseYear,
			&c.SerialNumber, &c.OwnerID, &c.TypeID, &c.CurrencyID, &c.MintID,
			&c.IssuingStateID, &mime, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
		c.ImageMime = mime.String
		return c, err
	},
}

// CoinFields holds the caller-supplied scalar fields of a coin. The owner is
// never part of this set; ownership changes only through transfers.
type CoinFields struct {
	Description    string
	NominalPrice   int64
	ReleaseYear    string
	SerialNumber   string
	TypeID         int64
	CurrencyID     int64
	MintID         int64
	IssuingStateID int64
}

// validateCoinReferences checks every catalog foreign key against existing,
// non-deleted rows in one statement and reports all offending keys at once.
func validateCoinReferences(ctx context.Context, dbtx DBTX, f CoinFields) error {
	refs := []struct {
		key   string
		table string
		id    int64
	}{
		{"type_id", "coin_types", f.TypeID},
		{"currency_id", "currencies", f.CurrencyID},
		{"mint_id", "mints", f.MintID},
		{"issuing_state_id", "issuing_states", f.IssuingStateID},
	}

	query := ""
	args := make([]any, 0, len(refs))
	for i, ref := range refs {
		if i > 0 {
			query += " UNION ALL "
		}
		query += fmt.Sprintf(
			`SELECT '%s' WHERE EXISTS (SELECT 1 FROM %s WHERE id = ? AND deleted_at IS NULL)`,
			ref.key, ref.table)
		args = append(args, ref.id)
	}

	rows, err := dbtx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("validating coin references: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(refs))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("scanning reference key: %w", err)
		}
		found[key] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validating coin references: %w", err)
	}

	var missing []string
	for _, ref := range refs {
		if !found[ref.key] {
			missing = append(missing, ref.key)
		}
	}
	if len(missing) > 0 {
		return &MissingReferencesError{Keys: missing}
	}
	return nil
}

// CreateCoin creates a coin owned by the given account. All four catalog
// references must resolve to non-deleted rows or the call fails with
// MissingReferencesError naming every invalid key. Validation and the insert
// share one write transaction, so a catalog row cannot be soft-deleted
// between the reference check and the coin landing.
func CreateCoin(ctx context.Context, sqldb *sql.DB, ownerID int64, f CoinFields) (*model.Coin, error) {
	tx, err := sqldb.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateCoinReferences(ctx, tx, f); err != nil {
		return nil, err
	}

	coin, err := Insert(ctx, tx, Coins,
		[]string{"description", "nominal_price", "release_year", "serial_number",
			"owner_id", "type_id", "currency_id", "mint_id", "issuing_state_id"},
		f.Description, f.NominalPrice, f.ReleaseYear, f.SerialNumber,
		ownerID, f.TypeID, f.CurrencyID, f.MintID, f.IssuingStateID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing coin: %w", err)
	}
	return coin, nil
}

// UpdateCoin overwrites a coin's scalar fields, revalidating catalog
// references inside one write transaction exactly as CreateCoin does.
func UpdateCoin(ctx context.Context, sqldb *sql.DB, id int64, f CoinFields, fs ...Filtration) (*model.Coin, error) {
	tx, err := sqldb.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateCoinReferences(ctx, tx, f); err != nil {
		return nil, err
	}

	coin, err := Update(ctx, tx, Coins, id,
		[]string{"description", "nominal_price", "release_year", "serial_number",
			"type_id", "currency_id", "mint_id", "issuing_state_id", "updated_at"},
		[]any{f.Description, f.NominalPrice, f.ReleaseYear, f.SerialNumber,
			f.TypeID, f.CurrencyID, f.MintID, f.IssuingStateID, time.Now().UTC()},
		fs...)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing coin: %w", err)
	}
	return coin, nil
}

// SetCoinImage stores a coin's photo.
func SetCoinImage(ctx context.Context, dbtx DBTX, id int64, image []byte, mime string, fs ...Filtration) error {
	q := buildQuery(fs)
	q.Where("id = ?", id)

	result, err := dbtx.ExecContext(ctx,
		`UPDATE coins SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE `+q.whereClause(),
		append([]any{image, mime}, q.args...)...)
	if err != nil {
		return fmt.Errorf("setting coin image: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting coin image: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCoinImage returns a coin's photo and MIME type, or ErrNotFound when the
// coin is absent, hidden, or has no photo.
func GetCoinImage(ctx context.Context, dbtx DBTX, id int64, fs ...Filtration) ([]byte, string, error) {
	q := buildQuery(fs)
	q.Where("id = ?", id)

	var image []byte
	var mime sql.NullString
	err := dbtx.QueryRowContext(ctx,
		`SELECT image, image_mime FROM coins WHERE `+q.whereClause(), q.args...,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting coin image: %w", err)
	}
	if image == nil {
		return nil, "", ErrNotFound
	}
	return image, mime.String, nil
}
