package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mzidar/numizmat/internal/model"
)

// Transfers describes the transfers table to the resource engine.
var Transfers = Table[*model.Transfer]{
	Name: "transfers",
	Columns: []string{
		"id", "source_id", "destination_id", "creator_id", "coin_id",
		"comment", "status", "created_at", "closed_at", "deleted_at",
	},
	Scan: func(row RowScanner) (*model.Transfer, error) {
		t := &model.Transfer{}
		err := row.Scan(&t.ID, &t.SourceID, &t.DestinationID, &t.CreatorID,
			&t.CoinID, &t.Comment, &t.Status, &t.CreatedAt, &t.ClosedAt, &t.DeletedAt)
		return t, err
	},
}

// lockCoin takes the write lock for the transaction by issuing a no-op
// update on the coin row. SQLite has no row-level locks, so the first write
// statement promotes the transaction to the database writer; every
// competing transfer operation serializes here, before any ownership check.
// Returns ErrNotFound when the coin is absent or soft-deleted.
func lockCoin(ctx context.Context, tx *sql.Tx, coinID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE coins SET updated_at = updated_at WHERE id = ? AND deleted_at IS NULL`,
		coinID)
	if err != nil {
		return fmt.Errorf("locking coin: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("locking coin: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTransfer opens a transfer of a coin from the source account to the
// destination account, created by an administrator on behalf of the source.
//
// All checks run inside one write transaction with the coin row locked
// first: source and destination must be distinct existing accounts, the
// coin must exist and currently belong to the source, and no other active
// transfer may exist for the same (source, coin) pair. Without the lock two
// racing creates could both pass the ownership check before either commits;
// the partial unique index on active transfers backs this up at the store
// level.
func CreateTransfer(ctx context.Context, sqldb *sql.DB, creatorID, sourceID, destinationID, coinID int64, comment string) (*model.Transfer, error) {
	if sourceID == destinationID {
		return nil, ErrSelfTransfer
	}

	tx, err := sqldb.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockCoin(ctx, tx, coinID); err != nil {
		if err == ErrNotFound {
			return nil, &MissingReferencesError{Keys: []string{"coin_id"}}
		}
		return nil, err
	}

	if err := validateTransferAccounts(ctx, tx, sourceID, destinationID); err != nil {
		return nil, err
	}

	coin, err := Get(ctx, tx, Coins, coinID)
	if err != nil {
		return nil, err
	}
	if coin.OwnerID != sourceID {
		return nil, ErrOwnerMismatch
	}

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transfers WHERE source_id = ? AND coin_id = ? AND status = ?)`,
		sourceID, coinID, model.TransferStatusInitial,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("checking active transfers: %w", err)
	}
	if active {
		return nil, ErrUnique
	}

	transfer, err := Insert(ctx, tx, Transfers,
		[]string{"source_id", "destination_id", "creator_id", "coin_id", "comment", "status"},
		sourceID, destinationID, creatorID, coinID, comment, model.TransferStatusInitial)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}
	return transfer, nil
}

// ApproveTransfer closes a transfer by reassigning the coin to the
// destination account. The transfer must still be active and visible to the
// principal; the coin row is locked before re-checking that its owner still
// equals the recorded source, which guards against the coin having moved
// through a competing approved transfer in the meantime. Of two racing
// approvals on the same coin exactly one succeeds; the other sees either a
// closed transfer (ErrNotFound) or a changed owner (MissingReferencesError).
func ApproveTransfer(ctx context.Context, sqldb *sql.DB, p model.Principal, id int64) (*model.Transfer, error) {
	tx, err := sqldb.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	transfer, err := Get(ctx, tx, Transfers, id, ActiveVisibleTo(p))
	if err != nil {
		return nil, err
	}

	if err := lockCoin(ctx, tx, transfer.CoinID); err != nil {
		if err == ErrNotFound {
			return nil, &MissingReferencesError{Keys: []string{"coin_id"}}
		}
		return nil, err
	}

	coin, err := Get(ctx, tx, Coins, transfer.CoinID)
	if err != nil {
		return nil, err
	}
	if coin.OwnerID != transfer.SourceID {
		return nil, &MissingReferencesError{Keys: []string{"coin_id"}}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE coins SET owner_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		transfer.DestinationID, transfer.CoinID); err != nil {
		return nil, fmt.Errorf("reassigning coin owner: %w", err)
	}

	closed, err := closeTransfer(ctx, tx, id, model.TransferStatusApproved)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}
	return closed, nil
}

// DeclineTransfer closes a transfer without touching the coin. Scoped by the
// same visibility rules as ApproveTransfer.
func DeclineTransfer(ctx context.Context, sqldb *sql.DB, p model.Principal, id int64) (*model.Transfer, error) {
	tx, err := sqldb.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := Get(ctx, tx, Transfers, id, ActiveVisibleTo(p)); err != nil {
		return nil, err
	}

	closed, err := closeTransfer(ctx, tx, id, model.TransferStatusDeclined)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing decline: %w", err)
	}
	return closed, nil
}

// closeTransfer stamps the terminal status and closing time on a still-open
// transfer. Closing an already-closed transfer is impossible: the status
// condition makes the update miss and surfaces ErrNotFound.
func closeTransfer(ctx context.Context, tx *sql.Tx, id int64, status string) (*model.Transfer, error) {
	return Update(ctx, tx, Transfers, id,
		[]string{"status", "closed_at"},
		[]any{status, time.Now().UTC()},
		func(q *Query) { q.Where("status = ?", model.TransferStatusInitial) })
}

// validateTransferAccounts checks that both parties resolve to active
// accounts, reporting every missing one.
func validateTransferAccounts(ctx context.Context, tx *sql.Tx, sourceID, destinationID int64) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT 'source_id' WHERE EXISTS (SELECT 1 FROM accounts WHERE id = ? AND deleted_at IS NULL)
		 UNION ALL
		 SELECT 'destination_id' WHERE EXISTS (SELECT 1 FROM accounts WHERE id = ? AND deleted_at IS NULL)`,
		sourceID, destinationID)
	if err != nil {
		return fmt.Errorf("validating transfer accounts: %w", err)
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("scanning account key: %w", err)
		}
		found[key] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validating transfer accounts: %w", err)
	}

	var missing []string
	for _, key := range []string{"source_id", "destination_id"} {
		if !found[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingReferencesError{Keys: missing}
	}
	return nil
}

// ListTransfers returns transfers matching the given filtrations, ordered by
// id ascending.
func ListTransfers(ctx context.Context, dbtx DBTX, fs ...Filtration) ([]*model.Transfer, error) {
	return List(ctx, dbtx, Transfers, fs...)
}

// GetTransfer returns one transfer, scoped by the given filtrations.
func GetTransfer(ctx context.Context, dbtx DBTX, id int64, fs ...Filtration) (*model.Transfer, error) {
	return Get(ctx, dbtx, Transfers, id, fs...)
}

// CoinTransferHistory returns every transfer recorded for a coin, newest
// first, scoped by the given filtrations.
func CoinTransferHistory(ctx context.Context, dbtx DBTX, coinID int64, fs ...Filtration) ([]*model.Transfer, error) {
	fs = append(fs,
		FieldEquals("coin_id", coinID),
		OrderBy("created_at", true),
		OrderBy("id", true))
	return List(ctx, dbtx, Transfers, fs...)
}
