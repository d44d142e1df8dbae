package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// AssetGroup is one non-fungible group registration row.
type AssetGroup struct {
	TxIndex    int64
	TxHash     string
	BlockIndex int64
	AssetGroup sql.NullString
	Issuer     string
	Status     string
}

// InsertAssetGroup appends a group registration row.
func (s *Store) InsertAssetGroup(ctx context.Context, row AssetGroup) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO assetgroups(tx_index, tx_hash, block_index, asset_group, issuer, status)
        VALUES(?, ?, ?, ?, ?, ?)
    `, row.TxIndex, row.TxHash, row.BlockIndex, row.AssetGroup, row.Issuer, row.Status)
	if err != nil {
		return fmt.Errorf("insert asset group: %w", err)
	}
	return nil
}

// LastValidAssetGroup returns the most recent valid registration of the named
// group, or ErrNotFound.
func (s *Store) LastValidAssetGroup(ctx context.Context, group string) (AssetGroup, error) {
	if s == nil {
		return AssetGroup{}, fmt.Errorf("storage not configured")
	}
	var row AssetGroup
	err := s.db.QueryRowContext(ctx, `
        SELECT tx_index, tx_hash, block_index, asset_group, issuer, status
        FROM assetgroups
        WHERE status = ? AND asset_group = ?
        ORDER BY tx_index DESC
        LIMIT 1
    `, "valid", group).Scan(&row.TxIndex, &row.TxHash, &row.BlockIndex,
		&row.AssetGroup, &row.Issuer, &row.Status)
	if err == sql.ErrNoRows {
		return AssetGroup{}, ErrNotFound
	}
	if err != nil {
		return AssetGroup{}, fmt.Errorf("query asset group: %w", err)
	}
	return row, nil
}
