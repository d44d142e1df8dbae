package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Asset is one registry row. Exactly one exists per issued asset, written on
// its first valid issuance and never deleted.
type Asset struct {
	AssetID       string
	AssetName     string
	BlockIndex    int64
	AssetLongname sql.NullString
	AssetGroup    sql.NullString
}

// InsertAsset writes a registry row for a newly created asset.
func (s *Store) InsertAsset(ctx context.Context, row Asset) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO assets(asset_id, asset_name, block_index, asset_longname, asset_group)
        VALUES(?, ?, ?, ?, ?)
    `, row.AssetID, row.AssetName, row.BlockIndex, row.AssetLongname, row.AssetGroup)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (s *Store) queryAsset(ctx context.Context, where string, arg any) (Asset, error) {
	if s == nil {
		return Asset{}, fmt.Errorf("storage not configured")
	}
	var row Asset
	err := s.db.QueryRowContext(ctx, `
        SELECT asset_id, asset_name, block_index, asset_longname, asset_group
        FROM assets WHERE `+where, arg).Scan(&row.AssetID, &row.AssetName,
		&row.BlockIndex, &row.AssetLongname, &row.AssetGroup)
	if err == sql.ErrNoRows {
		return Asset{}, ErrNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("query asset: %w", err)
	}
	return row, nil
}

// AssetByLongname returns the registry row holding the sub-asset long-name.
func (s *Store) AssetByLongname(ctx context.Context, longname string) (Asset, error) {
	return s.queryAsset(ctx, "asset_longname = ?", longname)
}

// AssetByName returns the registry row for the short asset name.
func (s *Store) AssetByName(ctx context.Context, name string) (Asset, error) {
	return s.queryAsset(ctx, "asset_name = ?", name)
}

// ResolveSubassetLongname maps a dotted long-name onto its registered short
// name. Inputs that are not registered long-names pass through unchanged.
func (s *Store) ResolveSubassetLongname(ctx context.Context, asset string) (string, error) {
	row, err := s.AssetByLongname(ctx, asset)
	if err == ErrNotFound {
		return asset, nil
	}
	if err != nil {
		return "", err
	}
	return row.AssetName, nil
}
