// Package assetgroup maintains the registry of non-fungible asset groups.
// A group is the name component before the first dot of a non-fungible
// long-name; the whole long-name is the group when no dot is present. Once a
// group has a valid registration, only its issuer may add members.
package assetgroup

import (
	"context"
	"database/sql"
	"strings"

	"mintchain/ledger"
)

// Store is the slice of ledger capability the group registry needs.
type Store interface {
	MigrateAssetGroups() error
	InsertAssetGroup(ctx context.Context, row ledger.AssetGroup) error
	LastValidAssetGroup(ctx context.Context, group string) (ledger.AssetGroup, error)
}

// Initialise applies the group registry schema.
func Initialise(store Store) error {
	return store.MigrateAssetGroups()
}

// GroupOf extracts the group component of a non-fungible long-name.
func GroupOf(longname string) string {
	group, _, _ := strings.Cut(longname, ".")
	return group
}

// Validate checks that the source may register a member under the long-name's
// group. Problems are returned as strings, never as errors; only ledger I/O
// failures surface as errors.
func Validate(ctx context.Context, store Store, longname, source string) ([]string, error) {
	group := GroupOf(longname)
	if group == "" {
		return []string{"invalid asset group name"}, nil
	}
	last, err := store.LastValidAssetGroup(ctx, group)
	if err == ledger.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if last.Issuer != source {
		return []string{"asset group owned by another address"}, nil
	}
	return nil, nil
}

// Create records a group registration row alongside the issuance journal.
// Rows are written for invalid statuses too, mirroring the issuance journal,
// so history replays deterministically.
func Create(ctx context.Context, store Store, txIndex int64, txHash string, blockIndex int64, longname, issuer, status string) error {
	row := ledger.AssetGroup{
		TxIndex:    txIndex,
		TxHash:     txHash,
		BlockIndex: blockIndex,
		Issuer:     issuer,
		Status:     status,
	}
	if longname != "" {
		row.AssetGroup = sql.NullString{String: GroupOf(longname), Valid: true}
	}
	return store.InsertAssetGroup(ctx, row)
}
