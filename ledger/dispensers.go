package ledger

import (
	"context"
	"fmt"
)

// Dispenser is the slice of companion dispenser state the issuance core can
// observe. Status 0 is an open dispenser.
type Dispenser struct {
	TxIndex    int64
	TxHash     string
	BlockIndex int64
	Source     string
	Asset      string
	Status     int
}

// InsertDispenser records a dispenser row. The dispenser state machine lives
// with the host; this is its write path into the shared ledger.
func (s *Store) InsertDispenser(ctx context.Context, row Dispenser) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO dispensers(tx_index, tx_hash, block_index, source, asset, status)
        VALUES(?, ?, ?, ?, ?, ?)
    `, row.TxIndex, row.TxHash, row.BlockIndex, row.Source, row.Asset, row.Status)
	if err != nil {
		return fmt.Errorf("insert dispenser: %w", err)
	}
	return nil
}
