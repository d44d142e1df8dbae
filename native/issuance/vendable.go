package issuance

import (
	"context"

	"mintchain/config"
	"mintchain/ledger"
	"mintchain/protocol"
)

// IsVendable reports whether the asset may currently back a dispenser. The
// native asset always can; other assets follow the flags of their last valid
// issuance.
func (e *Engine) IsVendable(ctx context.Context, asset string, blockIndex int64) (bool, error) {
	if asset == config.XCP {
		return true, nil
	}
	resolved, err := e.store.ResolveSubassetLongname(ctx, asset)
	if err != nil {
		return false, err
	}
	last, err := e.store.LastValidIssuance(ctx, resolved)
	if err == ledger.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !e.gates.Enabled(protocol.GateDispensers, blockIndex) {
		return false, nil
	}
	if !e.gates.Enabled(protocol.GateVendableFix, blockIndex) {
		// Before the fix, a stored false on either companion flag blocked
		// vending outright. NULL cells from legacy rows do not.
		if (last.Reassignable.Valid && !last.Reassignable.Bool) || (last.Listed.Valid && !last.Listed.Bool) {
			return false, nil
		}
	}
	return last.Vendable.Bool, nil
}

// FindByTxHash returns the asset recorded for the journal row with the given
// transaction hash, or "" when none exists.
func (e *Engine) FindByTxHash(ctx context.Context, txHash string) (string, error) {
	asset, err := e.store.AssetByTxHash(ctx, txHash)
	if err == ledger.ErrNotFound {
		return "", nil
	}
	return asset, err
}
