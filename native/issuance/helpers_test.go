package issuance

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"mintchain/assetname"
	"mintchain/config"
	"mintchain/ledger"
	"mintchain/protocol"
)

// newTestEngine builds an engine over a fresh on-disk store. Gates listed in
// disabled are pushed past any test height via the override file, which keeps
// regtest's everything-on default from distorting fee-era expectations.
func newTestEngine(t *testing.T, network config.Network, disabled ...string) (*Engine, *ledger.Store) {
	t.Helper()
	dsn, err := ledger.FileDSN(filepath.Join(t.TempDir(), "ledger.sqlite"))
	if err != nil {
		t.Fatalf("build DSN: %v", err)
	}
	store, err := ledger.Open(dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gates := protocol.NewTable(network)
	if len(disabled) > 0 {
		var doc []byte
		for _, gate := range disabled {
			doc = append(doc, fmt.Sprintf("%s: %d\n", gate, int64(1)<<40)...)
		}
		path := filepath.Join(t.TempDir(), "gates.yaml")
		if err := os.WriteFile(path, doc, 0o600); err != nil {
			t.Fatalf("write gate overrides: %v", err)
		}
		if err := gates.LoadOverrides(path); err != nil {
			t.Fatalf("load gate overrides: %v", err)
		}
	}
	return NewEngine(store, gates), store
}

func fundXCP(t *testing.T, store *ledger.Store, address string, quantity int64) {
	t.Helper()
	if err := store.Credit(context.Background(), 0, address, config.XCP, quantity, "test setup", "genesis"); err != nil {
		t.Fatalf("fund %s: %v", address, err)
	}
}

func mustAssetID(t *testing.T, e *Engine, name string, blockIndex int64) uint64 {
	t.Helper()
	id, err := assetname.GenerateAssetID(e.gates, name, blockIndex)
	if err != nil {
		t.Fatalf("asset id of %s: %v", name, err)
	}
	return id
}

// issueAsset drives a plain first issuance through Parse so later tests start
// from real ledger state.
func issueAsset(t *testing.T, e *Engine, txIndex int64, source, asset string, quantity uint64, blockIndex int64) {
	t.Helper()
	message := packIssuance(mustAssetID(t, e, asset, blockIndex), quantity,
		true, true, true, true, true, false, 0, 0, "")
	tx := Tx{
		TxIndex:    txIndex,
		TxHash:     fmt.Sprintf("seed-%s-%d", asset, txIndex),
		BlockIndex: blockIndex,
		Source:     source,
	}
	if err := e.Parse(context.Background(), tx, message, ID); err != nil {
		t.Fatalf("seed issuance of %s: %v", asset, err)
	}
	rows, err := e.store.ValidIssuances(context.Background(), asset)
	if err != nil {
		t.Fatalf("query seed issuance: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("seed issuance of %s not valid", asset)
	}
}

func nullString(s string) sql.NullString    { return sql.NullString{String: s, Valid: true} }
func nullInt64(v int64) sql.NullInt64       { return sql.NullInt64{Int64: v, Valid: true} }
func nullBool(b bool) sql.NullBool          { return sql.NullBool{Bool: b, Valid: true} }
func nullFloat64(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func rowByHash(t *testing.T, store *ledger.Store, txHash string) ledger.Issuance {
	t.Helper()
	row, err := store.IssuanceByTxHash(context.Background(), txHash)
	if err != nil {
		t.Fatalf("row %s: %v", txHash, err)
	}
	return row
}
