package issuance

import (
	"context"
	"testing"

	"mintchain/config"
	"mintchain/protocol"
)

func TestIsVendable(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)

	// The native asset always vends.
	ok, err := e.IsVendable(ctx, config.XCP, 320000)
	if err != nil || !ok {
		t.Fatalf("XCP must vend: ok=%v err=%v", ok, err)
	}

	// Unknown assets never do.
	ok, err = e.IsVendable(ctx, "GHOST", 320000)
	if err != nil || ok {
		t.Fatalf("unknown asset must not vend: ok=%v err=%v", ok, err)
	}

	issueAsset(t, e, 1, "addr1", "TOKEN", 1000, 320000)
	ok, err = e.IsVendable(ctx, "TOKEN", 320000)
	if err != nil || !ok {
		t.Fatalf("vendable asset rejected: ok=%v err=%v", ok, err)
	}
}

func TestIsVendableCompanionFlagsPreFix(t *testing.T) {
	e, store := newTestEngine(t, config.Regtest, protocol.GateVendableFix, protocol.GateFeeRevision2021Q1)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)

	message := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 1000,
		true, false, true, true, true, false, 0, 0, "")
	if err := e.Parse(ctx, Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 320000, Source: "addr1"}, message, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if row := rowByHash(t, store, "tx1"); row.Status != "valid" {
		t.Fatalf("unexpected status %q", row.Status)
	}

	// Before the fix a delisted asset cannot vend even while vendable=true.
	ok, err := e.IsVendable(ctx, "TOKEN", 320000)
	if err != nil || ok {
		t.Fatalf("delisted asset must not vend pre-fix: ok=%v err=%v", ok, err)
	}
}

func TestFindByTxHash(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", config.UNIT)
	issueAsset(t, e, 1, "addr1", "TOKEN", 1000, 320000)

	asset, err := e.FindByTxHash(ctx, "seed-TOKEN-1")
	if err != nil || asset != "TOKEN" {
		t.Fatalf("find by hash: %q err=%v", asset, err)
	}
	asset, err = e.FindByTxHash(ctx, "missing")
	if err != nil || asset != "" {
		t.Fatalf("missing hash: %q err=%v", asset, err)
	}
}
