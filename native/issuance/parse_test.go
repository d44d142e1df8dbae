package issuance

import (
	"context"
	"strings"
	"testing"

	"mintchain/assetname"
	"mintchain/config"
	"mintchain/ledger"
	"mintchain/protocol"
)

// Most parse tests run on regtest with the fee revision pushed out of the
// way, so the pre-revision fee schedule stays observable.
func parseTestEngine(t *testing.T) (*Engine, *ledger.Store) {
	return newTestEngine(t, config.Regtest, protocol.GateFeeRevision2021Q1)
}

func TestParseFirstIssuance(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", config.UNIT)

	message := packIssuance(mustAssetID(t, e, "TOKEN", 286100), 1000,
		true, true, true, true, true, false, 0, 0, "")
	tx := Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 286100, Source: "addr1"}
	if err := e.Parse(ctx, tx, message, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	row := rowByHash(t, store, "tx1")
	if row.Status != "valid" {
		t.Fatalf("unexpected status %q", row.Status)
	}
	if row.FeePaid != config.UNIT/2 {
		t.Fatalf("expected fee %d, got %d", config.UNIT/2, row.FeePaid)
	}
	if row.Quantity.Int64 != 1000 || !row.Divisible.Bool || row.Locked {
		t.Fatalf("unexpected row: %+v", row)
	}

	if _, err := store.AssetByName(ctx, "TOKEN"); err != nil {
		t.Fatalf("asset registry row missing: %v", err)
	}
	held, _ := store.Balance(ctx, "addr1", "TOKEN")
	if held != 1000 {
		t.Fatalf("expected 1000 TOKEN, got %d", held)
	}
	held, _ = store.Balance(ctx, "addr1", config.XCP)
	if held != config.UNIT-config.UNIT/2 {
		t.Fatalf("fee not debited, balance %d", held)
	}
}

func TestParseReissuanceCannotChangeDivisibility(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)
	issueAsset(t, e, 1, "addr1", "TOKEN", 1000, 320000)
	xcpBefore, _ := store.Balance(ctx, "addr1", config.XCP)

	message := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 500,
		false, true, true, true, true, false, 0, 0, "")
	tx := Tx{TxIndex: 2, TxHash: "tx2", BlockIndex: 320000, Source: "addr1"}
	if err := e.Parse(ctx, tx, message, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	row := rowByHash(t, store, "tx2")
	if row.Status != "invalid: cannot change divisibility" {
		t.Fatalf("unexpected status %q", row.Status)
	}
	if held, _ := store.Balance(ctx, "addr1", "TOKEN"); held != 1000 {
		t.Fatalf("invalid reissuance must not credit, balance %d", held)
	}
	if held, _ := store.Balance(ctx, "addr1", config.XCP); held != xcpBefore {
		t.Fatalf("invalid reissuance must not debit, balance %d", held)
	}
}

func TestParseLockViaMagicDescription(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)

	message := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 1000,
		true, true, true, true, true, false, 0, 0, "the original description")
	if err := e.Parse(ctx, Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 320000, Source: "addr1"}, message, ID); err != nil {
		t.Fatalf("first issuance: %v", err)
	}

	lockMsg := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 0,
		true, true, true, true, true, false, 0, 0, "LOCK")
	if err := e.Parse(ctx, Tx{TxIndex: 2, TxHash: "tx2", BlockIndex: 320000, Source: "addr1"}, lockMsg, ID); err != nil {
		t.Fatalf("lock issuance: %v", err)
	}

	row := rowByHash(t, store, "tx2")
	if row.Status != "valid" || !row.Locked {
		t.Fatalf("expected valid locked row, got %+v", row)
	}
	if row.Description.String != "the original description" {
		t.Fatalf("magic description must reset to prior, got %q", row.Description.String)
	}

	// Any further supply is rejected.
	growMsg := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 10,
		true, true, true, true, true, false, 0, 0, "")
	if err := e.Parse(ctx, Tx{TxIndex: 3, TxHash: "tx3", BlockIndex: 320000, Source: "addr1"}, growMsg, ID); err != nil {
		t.Fatalf("grow issuance: %v", err)
	}
	if row := rowByHash(t, store, "tx3"); !strings.Contains(row.Status, "locked asset and non-zero quantity") {
		t.Fatalf("unexpected status %q", row.Status)
	}
}

func TestParseSubassetFirstIssuance(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)
	issueAsset(t, e, 1, "addr1", "PARENT", 1000, 320000)
	xcpBefore, _ := store.Balance(ctx, "addr1", config.XCP)

	numeric := assetname.GenerateRandomAsset()
	message := packSubassetIssuance(mustAssetID(t, e, numeric, 320000), 100,
		true, true, true, true, true, "PARENT.child", "")
	tx := Tx{TxIndex: 2, TxHash: "tx2", BlockIndex: 320000, Source: "addr1"}
	if err := e.Parse(ctx, tx, message, SubassetID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	row := rowByHash(t, store, "tx2")
	if row.Status != "valid" {
		t.Fatalf("unexpected status %q", row.Status)
	}
	if row.FeePaid != config.UNIT/4 {
		t.Fatalf("expected sub-asset fee %d, got %d", config.UNIT/4, row.FeePaid)
	}
	if row.AssetLongname.String != "PARENT.child" {
		t.Fatalf("unexpected longname %q", row.AssetLongname.String)
	}

	registered, err := store.AssetByLongname(ctx, "PARENT.child")
	if err != nil {
		t.Fatalf("registry row: %v", err)
	}
	if registered.AssetName != numeric {
		t.Fatalf("registry name %q, want %q", registered.AssetName, numeric)
	}
	if held, _ := store.Balance(ctx, "addr1", numeric); held != 100 {
		t.Fatalf("expected 100 units credited, got %d", held)
	}
	if held, _ := store.Balance(ctx, "addr1", config.XCP); held != xcpBefore-config.UNIT/4 {
		t.Fatalf("fee not debited, balance %d", held)
	}
}

func TestParseNonFungibleSubasset(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)

	numeric := assetname.GenerateRandomAsset()
	message := packSubassetIssuance(mustAssetID(t, e, numeric, 320000), 1,
		false, true, true, true, false, "group.nft1", "")
	tx := Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 320000, Source: "addr1"}
	if err := e.Parse(ctx, tx, message, SubassetID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	row := rowByHash(t, store, "tx1")
	if row.Status != "valid" {
		t.Fatalf("unexpected status %q", row.Status)
	}
	if !row.Locked || row.Divisible.Bool || row.Fungible.Bool {
		t.Fatalf("non-fungible row must be locked and indivisible: %+v", row)
	}
	if row.FeePaid != config.UNIT/400 {
		t.Fatalf("expected non-fungible fee %d, got %d", config.UNIT/400, row.FeePaid)
	}

	// The long-name registers as a group, not as a sub-asset.
	registered, err := store.AssetByName(ctx, numeric)
	if err != nil {
		t.Fatalf("registry row: %v", err)
	}
	if registered.AssetLongname.Valid || registered.AssetGroup.String != "group.nft1" {
		t.Fatalf("unexpected registry row: %+v", registered)
	}
	group, err := store.LastValidAssetGroup(ctx, "group")
	if err != nil {
		t.Fatalf("group registration missing: %v", err)
	}
	if group.Issuer != "addr1" {
		t.Fatalf("unexpected group issuer %q", group.Issuer)
	}

	// The group owner is enforced for later members.
	other := assetname.GenerateRandomAsset()
	second := packSubassetIssuance(mustAssetID(t, e, other, 320000), 1,
		false, true, true, true, false, "group.nft2", "")
	if err := e.Parse(ctx, Tx{TxIndex: 2, TxHash: "tx2", BlockIndex: 320000, Source: "addr2"}, second, SubassetID); err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if row := rowByHash(t, store, "tx2"); !strings.Contains(row.Status, "asset group owned by another address") {
		t.Fatalf("unexpected status %q", row.Status)
	}
}

func TestParseTransfer(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)
	issueAsset(t, e, 1, "addr1", "TOKEN", 1000, 320000)
	xcpBefore, _ := store.Balance(ctx, "addr1", config.XCP)

	message := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 0,
		true, true, true, true, true, false, 0, 0, "")
	tx := Tx{TxIndex: 2, TxHash: "tx2", BlockIndex: 320000, Source: "addr1", Destination: "addr2"}
	if err := e.Parse(ctx, tx, message, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	row := rowByHash(t, store, "tx2")
	if row.Status != "valid" || !row.Transfer {
		t.Fatalf("expected valid transfer, got %+v", row)
	}
	if row.Issuer != "addr2" || row.Source != "addr1" {
		t.Fatalf("issuer must follow the destination: %+v", row)
	}
	if row.FeePaid != 0 {
		t.Fatalf("transfers of existing assets pay no fee, got %d", row.FeePaid)
	}
	if held, _ := store.Balance(ctx, "addr1", "TOKEN"); held != 1000 {
		t.Fatalf("transfer must not move units, balance %d", held)
	}
	if held, _ := store.Balance(ctx, "addr1", config.XCP); held != xcpBefore {
		t.Fatalf("unexpected debit, balance %d", held)
	}

	// After the transfer only the new issuer may reissue.
	reissue := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 5,
		true, true, true, true, true, false, 0, 0, "")
	if err := e.Parse(ctx, Tx{TxIndex: 3, TxHash: "tx3", BlockIndex: 320000, Source: "addr1"}, reissue, ID); err != nil {
		t.Fatalf("reissue parse: %v", err)
	}
	if row := rowByHash(t, store, "tx3"); !strings.Contains(row.Status, "issued by another address") {
		t.Fatalf("unexpected status %q", row.Status)
	}
}

func TestParseIntegerOverflowSuppressesRow(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()
	fundXCP(t, store, "addr1", 10*config.UNIT)
	issueAsset(t, e, 1, "addr1", "TOKEN", 1000, 320000)

	// Push the recorded supply to the ceiling by hand.
	if err := store.InsertIssuance(ctx, ledger.Issuance{
		TxIndex:    2,
		TxHash:     "tx2",
		BlockIndex: 320000,
		Asset:      nullString("TOKEN"),
		Quantity:   nullInt64(config.MaxInt - 10 - 1000),
		Divisible:  nullBool(true),
		Listed:     nullBool(true), Reassignable: nullBool(true),
		Vendable: nullBool(true), Fungible: nullBool(true),
		Callable: nullBool(false),
		CallDate: nullInt64(0), CallPrice: nullFloat64(0),
		Description: nullString(""),
		Source:      "addr1", Issuer: "addr1", Status: "valid",
	}); err != nil {
		t.Fatalf("seed ceiling row: %v", err)
	}

	message := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 100,
		true, true, true, true, true, false, 0, 0, "")
	tx := Tx{TxIndex: 3, TxHash: "tx3", BlockIndex: 320000, Source: "addr1"}
	if err := e.Parse(ctx, tx, message, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := store.IssuanceByTxHash(ctx, "tx3"); err != ledger.ErrNotFound {
		t.Fatalf("overflowing issuance must not persist a row, got %v", err)
	}
	if held, _ := store.Balance(ctx, "addr1", "TOKEN"); held != 1000 {
		t.Fatalf("overflowing issuance must not credit, balance %d", held)
	}
}

func TestParseUnpackFailurePersistsStubRow(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()

	tx := Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 320000, Source: "addr1"}
	if err := e.Parse(ctx, tx, []byte{1, 2, 3}, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}

	row := rowByHash(t, store, "tx1")
	if row.Status != "invalid: could not unpack" {
		t.Fatalf("unexpected status %q", row.Status)
	}
	if row.Asset.Valid || row.Quantity.Valid || row.Divisible.Valid {
		t.Fatalf("stub row must keep message fields NULL: %+v", row)
	}
}

func TestParseBadAssetID(t *testing.T) {
	e, store := parseTestEngine(t)
	ctx := context.Background()

	// Id below the alphabetic floor has no textual form.
	message := packIssuance(26, 10, true, true, true, true, true, false, 0, 0, "")
	tx := Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 320000, Source: "addr1"}
	if err := e.Parse(ctx, tx, message, ID); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if row := rowByHash(t, store, "tx1"); row.Status != "invalid: bad asset name" || row.Asset.Valid {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestParseDeterministic(t *testing.T) {
	run := func() ledger.Issuance {
		e, store := parseTestEngine(t)
		ctx := context.Background()
		fundXCP(t, store, "addr1", config.UNIT)
		message := packIssuance(mustAssetID(t, e, "TOKEN", 320000), 1000,
			true, true, true, true, true, false, 0, 0, "desc")
		tx := Tx{TxIndex: 1, TxHash: "tx1", BlockIndex: 320000, Source: "addr1"}
		if err := e.Parse(ctx, tx, message, ID); err != nil {
			t.Fatalf("parse: %v", err)
		}
		return rowByHash(t, store, "tx1")
	}
	if first, second := run(), run(); first != second {
		t.Fatalf("parse is not deterministic:\n%+v\n%+v", first, second)
	}
}
