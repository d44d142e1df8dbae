package assetgroup

import (
	"context"
	"path/filepath"
	"testing"

	"mintchain/ledger"
)

func openTestStore(t *testing.T) *ledger.Store {
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
	return store
}

func TestGroupOf(t *testing.T) {
	cases := map[string]string{
		"group.nft1":        "group",
		"group.nested.nft1": "group",
		"solo":              "solo",
	}
	for longname, want := range cases {
		if got := GroupOf(longname); got != want {
			t.Fatalf("GroupOf(%q) = %q, want %q", longname, got, want)
		}
	}
}

func TestValidateOwnership(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Unregistered groups are open to anyone.
	problems, err := Validate(ctx, store, "group.nft1", "addr1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("unexpected problems %v", problems)
	}

	if err := Create(ctx, store, 1, "tx1", 100, "group.nft1", "addr1", "valid"); err != nil {
		t.Fatalf("create: %v", err)
	}

	problems, err = Validate(ctx, store, "group.nft2", "addr1")
	if err != nil || len(problems) != 0 {
		t.Fatalf("owner rejected: %v / %v", problems, err)
	}
	problems, err = Validate(ctx, store, "group.nft2", "addr2")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(problems) != 1 || problems[0] != "asset group owned by another address" {
		t.Fatalf("unexpected problems %v", problems)
	}
}

func TestInvalidRegistrationsDoNotClaimGroups(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := Create(ctx, store, 1, "tx1", 100, "group.nft1", "addr1", "invalid: insufficient funds"); err != nil {
		t.Fatalf("create: %v", err)
	}
	problems, err := Validate(ctx, store, "group.nft2", "addr2")
	if err != nil || len(problems) != 0 {
		t.Fatalf("invalid registration must not claim the group: %v / %v", problems, err)
	}
}
