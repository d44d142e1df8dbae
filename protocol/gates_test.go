package protocol

import (
	"os"
	"path/filepath"
	"testing"

	"mintchain/config"
)

func TestEnabledMainnetHeights(t *testing.T) {
	gates := NewTable(config.Mainnet)
	if gates.Enabled(GateNumericAssetNames, 333499) {
		t.Fatalf("gate active before its height")
	}
	if !gates.Enabled(GateNumericAssetNames, 333500) {
		t.Fatalf("gate inactive at its height")
	}
	if !gates.Enabled(GateSubassets, 800000) {
		t.Fatalf("subassets inactive after activation")
	}
}

func TestEnabledUnknownGate(t *testing.T) {
	for _, network := range []config.Network{config.Mainnet, config.Testnet, config.Regtest} {
		if NewTable(network).Enabled("no_such_gate", 1<<40) {
			t.Fatalf("unknown gate enabled on %s", network)
		}
	}
}

func TestEnabledPermissiveNetworks(t *testing.T) {
	for _, network := range []config.Network{config.Testnet, config.Regtest} {
		gates := NewTable(network)
		if !gates.Enabled(GateNonFungibleAssets, 0) {
			t.Fatalf("%s should enable gates from genesis", network)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gates.yaml")
	if err := os.WriteFile(path, []byte("fee_revision_2021_1q: 5000\n"), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}

	gates := NewTable(config.Regtest)
	if err := gates.LoadOverrides(path); err != nil {
		t.Fatalf("load overrides: %v", err)
	}
	if gates.Enabled(GateFeeRevision2021Q1, 4999) {
		t.Fatalf("override height ignored")
	}
	if !gates.Enabled(GateFeeRevision2021Q1, 5000) {
		t.Fatalf("override height not applied")
	}
	// Untouched gates keep the permissive default.
	if !gates.Enabled(GateSubassets, 0) {
		t.Fatalf("unrelated gate lost its default")
	}
}

func TestLoadOverridesRejectsUnknownGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gates.yaml")
	if err := os.WriteFile(path, []byte("tyop_gate: 1\n"), 0o600); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	if err := NewTable(config.Mainnet).LoadOverrides(path); err == nil {
		t.Fatalf("expected unknown-gate error")
	}
}
