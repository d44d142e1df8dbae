package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network != "mainnet" || cfg.DatabasePath == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	// A second load reads the file back.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("reload mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadRejectsUnknownNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("Network = \"moonnet\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown network error")
	}
}

func TestParseNetwork(t *testing.T) {
	cases := map[string]Network{
		"":        Mainnet,
		"mainnet": Mainnet,
		"TESTNET": Testnet,
		" regtest ": Regtest,
	}
	for in, want := range cases {
		got, err := ParseNetwork(in)
		if err != nil || got != want {
			t.Fatalf("ParseNetwork(%q) = %v, %v", in, got, err)
		}
	}
	if !Testnet.Permissive() || !Regtest.Permissive() || Mainnet.Permissive() {
		t.Fatalf("permissive flags wrong")
	}
}
