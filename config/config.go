package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the node-level settings consumed by the issuance subsystem.
type Config struct {
	Network      string `toml:"Network"`
	DatabasePath string `toml:"DatabasePath"`
	GateOverride string `toml:"GateOverride"`
	LogEnv       string `toml:"LogEnv"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if _, err := ParseNetwork(cfg.Network); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Network:      Mainnet.String(),
		DatabasePath: "./issuance-data/ledger.sqlite",
		LogEnv:       "dev",
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Network selects the chain the ledger follows. Testnet and regtest activate
// every protocol-version branch regardless of block height.
type Network int

const (
	Mainnet Network = iota
	Testnet
	Regtest
)

// String returns the canonical lowercase network name.
func (n Network) String() string {
	switch n {
	case Testnet:
		return "testnet"
	case Regtest:
		return "regtest"
	default:
		return "mainnet"
	}
}

// ParseNetwork maps a configuration string onto a network selector.
func ParseNetwork(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mainnet":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	case "regtest":
		return Regtest, nil
	}
	return Mainnet, fmt.Errorf("config: unknown network %q", name)
}

// Permissive reports whether the network unconditionally enables
// height-gated protocol branches.
func (n Network) Permissive() bool {
	return n == Testnet || n == Regtest
}
