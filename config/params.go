package config

// Symbolic names of the host-chain coin and the protocol's native asset.
// Both are reserved: neither may ever be issued.
const (
	BTC = "BTC"
	XCP = "XCP"
)

// UNIT is the base-unit multiplier for native-asset amounts.
const UNIT = 100000000

// MaxInt is the ledger ceiling on quantities and fees. SQLite stores
// INTEGER columns as signed 64-bit values, so anything above this would
// corrupt the stored row.
const MaxInt int64 = 1<<63 - 1
