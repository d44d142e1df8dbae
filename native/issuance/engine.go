// Package issuance implements the consensus-critical issuance message: its
// wire codec, the validation state machine, the height-indexed fee schedule,
// and the ledger mutations applied when a message is accepted.
package issuance

import (
	"context"
	"fmt"
	"strings"

	"mintchain/core/events"
	"mintchain/ledger"
	"mintchain/observability/metrics"
	"mintchain/protocol"
)

// Store is the slice of ledger capability the issuance core consumes.
type Store interface {
	Migrate() error
	MigrateAssetGroups() error
	ValidIssuances(ctx context.Context, asset string) ([]ledger.Issuance, error)
	LastValidIssuance(ctx context.Context, asset string) (ledger.Issuance, error)
	InsertIssuance(ctx context.Context, row ledger.Issuance) error
	AssetByLongname(ctx context.Context, longname string) (ledger.Asset, error)
	AssetByTxHash(ctx context.Context, txHash string) (string, error)
	ResolveSubassetLongname(ctx context.Context, asset string) (string, error)
	InsertAsset(ctx context.Context, row ledger.Asset) error
	InsertAssetGroup(ctx context.Context, row ledger.AssetGroup) error
	LastValidAssetGroup(ctx context.Context, group string) (ledger.AssetGroup, error)
	Balance(ctx context.Context, address, asset string) (int64, error)
	Debit(ctx context.Context, blockIndex int64, address, asset string, quantity int64, action, event string) error
	Credit(ctx context.Context, blockIndex int64, address, asset string, quantity int64, action, event string) error
	OpenDispenserExists(ctx context.Context, asset string) (bool, error)
}

// Engine wires the issuance state machine to the ledger store, the
// feature-gate table, and event emission.
type Engine struct {
	store   Store
	gates   *protocol.Table
	emitter events.Emitter
	metrics *metrics.IssuanceMetrics
}

// NewEngine constructs an issuance engine over the given store and gates.
func NewEngine(store Store, gates *protocol.Table) *Engine {
	return &Engine{
		store:   store,
		gates:   gates,
		emitter: events.NoopEmitter{},
		metrics: metrics.Issuance(),
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// Initialise applies the ledger schema consumed by the issuance core.
func (e *Engine) Initialise() error {
	if e == nil || e.store == nil {
		return fmt.Errorf("issuance: store not configured")
	}
	return e.store.Migrate()
}

// Tx is the host-chain transaction context for one inbound message.
type Tx struct {
	TxIndex     int64
	TxHash      string
	BlockIndex  int64
	Source      string
	Destination string
}

// ComposeError carries the validation problems that rejected a compose call.
type ComposeError struct {
	Problems []string
}

func (e *ComposeError) Error() string {
	return "issuance: compose rejected: " + strings.Join(e.Problems, "; ")
}
