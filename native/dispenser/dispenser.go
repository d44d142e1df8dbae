// Package dispenser exposes the single query the issuance core needs from
// the companion dispenser message type: whether any dispenser is currently
// open on an asset. The dispenser state machine itself lives with the host.
package dispenser

import "context"

// Store answers open-dispenser lookups.
type Store interface {
	OpenDispenserExists(ctx context.Context, asset string) (bool, error)
}

// IsOpened reports whether the asset has at least one open dispenser.
func IsOpened(ctx context.Context, store Store, asset string) (bool, error) {
	return store.OpenDispenserExists(ctx, asset)
}
