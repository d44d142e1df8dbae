package issuance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"mintchain/config"
	"mintchain/ledger"
	"mintchain/native/assetgroup"
	"mintchain/native/dispenser"
	"mintchain/protocol"
)

// Candidate is one issuance awaiting validation. Nil property pointers take
// their protocol defaults; SubassetLongname is nil for plain issuances.
type Candidate struct {
	Source           string
	Destination      string
	Asset            string
	Quantity         uint64
	Divisible        *bool
	Listed           *bool
	Reassignable     *bool
	Vendable         *bool
	Fungible         *bool
	Callable         bool
	CallDate         int64
	CallPrice        float64
	Description      string
	SubassetParent   string
	SubassetLongname *string
	BlockIndex       int64
}

// Result carries the resolved candidate, the problems that would invalidate
// it, and the fee owed.
type Result struct {
	CallDate         int64
	CallPrice        float64
	Problems         []string
	Fee              int64
	Description      string
	Divisible        bool
	Listed           bool
	Reassignable     bool
	Vendable         bool
	Fungible         bool
	Reissuance       bool
	ReissuedLongname sql.NullString
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Validate runs the issuance state machine over a candidate and the prior
// ledger state. Problems are collected, never raised; only ledger I/O
// failures return an error.
func (e *Engine) Validate(ctx context.Context, c Candidate) (Result, error) {
	res := Result{
		CallDate:     c.CallDate,
		CallPrice:    c.CallPrice,
		Description:  c.Description,
		Divisible:    boolOrDefault(c.Divisible, true),
		Listed:       boolOrDefault(c.Listed, true),
		Reassignable: boolOrDefault(c.Reassignable, true),
		Vendable:     boolOrDefault(c.Vendable, true),
		Fungible:     boolOrDefault(c.Fungible, true),
	}
	problems := []string{}
	permissive := e.gates.Network().Permissive()

	if c.Asset == config.BTC || c.Asset == config.XCP {
		problems = append(problems, fmt.Sprintf("cannot issue %s or %s", config.BTC, config.XCP))
	}

	if e.gates.Enabled(protocol.GateNonFungibleAssets, c.BlockIndex) {
		if !res.Fungible {
			if res.Divisible {
				problems = append(problems, "Cannot create the asset with non-fungible and divisible")
			} else if c.Quantity != 1 {
				problems = append(problems, "non-fungible asset can issue only 1 asset")
			}
		}
	} else if !res.Fungible {
		problems = append(problems, "non-fungible assets not enabled")
	}

	if res.CallPrice < 0 {
		problems = append(problems, "negative call price")
	}
	if res.CallDate < 0 {
		problems = append(problems, "negative call date")
	}

	// Callable, or not.
	if !c.Callable {
		if c.BlockIndex >= 312500 || permissive {
			res.CallDate = 0
			res.CallPrice = 0.0
		} else if c.BlockIndex >= 310000 {
			if res.CallDate != 0 {
				problems = append(problems, "call date for non-callable asset")
			}
			if res.CallPrice != 0 {
				problems = append(problems, "call price for non-callable asset")
			}
		}
	}

	// Valid re-issuance?
	issuances, err := e.store.ValidIssuances(ctx, c.Asset)
	if err != nil {
		return Result{}, err
	}
	if len(issuances) > 0 {
		res.Reissuance = true
		last := issuances[len(issuances)-1]
		res.ReissuedLongname = last.AssetLongname

		issuanceLocked := false
		if e.gates.Enabled(protocol.GateIssuanceLockFix, c.BlockIndex) {
			for _, row := range issuances {
				if row.Locked {
					issuanceLocked = true
					break
				}
			}
		} else if last.Locked {
			// Before the lock fix only the most recent issuance counted.
			issuanceLocked = true
		}

		if last.Issuer != c.Source {
			problems = append(problems, "issued by another address")
		}
		if last.Divisible.Bool != res.Divisible {
			problems = append(problems, "cannot change divisibility")
		}
		if last.Listed.Bool != res.Listed {
			problems = append(problems, "cannot change listing flag")
		}
		if last.Reassignable.Bool != res.Reassignable {
			problems = append(problems, "cannot change reassignable flag")
		}
		if last.Vendable.Bool != res.Vendable {
			// A stored false is immutable on its own; the fix gate makes
			// the flag immutable in both directions. NULL cells from
			// legacy rows compare as false but do not count as a stored
			// false here.
			if (last.Vendable.Valid && !last.Vendable.Bool) || e.gates.Enabled(protocol.GateVendableFix, c.BlockIndex) {
				problems = append(problems, "Cannot change vendable flag")
			} else {
				opened, err := dispenser.IsOpened(ctx, e.store, c.Asset)
				if err != nil {
					return Result{}, err
				}
				if opened {
					problems = append(problems, "Cannot change vendable flag because the asset is dispending")
				}
			}
		}
		if last.Callable.Bool != c.Callable {
			problems = append(problems, "cannot change callability")
		}
		// The zeroing exemption never applied below the deprecation height,
		// on any network.
		if last.CallDate.Int64 > res.CallDate && (res.CallDate != 0 || c.BlockIndex < 312500) {
			problems = append(problems, "cannot advance call date")
		}
		if last.CallPrice.Float64 > res.CallPrice {
			problems = append(problems, "cannot reduce call price")
		}
		if issuanceLocked && c.Quantity != 0 {
			problems = append(problems, "locked asset and non-zero quantity")
		}
	} else {
		if strings.ToLower(res.Description) == "lock" && res.Fungible {
			problems = append(problems, "cannot lock a non-existent asset")
		}
		if c.Destination != "" {
			problems = append(problems, "cannot transfer a non-existent asset")
		}
	}

	// Parent ownership for sub-assets and asset groups.
	if c.SubassetLongname != nil {
		if res.Fungible {
			parentIssuances, err := e.store.ValidIssuances(ctx, c.SubassetParent)
			if err != nil {
				return Result{}, err
			}
			if len(parentIssuances) > 0 {
				if parentIssuances[len(parentIssuances)-1].Issuer != c.Source {
					problems = append(problems, "parent asset owned by another address")
				}
			} else {
				problems = append(problems, "parent asset not found")
			}
		} else {
			groupProblems, err := assetgroup.Validate(ctx, e.store, *c.SubassetLongname, c.Source)
			if err != nil {
				return Result{}, err
			}
			problems = append(problems, groupProblems...)
		}
	}

	if c.SubassetLongname != nil && !res.Reissuance {
		if res.Fungible {
			// A fungible sub-asset long-name registers exactly once.
			_, err := e.store.AssetByLongname(ctx, *c.SubassetLongname)
			switch err {
			case nil:
				problems = append(problems, "subasset already exists")
			case ledger.ErrNotFound:
			default:
				return Result{}, err
			}
		}
		if len(c.Asset) == 0 || c.Asset[0] != 'A' {
			problems = append(problems, "parent asset must be a numeric asset")
		}
	}

	// Check for existence of fee funds.
	if c.Quantity != 0 || c.BlockIndex >= 315000 || permissive {
		if !res.Reissuance || (c.BlockIndex < 310000 && !permissive) {
			balance, err := e.store.Balance(ctx, c.Source, config.XCP)
			if err != nil {
				return Result{}, err
			}
			res.Fee = e.fee(c, res.Fungible)
			if res.Fee > 0 && balance < res.Fee {
				problems = append(problems, "insufficient funds")
			}
		}
	}

	if !(c.BlockIndex >= 317500 || permissive) {
		if utf8.RuneCountInString(res.Description) > 42 {
			problems = append(problems, "description too long")
		}
	}

	if !res.Listed && !e.gates.Enabled(protocol.GateDelistedAssets, c.BlockIndex) {
		problems = append(problems, "invalid: delisted assets not supported yet.")
	}
	if !res.Reassignable && !e.gates.Enabled(protocol.GateNonReassignableAssets, c.BlockIndex) {
		problems = append(problems, "invalid: non-reassignable assets not supported yet.")
	}

	// The call date is capped to the ledger ceiling before the supply total
	// is checked; the order is part of observed history.
	if res.CallDate > config.MaxInt {
		res.CallDate = config.MaxInt
	}
	var total uint64
	for _, row := range issuances {
		total += uint64(row.Quantity.Int64)
	}
	totalOverflow := c.Quantity > uint64(config.MaxInt)-total
	if totalOverflow {
		problems = append(problems, "total quantity overflow")
	}

	if c.Destination != "" && c.Quantity != 0 {
		problems = append(problems, "cannot issue and transfer simultaneously")
	}

	// Under the overflow fix any quantity that would breach the ledger
	// ceiling, in one message or summed over the asset's history, rejects
	// outright instead of storing a clamped row.
	if e.gates.Enabled(protocol.GateIntegerOverflowFix, c.BlockIndex) && (res.Fee > config.MaxInt || c.Quantity > uint64(config.MaxInt) || totalOverflow) {
		problems = append(problems, "integer overflow")
	}

	res.Problems = problems
	return res, nil
}

// fee computes the issuance fee in native base units. Callers have already
// applied the quantity and reissuance gates.
func (e *Engine) fee(c Candidate, fungible bool) int64 {
	permissive := e.gates.Network().Permissive()
	var fee int64
	switch {
	case e.gates.Enabled(protocol.GateNumericAssetNames, c.BlockIndex):
		switch {
		case c.SubassetLongname != nil:
			if e.gates.Enabled(protocol.GateSubassets, c.BlockIndex) && fungible {
				fee = config.UNIT / 4
			} else if e.gates.Enabled(protocol.GateNonFungibleAssets, c.BlockIndex) && !fungible {
				fee = config.UNIT / 400
			} else {
				// Same as non-fungible, though validation will reject it.
				fee = config.UNIT / 400
			}
		case len(c.Asset) >= 13:
			fee = 0
		default:
			fee = config.UNIT / 2
		}
		if e.gates.Enabled(protocol.GateFeeRevision2021Q1, c.BlockIndex) {
			fee *= 100
		}
	case c.BlockIndex >= 291700 || permissive:
		fee = config.UNIT / 2
	case c.BlockIndex >= 286000 || permissive:
		fee = 5 * config.UNIT
	case c.BlockIndex > 281236 || permissive:
		fee = 5
	}
	return fee
}
