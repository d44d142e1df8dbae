package issuance

import (
	"context"
	"fmt"

	"mintchain/assetname"
	"mintchain/ledger"
	"mintchain/protocol"
)

// ComposeRequest describes an outgoing issuance. Nil property pointers take
// their protocol defaults during validation.
type ComposeRequest struct {
	Source              string
	TransferDestination string
	Asset               string
	Quantity            int64
	Divisible           *bool
	Listed              *bool
	Reassignable        *bool
	Vendable            *bool
	Fungible            *bool
	Description         string
}

// Output is one host-chain destination of a composed transaction. Value is
// nil when the host assembler should use its default output amount.
type Output struct {
	Address string
	Value   *int64
}

// Composed is a validated, serialised issuance ready for host-chain
// transaction assembly.
type Composed struct {
	Source  string
	Outputs []Output
	Data    []byte
}

// Compose validates an outgoing issuance against current ledger state and
// serialises it. Validation failures surface as *ComposeError.
func (e *Engine) Compose(ctx context.Context, req ComposeRequest, blockIndex int64) (Composed, error) {
	if req.Quantity < 0 {
		return Composed{}, &ComposeError{Problems: []string{"negative quantity"}}
	}

	// Callability is deprecated: re-issuances inherit the old values, first
	// issuances are uncallable.
	callable := false
	var callDate int64
	var callPrice float64
	last, err := e.store.LastValidIssuance(ctx, req.Asset)
	switch err {
	case nil:
		callable = last.Callable.Bool
		callDate = last.CallDate.Int64
		callPrice = last.CallPrice.Float64
	case ledger.ErrNotFound:
	default:
		return Composed{}, err
	}

	asset := req.Asset
	subassetParent := ""
	var subassetLongname *string
	switch {
	case e.gates.Enabled(protocol.GateSubassets, blockIndex) && boolOrDefault(req.Fungible, true):
		parent, longname, err := assetname.ParseSubassetFromAssetName(req.Asset)
		if err != nil {
			return Composed{}, err
		}
		if longname != "" {
			subassetParent = parent
			subassetLongname = &longname
			row, err := e.store.AssetByLongname(ctx, longname)
			switch err {
			case nil:
				// Re-issuance of an existing sub-asset.
				asset = row.AssetName
			case ledger.ErrNotFound:
				// New issuance: a fresh numeric id maps to the long-name.
				asset = assetname.GenerateRandomAsset()
			default:
				return Composed{}, err
			}
		}
	case e.gates.Enabled(protocol.GateNonFungibleAssets, blockIndex) && req.Fungible != nil && !*req.Fungible:
		// Non-fungible is always a new issuance under a fresh numeric parent.
		subassetParent = assetname.GenerateRandomAsset()
		longname := req.Asset
		subassetLongname = &longname
		asset = subassetParent
	}

	res, err := e.Validate(ctx, Candidate{
		Source:           req.Source,
		Destination:      req.TransferDestination,
		Asset:            asset,
		Quantity:         uint64(req.Quantity),
		Divisible:        req.Divisible,
		Listed:           req.Listed,
		Reassignable:     req.Reassignable,
		Vendable:         req.Vendable,
		Fungible:         req.Fungible,
		Callable:         callable,
		CallDate:         callDate,
		CallPrice:        callPrice,
		Description:      req.Description,
		SubassetParent:   subassetParent,
		SubassetLongname: subassetLongname,
		BlockIndex:       blockIndex,
	})
	if err != nil {
		return Composed{}, err
	}
	if len(res.Problems) > 0 {
		return Composed{}, &ComposeError{Problems: res.Problems}
	}

	assetID, err := assetname.GenerateAssetID(e.gates, asset, blockIndex)
	if err != nil {
		return Composed{}, fmt.Errorf("resolve asset id: %w", err)
	}

	var data []byte
	if subassetLongname == nil || res.Reissuance {
		// Type 20: standard issuances and all re-issuances.
		data = packMessageType(e.gates, ID, blockIndex)
		data = append(data, packIssuance(assetID, uint64(req.Quantity), res.Divisible,
			res.Listed, res.Reassignable, res.Vendable, res.Fungible, callable,
			res.CallDate, res.CallPrice, res.Description)...)
	} else {
		// Type 21: initial sub-asset and non-fungible issuance.
		data = packMessageType(e.gates, SubassetID, blockIndex)
		data = append(data, packSubassetIssuance(assetID, uint64(req.Quantity),
			res.Divisible, res.Listed, res.Reassignable, res.Vendable, res.Fungible,
			*subassetLongname, res.Description)...)
	}

	composed := Composed{Source: req.Source, Data: data}
	if req.TransferDestination != "" {
		composed.Outputs = []Output{{Address: req.TransferDestination}}
	}
	return composed, nil
}
