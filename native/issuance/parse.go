package issuance

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"mintchain/assetname"
	"mintchain/config"
	"mintchain/core/events"
	"mintchain/ledger"
	"mintchain/native/assetgroup"
	"mintchain/protocol"
)

const (
	statusValid          = "valid"
	statusCouldNotUnpack = "invalid: could not unpack"
	statusBadAssetName   = "invalid: bad asset name"
	statusBadSubasset    = "invalid: bad subasset name"
	statusBadAssetGroup  = "invalid: bad assetgroup name"
)

// Parse decodes one inbound issuance message, validates it against prior
// ledger state, and applies the resulting mutations. Decode, name, and
// validation failures persist a journal row with a descriptive status (plus a
// group registration row for non-fungible or undecodable messages) and leave
// balances and the asset registry untouched; a status containing "integer
// overflow" writes no journal row. Only ledger I/O failures return an error.
func (e *Engine) Parse(ctx context.Context, tx Tx, message []byte, messageTypeID uint32) error {
	var (
		decoded          wireIssuance
		decodeOK         bool
		asset            string
		subassetLongname *string
		status           string
	)

	unpacked, err := e.unpackMessage(messageTypeID, message, tx.BlockIndex)
	switch {
	case errors.Is(err, ErrUnpack):
		status = statusCouldNotUnpack
	case err != nil:
		return err
	default:
		decoded = unpacked
		decodeOK = true
		if messageTypeID == SubassetID {
			longname := decoded.SubassetLongname
			subassetLongname = &longname
		}
		name, err := assetname.GenerateAssetName(e.gates, decoded.AssetID, tx.BlockIndex)
		if err != nil {
			status = statusBadAssetName
		} else {
			asset = name
			status = statusValid
		}
	}

	// Resolve and validate the sub-asset long-name.
	subassetParent := ""
	if status == statusValid && subassetLongname != nil {
		if decoded.Fungible {
			parent, longname, err := assetname.ParseSubassetFromAssetName(*subassetLongname)
			if err != nil || longname == "" {
				asset = ""
				status = statusBadSubasset
			} else {
				subassetParent = parent
				subassetLongname = &longname
			}
		} else {
			subassetParent = asset
			if err := assetname.ValidateSubassetLongname(*subassetLongname, *subassetLongname); err != nil {
				asset = ""
				status = statusBadAssetGroup
			}
		}
	}

	quantity := decoded.Quantity
	var res Result
	if status == statusValid {
		var err error
		res, err = e.Validate(ctx, Candidate{
			Source:           tx.Source,
			Destination:      tx.Destination,
			Asset:            asset,
			Quantity:         quantity,
			Divisible:        &decoded.Divisible,
			Listed:           &decoded.Listed,
			Reassignable:     &decoded.Reassignable,
			Vendable:         &decoded.Vendable,
			Fungible:         &decoded.Fungible,
			Callable:         decoded.Callable,
			CallDate:         decoded.CallDate,
			CallPrice:        decoded.CallPrice,
			Description:      decoded.Description,
			SubassetParent:   subassetParent,
			SubassetLongname: subassetLongname,
			BlockIndex:       tx.BlockIndex,
		})
		if err != nil {
			return err
		}
		if len(res.Problems) > 0 {
			status = "invalid: " + strings.Join(res.Problems, "; ")
		}
		if !e.gates.Enabled(protocol.GateIntegerOverflowFix, tx.BlockIndex) && containsProblem(res.Problems, "total quantity overflow") {
			quantity = 0
		}
	} else if decodeOK {
		// Validation never ran; carry the decoded values into the row.
		res = Result{
			CallDate:     decoded.CallDate,
			CallPrice:    decoded.CallPrice,
			Description:  decoded.Description,
			Divisible:    decoded.Divisible,
			Listed:       decoded.Listed,
			Reassignable: decoded.Reassignable,
			Vendable:     decoded.Vendable,
			Fungible:     decoded.Fungible,
		}
	}

	// A set host-chain destination makes this a transfer, never a mint.
	issuer := tx.Source
	transfer := false
	if tx.Destination != "" {
		issuer = tx.Destination
		transfer = true
		quantity = 0
	}

	// Debit fee.
	if status == statusValid {
		if err := e.store.Debit(ctx, tx.BlockIndex, tx.Source, config.XCP, res.Fee, "issuance fee", tx.TxHash); err != nil {
			return err
		}
		e.metrics.ObserveFee(res.Fee)
	}

	lock := false
	if status == statusValid {
		if !res.Reissuance {
			// Add to the asset registry.
			row := ledger.Asset{
				AssetID:    strconv.FormatUint(decoded.AssetID, 10),
				AssetName:  asset,
				BlockIndex: tx.BlockIndex,
			}
			if subassetLongname != nil {
				if res.Fungible {
					row.AssetLongname = sql.NullString{String: *subassetLongname, Valid: true}
				} else {
					row.AssetGroup = sql.NullString{String: *subassetLongname, Valid: true}
				}
			}
			if err := e.store.InsertAsset(ctx, row); err != nil {
				return err
			}
			if !res.Fungible {
				lock = true
			}
			e.emit(events.AssetRegistered{
				AssetID:    row.AssetID,
				AssetName:  row.AssetName,
				Longname:   row.AssetLongname.String,
				AssetGroup: row.AssetGroup.String,
				BlockIndex: tx.BlockIndex,
			})
		} else if strings.ToLower(res.Description) == "lock" {
			// Locking re-issuance: the magic description is replaced by the
			// previous issuance's description.
			lock = true
			prior, err := e.store.ValidIssuances(ctx, asset)
			if err != nil {
				return err
			}
			res.Description = prior[len(prior)-1].Description.String
		}
	}

	// Re-issuances carry the registered long-name for API lookups; first
	// issuances carry the decoded one.
	var rowLongname sql.NullString
	if status == statusValid && res.Reissuance {
		rowLongname = res.ReissuedLongname
	} else if subassetLongname != nil {
		rowLongname = sql.NullString{String: *subassetLongname, Valid: true}
	}

	row := ledger.Issuance{
		TxIndex:       tx.TxIndex,
		TxHash:        tx.TxHash,
		MsgIndex:      0,
		BlockIndex:    tx.BlockIndex,
		Source:        tx.Source,
		Issuer:        issuer,
		Transfer:      transfer,
		FeePaid:       res.Fee,
		Locked:        lock,
		Status:        status,
		AssetLongname: rowLongname,
	}
	if decodeOK {
		if asset != "" {
			row.Asset = sql.NullString{String: asset, Valid: true}
		}
		row.Quantity = sql.NullInt64{Int64: int64(quantity), Valid: true}
		row.Divisible = sql.NullBool{Bool: res.Divisible, Valid: true}
		row.Listed = sql.NullBool{Bool: res.Listed, Valid: true}
		row.Reassignable = sql.NullBool{Bool: res.Reassignable, Valid: true}
		row.Vendable = sql.NullBool{Bool: res.Vendable, Valid: true}
		row.Fungible = sql.NullBool{Bool: res.Fungible, Valid: true}
		row.Callable = sql.NullBool{Bool: decoded.Callable, Valid: true}
		row.CallDate = sql.NullInt64{Int64: res.CallDate, Valid: true}
		row.CallPrice = sql.NullFloat64{Float64: res.CallPrice, Valid: true}
		row.Description = sql.NullString{String: res.Description, Valid: true}
	}

	if !strings.Contains(status, "integer overflow") {
		if err := e.store.InsertIssuance(ctx, row); err != nil {
			return err
		}
		e.emit(events.IssuanceRecorded{
			TxHash:     tx.TxHash,
			BlockIndex: tx.BlockIndex,
			Asset:      asset,
			Quantity:   int64(quantity),
			Status:     status,
			Transfer:   transfer,
			Locked:     lock,
		})
	} else {
		slog.Warn("not storing issuance", "tx_hash", tx.TxHash, "status", status)
	}
	e.metrics.ObserveParse(status)

	// Non-fungible rows register their group alongside the journal. A
	// failed decode leaves the fungibility unknown and records the group
	// row with the failure status.
	if !decodeOK || !res.Fungible {
		if err := assetgroup.Create(ctx, e.store, tx.TxIndex, tx.TxHash, tx.BlockIndex, rowLongname.String, issuer, status); err != nil {
			return err
		}
	}

	// Credit.
	if status == statusValid && quantity != 0 {
		if err := e.store.Credit(ctx, tx.BlockIndex, tx.Source, asset, int64(quantity), "issuance", tx.TxHash); err != nil {
			return err
		}
	}
	return nil
}

func containsProblem(problems []string, problem string) bool {
	for _, p := range problems {
		if p == problem {
			return true
		}
	}
	return false
}
