package issuance

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"

	"mintchain/assetname"
	"mintchain/protocol"
)

// Message-type identifiers embedded ahead of the payload.
const (
	ID         = 20
	SubassetID = 21
)

const (
	// length1 is the fixed size of the legacy short layout:
	// asset id, quantity, divisibility byte.
	length1 = 8 + 8 + 1
	// length2 is the fixed part of the long layout: asset id, quantity,
	// flags, callable byte, call date, call price.
	length2 = 8 + 8 + 1 + 1 + 4 + 4
	// subassetFixed is the fixed part of the sub-asset layout: asset id,
	// quantity, flags, compacted long-name length.
	subassetFixed = 8 + 8 + 1 + 1
	// maxPascalDescription is the historical boundary between the
	// length-prefixed short description and the raw byte tail.
	maxPascalDescription = 42
)

// Flag bits of the long and sub-asset layouts. Bit 0 asserts divisibility;
// the remaining bits clear a property that defaults to true. Existing peers
// produced exactly this mapping, so it cannot change.
const (
	flagDivisible       = 0x01
	flagNotListed       = 0x02
	flagNotReassignable = 0x04
	flagNotVendable     = 0x08
	flagNotFungible     = 0x10
)

// ErrUnpack marks a payload that cannot be decoded at the message's height.
var ErrUnpack = errors.New("issuance: could not unpack")

// wireIssuance is the decoded payload of one issuance message.
type wireIssuance struct {
	AssetID          uint64
	Quantity         uint64
	Divisible        bool
	Listed           bool
	Reassignable     bool
	Vendable         bool
	Fungible         bool
	Callable         bool
	CallDate         int64
	CallPrice        float64
	Description      string
	SubassetLongname string
}

func packFlags(divisible, listed, reassignable, vendable, fungible bool) byte {
	var flags byte
	if divisible {
		flags |= flagDivisible
	}
	if !listed {
		flags |= flagNotListed
	}
	if !reassignable {
		flags |= flagNotReassignable
	}
	if !vendable {
		flags |= flagNotVendable
	}
	if !fungible {
		flags |= flagNotFungible
	}
	return flags
}

func unpackFlags(flags byte) (divisible, listed, reassignable, vendable, fungible bool) {
	return flags&flagDivisible != 0,
		flags&flagNotListed == 0,
		flags&flagNotReassignable == 0,
		flags&flagNotVendable == 0,
		flags&flagNotFungible == 0
}

// packMessageType serialises the message-type prefix: one byte once the
// short-type gate is active, four big-endian bytes before.
func packMessageType(gates *protocol.Table, id uint32, blockIndex int64) []byte {
	if gates.Enabled(protocol.GateShortTxType, blockIndex) && id <= 0xff {
		return []byte{byte(id)}
	}
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, id)
	return prefix
}

// packIssuance serialises the Type 20 long layout. Descriptions up to 42
// bytes travel as a length-prefixed string; longer ones as a raw tail.
func packIssuance(assetID, quantity uint64, divisible, listed, reassignable, vendable, fungible, callable bool, callDate int64, callPrice float64, description string) []byte {
	desc := []byte(description)
	buf := make([]byte, 0, length2+1+len(desc))
	buf = binary.BigEndian.AppendUint64(buf, assetID)
	buf = binary.BigEndian.AppendUint64(buf, quantity)
	buf = append(buf, packFlags(divisible, listed, reassignable, vendable, fungible))
	if callable {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(callDate))
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(callPrice)))
	if len(desc) <= maxPascalDescription {
		buf = append(buf, byte(len(desc)))
	}
	buf = append(buf, desc...)
	return buf
}

// packSubassetIssuance serialises the Type 21 layout. Sub-asset issuance has
// no callability fields.
func packSubassetIssuance(assetID, quantity uint64, divisible, listed, reassignable, vendable, fungible bool, longname, description string) []byte {
	compacted := assetname.CompactSubassetLongname(longname)
	desc := []byte(description)
	buf := make([]byte, 0, subassetFixed+len(compacted)+len(desc))
	buf = binary.BigEndian.AppendUint64(buf, assetID)
	buf = binary.BigEndian.AppendUint64(buf, quantity)
	buf = append(buf, packFlags(divisible, listed, reassignable, vendable, fungible))
	buf = append(buf, byte(len(compacted)))
	buf = append(buf, compacted...)
	buf = append(buf, desc...)
	return buf
}

// unpackMessage decodes an inbound payload. The layout is chosen by the
// message-type id and, for Type 20, by the message's height and length.
func (e *Engine) unpackMessage(messageTypeID uint32, message []byte, blockIndex int64) (wireIssuance, error) {
	permissive := e.gates.Network().Permissive()
	switch {
	case messageTypeID == SubassetID:
		return e.unpackSubasset(message, blockIndex)
	case (blockIndex > 283271 || permissive) && len(message) >= length2:
		return e.unpackLong(message, blockIndex)
	default:
		return unpackShort(message)
	}
}

func (e *Engine) unpackSubasset(message []byte, blockIndex int64) (wireIssuance, error) {
	if !e.gates.Enabled(protocol.GateSubassets, blockIndex) {
		return wireIssuance{}, ErrUnpack
	}
	if len(message) < subassetFixed {
		return wireIssuance{}, ErrUnpack
	}
	out := wireIssuance{
		AssetID:  binary.BigEndian.Uint64(message[0:8]),
		Quantity: binary.BigEndian.Uint64(message[8:16]),
	}
	out.Divisible, out.Listed, out.Reassignable, out.Vendable, out.Fungible = unpackFlags(message[16])
	compactedLength := int(message[17])
	descriptionLength := len(message) - subassetFixed - compactedLength
	if descriptionLength < 0 {
		return wireIssuance{}, ErrUnpack
	}
	compacted := message[subassetFixed : subassetFixed+compactedLength]
	out.SubassetLongname = assetname.ExpandSubassetLongname(compacted)
	out.Description = e.decodeDescription(message[subassetFixed+compactedLength:], blockIndex)
	return out, nil
}

func (e *Engine) unpackLong(message []byte, blockIndex int64) (wireIssuance, error) {
	out := wireIssuance{
		AssetID:  binary.BigEndian.Uint64(message[0:8]),
		Quantity: binary.BigEndian.Uint64(message[8:16]),
	}
	out.Divisible, out.Listed, out.Reassignable, out.Vendable, out.Fungible = unpackFlags(message[16])
	out.Callable = message[17] != 0
	out.CallDate = int64(binary.BigEndian.Uint32(message[18:22]))
	out.CallPrice = roundToSixDecimals(float64(math.Float32frombits(binary.BigEndian.Uint32(message[22:26]))))

	tail := message[length2:]
	if len(tail) <= maxPascalDescription {
		// Length-prefixed short string. A stated length beyond the
		// available bytes reads as much as is there.
		if len(tail) > 0 {
			n := int(tail[0])
			if n > len(tail)-1 {
				n = len(tail) - 1
			}
			out.Description = e.decodeDescription(tail[1:1+n], blockIndex)
		}
	} else {
		out.Description = e.decodeDescription(tail, blockIndex)
	}
	return out, nil
}

func unpackShort(message []byte) (wireIssuance, error) {
	if len(message) != length1 {
		return wireIssuance{}, ErrUnpack
	}
	out := wireIssuance{
		AssetID:  binary.BigEndian.Uint64(message[0:8]),
		Quantity: binary.BigEndian.Uint64(message[8:16]),
		// The legacy layout carries a single divisibility byte, read as a
		// boolean: any non-zero value divides. The other properties did
		// not exist yet and default to true.
		Divisible:    message[16] != 0,
		Listed:       true,
		Reassignable: true,
		Vendable:     true,
		Fungible:     true,
	}
	return out, nil
}

// decodeDescription interprets raw description bytes as UTF-8. Invalid bytes
// historically collapsed the whole description to empty; after the codec-fix
// gate each invalid byte becomes a replacement character instead.
func (e *Engine) decodeDescription(raw []byte, blockIndex int64) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if !e.gates.Enabled(protocol.GateUTF8CodecFixes, blockIndex) {
		return ""
	}
	var out []rune
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, utf8.RuneError)
			i++
			continue
		}
		out = append(out, r)
		i += size
	}
	return string(out)
}

// roundToSixDecimals matches the historical post-decode rounding of the call
// price, ties to even.
func roundToSixDecimals(x float64) float64 {
	return math.RoundToEven(x*1e6) / 1e6
}
