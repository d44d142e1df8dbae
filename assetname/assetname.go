// Package assetname implements the codec between numeric asset ids and their
// textual names, plus the compact wire form of sub-asset long-names.
//
// Alphabetic names are base-26 numerals over A-Z: at least four characters,
// never starting with A, with a minimum value of 26^3. Numeric names are the
// literal form "A<id>" with id in (26^12, 2^64-1]; they only exist once the
// numeric_asset_names gate is active. Ids 0 and 1 are reserved for the host
// coin and the protocol's native asset.
package assetname

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strconv"
	"strings"

	"mintchain/config"
	"mintchain/protocol"
)

var (
	// ErrAssetID marks a numeric id with no valid textual form.
	ErrAssetID = errors.New("assetname: invalid asset id")
	// ErrAssetName marks a textual name with no valid numeric form.
	ErrAssetName = errors.New("assetname: invalid asset name")
)

const b26Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// subassetDigits is the 68-symbol alphabet of sub-asset long-names. Digit
// values run 1..68 so that no name compacts to leading zero bytes.
const subassetDigits = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.-_@!"

// MaxSubassetLength bounds the dotted long-name, parent included.
const MaxSubassetLength = 250

// numericAssetFloor is 26^12; numeric ids occupy (26^12, 2^64-1].
var numericAssetFloor = new(big.Int).Exp(big.NewInt(26), big.NewInt(12), nil)

const minAssetValue = 26 * 26 * 26

// GenerateAssetID converts a textual asset name into its numeric id.
func GenerateAssetID(gates *protocol.Table, name string, blockIndex int64) (uint64, error) {
	switch name {
	case config.BTC:
		return 0, nil
	case config.XCP:
		return 1, nil
	}
	if len(name) < 4 {
		return 0, fmt.Errorf("%w: too short", ErrAssetName)
	}
	if gates.Enabled(protocol.GateNumericAssetNames, blockIndex) {
		if name[0] == 'A' {
			// Numeric asset.
			id, ok := new(big.Int).SetString(name[1:], 10)
			if !ok {
				return 0, fmt.Errorf("%w: non-numeric suffix", ErrAssetName)
			}
			if id.Cmp(new(big.Int).Add(numericAssetFloor, big.NewInt(1))) < 0 || !id.IsUint64() {
				return 0, fmt.Errorf("%w: numeric asset name not in range", ErrAssetName)
			}
			return id.Uint64(), nil
		}
		if len(name) >= 13 {
			return 0, fmt.Errorf("%w: long asset names must be numeric", ErrAssetName)
		}
	}
	if name[0] == 'A' {
		return 0, fmt.Errorf("%w: non-numeric asset name starts with 'A'", ErrAssetName)
	}

	var id uint64
	for i := 0; i < len(name); i++ {
		digit := strings.IndexByte(b26Digits, name[i])
		if digit < 0 {
			return 0, fmt.Errorf("%w: invalid character %q", ErrAssetName, name[i])
		}
		id = id*26 + uint64(digit)
	}
	if id < minAssetValue {
		return 0, fmt.Errorf("%w: too short", ErrAssetName)
	}
	return id, nil
}

// GenerateAssetName converts a numeric asset id back into its textual name.
func GenerateAssetName(gates *protocol.Table, id uint64, blockIndex int64) (string, error) {
	switch id {
	case 0:
		return config.BTC, nil
	case 1:
		return config.XCP, nil
	}
	if id < minAssetValue {
		return "", fmt.Errorf("%w: too low", ErrAssetID)
	}
	if gates.Enabled(protocol.GateNumericAssetNames, blockIndex) {
		if new(big.Int).SetUint64(id).Cmp(numericAssetFloor) > 0 {
			return "A" + strconv.FormatUint(id, 10), nil
		}
	} else if new(big.Int).SetUint64(id).Cmp(numericAssetFloor) > 0 {
		return "", fmt.Errorf("%w: too high", ErrAssetID)
	}

	var digits []byte
	for n := id; n > 0; n /= 26 {
		digits = append(digits, b26Digits[n%26])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits), nil
}

// GenerateRandomAsset draws a fresh numeric-form name. Collisions against the
// asset registry are not checked here; the id space is large enough that the
// registry insert's uniqueness constraint is the backstop.
func GenerateRandomAsset() string {
	floor := numericAssetFloor.Uint64() + 1
	id := floor + (rand.Uint64() % (^uint64(0) - floor + 1))
	return "A" + strconv.FormatUint(id, 10)
}

// ParseSubassetFromAssetName splits a dotted long-name into its parent short
// name and the full long-name. Names without a dot return empty results.
func ParseSubassetFromAssetName(name string) (parent, longname string, err error) {
	if !strings.Contains(name, ".") {
		return "", "", nil
	}
	parent, child, _ := strings.Cut(name, ".")
	if err := validateSubassetChild(name, child); err != nil {
		return "", "", err
	}
	if err := validateSubassetParent(parent); err != nil {
		return "", "", err
	}
	return parent, name, nil
}

// ValidateSubassetLongname checks a long-name against the child part the
// caller passes in (for a sub-asset, the text after the first dot). Group
// names pass the whole string as the child.
func ValidateSubassetLongname(longname, child string) error {
	return validateSubassetChild(longname, child)
}

func validateSubassetChild(longname, child string) error {
	if len(child) < 1 {
		return fmt.Errorf("%w: subasset name too short", ErrAssetName)
	}
	if len(longname) > MaxSubassetLength {
		return fmt.Errorf("%w: subasset name too long", ErrAssetName)
	}
	previous := byte('.')
	for i := 0; i < len(child); i++ {
		c := child[i]
		if strings.IndexByte(subassetDigits, c) < 0 {
			return fmt.Errorf("%w: subasset name contains invalid character %q", ErrAssetName, c)
		}
		if c == '.' && previous == '.' {
			return fmt.Errorf("%w: subasset name contains consecutive periods", ErrAssetName)
		}
		previous = c
	}
	if previous == '.' {
		return fmt.Errorf("%w: subasset name cannot end with a period", ErrAssetName)
	}
	return nil
}

func validateSubassetParent(parent string) error {
	if parent == config.BTC || parent == config.XCP {
		return fmt.Errorf("%w: parent asset cannot be %s", ErrAssetName, parent)
	}
	if len(parent) < 4 {
		return fmt.Errorf("%w: parent asset name too short", ErrAssetName)
	}
	if len(parent) >= 13 {
		if parent[0] != 'A' || len(parent) > 21 {
			return fmt.Errorf("%w: parent asset name too long", ErrAssetName)
		}
	}
	if parent[0] == 'A' {
		// Numeric parent: a decimal id in (26^12, 2^64-1].
		id, ok := new(big.Int).SetString(parent[1:], 10)
		if !ok {
			return fmt.Errorf("%w: parent asset name contains invalid character", ErrAssetName)
		}
		if id.Cmp(numericAssetFloor) <= 0 || !id.IsUint64() {
			return fmt.Errorf("%w: numeric parent asset name not in range", ErrAssetName)
		}
		return nil
	}
	for i := 0; i < len(parent); i++ {
		if strings.IndexByte(b26Digits, parent[i]) < 0 {
			return fmt.Errorf("%w: parent asset name contains invalid character %q", ErrAssetName, parent[i])
		}
	}
	return nil
}

// CompactSubassetLongname packs a long-name into big-endian base-68 bytes.
func CompactSubassetLongname(longname string) []byte {
	value := new(big.Int)
	base := big.NewInt(int64(len(subassetDigits)))
	for i := 0; i < len(longname); i++ {
		digit := strings.IndexByte(subassetDigits, longname[i])
		value.Mul(value, base)
		value.Add(value, big.NewInt(int64(digit+1)))
	}
	return value.Bytes()
}

// ExpandSubassetLongname unpacks base-68 bytes back into a long-name. A zero
// remainder maps onto the last alphabet symbol without borrowing from the
// next position; existing wire bytes were produced against that exact
// behaviour, so it is kept even though it is not a clean bijective decode.
func ExpandSubassetLongname(raw []byte) string {
	value := new(big.Int).SetBytes(raw)
	base := big.NewInt(int64(len(subassetDigits)))
	mod := new(big.Int)
	var out []byte
	for value.Sign() != 0 {
		value.DivMod(value, base, mod)
		digit := mod.Int64()
		if digit == 0 {
			digit = int64(len(subassetDigits))
		}
		out = append(out, subassetDigits[digit-1])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
