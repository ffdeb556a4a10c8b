// Package hashing provides the double hash primitive used for every entity
// identity in the blockchain and the compact target encoding used by the
// proof of work.
package hashing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// ErrEncoding is returned when a value can't be encoded in the requested
// number of bytes.
var ErrEncoding = errors.New("encoding error")

// =============================================================================

// Hash represents the 32 byte double hash of some data.
type Hash [HashSize]byte

// ZeroHash represents a hash code of zeros. The genesis block uses this as
// its previous block hash.
var ZeroHash Hash

// DoubleHash applies sha256 twice to the specified data.
func DoubleHash(data []byte) Hash {
	return Hash(chainhash.DoubleHashH(data))
}

// ToHash converts a hex-encoded string into a hash.
func ToHash(hex string) (Hash, error) {
	b, err := hexutil.Decode(hex)
	if err != nil {
		return Hash{}, fmt.Errorf("decoding hash: %w", err)
	}

	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length, got %d, exp %d", len(b), HashSize)
	}

	var h Hash
	copy(h[:], b)

	return h, nil
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// Big interprets the hash as a big-endian unsigned integer.
func (h Hash) Big() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// MeetsTarget reports whether the hash is numerically below the target.
func (h Hash) MeetsTarget(target *big.Int) bool {
	return h.Big().Cmp(target) < 0
}

// Hex returns the 0x prefixed hex representation of the hash.
func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return h.Hex()
}

// MarshalText implements the encoding.TextMarshaler interface so hashes are
// hex strings in JSON documents.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := ToHash(string(text))
	if err != nil {
		return err
	}

	*h = v
	return nil
}

// =============================================================================

// LittleEndian encodes the value into exactly width bytes using little
// endian byte order.
func LittleEndian(v uint64, width int) ([]byte, error) {
	if width < 1 || width > 8 {
		return nil, fmt.Errorf("%w: width %d not supported", ErrEncoding, width)
	}

	if width < 8 && v>>(8*uint(width)) != 0 {
		return nil, fmt.Errorf("%w: value %d does not fit in %d bytes", ErrEncoding, v, width)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	return buf[:width], nil
}

// Uint32LE is a convenience for the header fields which always fit.
func Uint32LE(v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return buf[:]
}

// =============================================================================

// TargetFromCompact decodes the compact representation of a target. The
// high byte is the number of bytes of the target and the low three bytes
// are the most significant bytes of the target.
func TargetFromCompact(nbits uint32) *big.Int {
	exponent := uint(nbits >> 24)
	mantissa := big.NewInt(int64(nbits & 0x00ffffff))

	if exponent <= 3 {
		return mantissa.Rsh(mantissa, 8*(3-exponent))
	}

	return mantissa.Lsh(mantissa, 8*(exponent-3))
}

// CompactFromTarget encodes the target into its compact representation. If
// the mantissa would have its high bit set, it is shifted right a byte and
// the exponent incremented so the encoding never carries a sign.
func CompactFromTarget(target *big.Int) uint32 {
	if target.Sign() <= 0 {
		return 0
	}

	nbytes := uint((target.BitLen() + 7) / 8)

	var compact uint64
	switch {
	case nbytes <= 3:
		compact = target.Uint64() << (8 * (3 - nbytes))
	default:
		compact = new(big.Int).Rsh(target, 8*(nbytes-3)).Uint64()
	}
	compact &= 0x00ffffff

	if compact&0x00800000 != 0 {
		compact >>= 8
		nbytes++
	}

	return uint32(compact) | uint32(nbytes)<<24
}
