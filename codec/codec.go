// Package codec converts plaintext quantities into the opaque encoded form the
// ledger accepts for skill points, costs, entry fees, prize pools and
// reputation deltas.
//
// The encoding is a format-preserving stand-in for homomorphic ciphertext:
// Data is the big-endian 32-bit value and Proof is the same value as a
// zero-padded 256-bit word. Neither provides confidentiality and the ledger
// never verifies Proof.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Width is the number of bytes in Encoded.Data.
const Width = 4

// WordSize is the number of bytes in a proof word.
const WordSize = 32

// ErrDecode is returned for malformed or out-of-range encoded values.
var ErrDecode = errors.New("decode error")

// Encoded is an encoded value together with its companion proof.
type Encoded struct {
	Data  string `json:"data"`
	Proof string `json:"proof"`
}

// Encode returns the encoded form of v.
func Encode(v uint32) Encoded {
	var buf [Width]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return Encoded{
		Data:  hexutil.Encode(buf[:]),
		Proof: FormatWord(uint64(v)),
	}
}

// Decode is the inverse of Encode's Data. The 0x prefix is optional.
func Decode(data string) (uint32, error) {
	w, err := decodeWord(data)
	if err != nil {
		return 0, err
	}
	if !w.IsUint64() || w.Uint64() > math.MaxUint32 {
		return 0, fmt.Errorf("%w: value %s exceeds %d-bit width", ErrDecode, w.Dec(), Width*8)
	}
	return uint32(w.Uint64()), nil
}

// FormatWord renders v as a 0x-prefixed, zero-padded 32-byte word.
func FormatWord(v uint64) string {
	w := uint256.NewInt(v).Bytes32()
	return hexutil.Encode(w[:])
}

// ParseWord parses a word produced by FormatWord. Values that do not fit in
// 64 bits are rejected.
func ParseWord(s string) (uint64, error) {
	w, err := decodeWord(s)
	if err != nil {
		return 0, err
	}
	if !w.IsUint64() {
		return 0, fmt.Errorf("%w: word %s exceeds 64 bits", ErrDecode, w.Dec())
	}
	return w.Uint64(), nil
}

func decodeWord(s string) (*uint256.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	if len(b) > WordSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d-byte word", ErrDecode, len(b), WordSize)
	}
	return new(uint256.Int).SetBytes(b), nil
}
