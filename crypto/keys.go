// Package crypto provides hashing, secp256k1 key handling and
// Ethereum-style account addresses for the ledger.
package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*PrivateKey, error) {
	k, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: k}, nil
}

// Address returns the 20-byte account address derived from the public key.
func (p *PrivateKey) Address() common.Address {
	return ethcrypto.PubkeyToAddress(p.key.PublicKey)
}

// Bytes returns the raw 32-byte scalar (handle with care).
func (p *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(p.key)
}

// Hex returns the 0x-prefixed private key.
func (p *PrivateKey) Hex() string {
	return hexutil.Encode(p.Bytes())
}

// PrivKeyFromBytes parses a raw 32-byte secp256k1 scalar.
func PrivKeyFromBytes(b []byte) (*PrivateKey, error) {
	k, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// PrivKeyFromHex parses a hex private key with or without 0x prefix.
func PrivKeyFromHex(s string) (*PrivateKey, error) {
	k, err := ethcrypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// ParseAddress validates and parses a hex account address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
