package crypto

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Hash returns the Keccak-256 hash of data as a 0x-prefixed hex string.
func Hash(data []byte) string {
	return ethcrypto.Keccak256Hash(data).Hex()
}

// HashBytes returns the raw Keccak-256 digest of data.
func HashBytes(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}
