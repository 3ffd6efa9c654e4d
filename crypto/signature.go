package crypto

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrBadSignature is returned when a signature does not match its signer.
var ErrBadSignature = errors.New("signature verification failed")

// Sign signs a 32-byte digest and returns a hex-encoded recoverable signature.
func Sign(priv *PrivateKey, digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, priv.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return hexutil.Encode(sig), nil
}

// Recover returns the address that produced sigHex over digest.
func Recover(digest []byte, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != ethcrypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", ethcrypto.SignatureLength, len(sig))
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover pubkey: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Verify checks that sigHex over digest was produced by addr.
func Verify(addr common.Address, digest []byte, sigHex string) error {
	signer, err := Recover(digest, sigHex)
	if err != nil {
		return err
	}
	if signer != addr {
		return fmt.Errorf("%w: signed by %s, expected %s", ErrBadSignature, signer.Hex(), addr.Hex())
	}
	return nil
}
