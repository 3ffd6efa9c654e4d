package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyGenAndAddress(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	addr := priv.Address()
	assert.Len(t, addr.Hex(), 42)

	restored, err := PrivKeyFromHex(priv.Hex())
	require.NoError(t, err)
	assert.Equal(t, addr, restored.Address())

	restored, err = PrivKeyFromBytes(priv.Bytes())
	require.NoError(t, err)
	assert.Equal(t, addr, restored.Address())
}

func TestSignRecoverVerify(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	digest := HashBytes([]byte("hello skill bloom"))
	sig, err := Sign(priv, digest)
	require.NoError(t, err)

	signer, err := Recover(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, priv.Address(), signer)
	assert.NoError(t, Verify(priv.Address(), digest, sig))

	other, err := GenerateKey()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(other.Address(), digest, sig), ErrBadSignature)

	tampered := HashBytes([]byte("tampered"))
	assert.Error(t, Verify(priv.Address(), tampered, sig))
}

func TestRecoverRejectsMalformed(t *testing.T) {
	digest := HashBytes([]byte("x"))
	_, err := Recover(digest, "0x1234")
	assert.Error(t, err)
	_, err = Recover(digest, "nothex")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), addr[19])

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
	assert.Len(t, Hash(nil), 66)
}
