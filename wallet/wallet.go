package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
)

// Wallet holds a private key and signs transactions for its address.
type Wallet struct {
	priv *crypto.PrivateKey
}

// New creates a Wallet from an existing private key.
func New(priv *crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv}
}

// Generate creates a Wallet with a freshly generated key.
func Generate() (*Wallet, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the private key (handle with care).
func (w *Wallet) PrivKey() *crypto.PrivateKey {
	return w.priv
}

// Address returns the account address derived from the key.
func (w *Wallet) Address() common.Address {
	return w.priv.Address()
}

// SignTx signs tx, which must be from this wallet's address.
func (w *Wallet) SignTx(tx *core.Transaction) error {
	return tx.Sign(w.priv)
}

// NewTx creates a signed transaction. chainID must match the target network.
// nonce should match the account's current nonce.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce, fee uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.Address(), nonce, fee, payload)
	if err != nil {
		return nil, err
	}
	if err := w.SignTx(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Transfer creates a signed transfer transaction.
func (w *Wallet) Transfer(chainID string, to common.Address, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransfer, nonce, fee, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}
