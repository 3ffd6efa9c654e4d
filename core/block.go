package core

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/crypto"
)

// BlockHeader contains the block metadata that is hashed and signed.
type BlockHeader struct {
	Height    int64          `json:"height"`
	PrevHash  string         `json:"prev_hash"`
	StateRoot string         `json:"state_root"` // hash of state after executing this block
	TxRoot    string         `json:"tx_root"`
	Timestamp int64          `json:"timestamp"`
	Proposer  common.Address `json:"proposer"`
}

// Block is a collection of transactions with a signed header.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

func (b *Block) headerDigest() []byte {
	data, err := json.Marshal(b.Header)
	if err != nil {
		return nil
	}
	return crypto.HashBytes(data)
}

// ComputeHash returns the hash of the serialised header.
func (b *Block) ComputeHash() string {
	d := b.headerDigest()
	if d == nil {
		return ""
	}
	return common.BytesToHash(d).Hex()
}

// Sign sets Hash and signs the block with the proposer's key.
func (b *Block) Sign(priv *crypto.PrivateKey) error {
	b.Hash = b.ComputeHash()
	sig, err := crypto.Sign(priv, b.headerDigest())
	if err != nil {
		return err
	}
	b.Signature = sig
	return nil
}

// Verify checks the block signature against the header's proposer.
func (b *Block) Verify() error {
	return crypto.Verify(b.Header.Proposer, b.headerDigest(), b.Signature)
}

// ComputeTxRoot builds a deterministic root hash from all transaction IDs.
func ComputeTxRoot(txs []*Transaction) string {
	if len(txs) == 0 {
		return crypto.Hash([]byte("empty"))
	}
	var ids []byte
	for _, tx := range txs {
		ids = append(ids, []byte(tx.ID)...)
	}
	return crypto.Hash(ids)
}

// NewBlock creates an unsigned block with the given parameters.
func NewBlock(height int64, prevHash string, proposer common.Address, txs []*Transaction) *Block {
	return &Block{
		Header: BlockHeader{
			Height:    height,
			PrevHash:  prevHash,
			TxRoot:    ComputeTxRoot(txs),
			Timestamp: time.Now().UnixNano(),
			Proposer:  proposer,
		},
		Transactions: txs,
	}
}

// SetTransactions replaces the block body and recomputes TxRoot. The block
// must be re-signed afterwards.
func (b *Block) SetTransactions(txs []*Transaction) {
	b.Transactions = txs
	b.Header.TxRoot = ComputeTxRoot(txs)
}
