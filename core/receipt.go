package core

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCommitted TxStatus = "committed"
	TxFailed    TxStatus = "failed"
)

// Receipt records the final outcome of a transaction. A receipt is written
// once, when the block that considered the transaction is committed.
type Receipt struct {
	TxID        string          `json:"tx_id"`
	Type        TxType          `json:"type"`
	From        common.Address  `json:"from"`
	Status      TxStatus        `json:"status"`
	BlockHeight int64           `json:"block_height,omitempty"`
	BlockHash   string          `json:"block_hash,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Final reports whether the receipt will not change any more.
func (r *Receipt) Final() bool {
	return r.Status == TxCommitted || r.Status == TxFailed
}

// Err returns the ledger failure of a failed receipt, or nil.
func (r *Receipt) Err() error {
	if r.Status != TxFailed {
		return nil
	}
	return ErrorFromCode(r.ErrorCode, r.Error)
}

// DecodeResult unmarshals the handler result into out.
func (r *Receipt) DecodeResult(out any) error {
	if len(r.Result) == 0 {
		return nil
	}
	return json.Unmarshal(r.Result, out)
}

// ReceiptStore looks up final receipts by transaction ID. Blockchain
// implements it.
type ReceiptStore interface {
	GetReceipt(txID string) (*Receipt, error)
}
