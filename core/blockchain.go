package core

import (
	"fmt"
	"sync"
)

// BlockStore is the persistence interface used by Blockchain.
// Implementations live in the storage package.
type BlockStore interface {
	GetBlock(hash string) (*Block, error)
	GetBlockByHeight(height int64) (*Block, error)
	// GetTip returns the current tip hash, or ("", nil) for a fresh chain.
	GetTip() (string, error)
	GetReceipt(txID string) (*Receipt, error)
	// CommitBlock atomically writes the block, its height index entry, the
	// tip pointer and the receipts of every transaction the block considered.
	CommitBlock(block *Block, receipts []*Receipt) error
}

// Blockchain is the finalized ledger history: blocks in height order and the
// receipt of every transaction a block considered. A transaction is final
// exactly when AddBlock returns for the block that carries its receipt.
type Blockchain struct {
	mu     sync.RWMutex
	store  BlockStore
	tip    *Block
	height int64
}

// NewBlockchain returns a Blockchain backed by store.
// Call Init() to load an existing chain tip from storage.
func NewBlockchain(store BlockStore) *Blockchain {
	return &Blockchain{store: store}
}

// Init loads the persisted tip from the block store.
func (bc *Blockchain) Init() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tipHash, err := bc.store.GetTip()
	if err != nil {
		return fmt.Errorf("get tip: %w", err)
	}
	if tipHash == "" {
		return nil
	}
	tip, err := bc.store.GetBlock(tipHash)
	if err != nil {
		return fmt.Errorf("load tip block: %w", err)
	}
	bc.tip = tip
	bc.height = tip.Header.Height
	return nil
}

// AddBlock finalizes block together with its receipts. Each transaction in
// the block needs exactly one committed receipt; failed receipts name
// transactions that were considered but left out of the body. Committed
// receipts are stamped with the block hash before they are stored.
func (bc *Blockchain) AddBlock(block *Block, receipts []*Receipt) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.tip != nil {
		if block.Header.Height != bc.height+1 {
			return fmt.Errorf("block height %d does not follow tip %d", block.Header.Height, bc.height)
		}
		if block.Header.PrevHash != bc.tip.Hash {
			return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, bc.tip.Hash)
		}
	}
	if err := matchReceipts(block, receipts); err != nil {
		return err
	}

	for _, r := range receipts {
		if r.Status == TxCommitted {
			r.BlockHash = block.Hash
		}
	}
	if err := bc.store.CommitBlock(block, receipts); err != nil {
		return fmt.Errorf("commit block: %w", err)
	}
	bc.tip = block
	bc.height = block.Header.Height
	return nil
}

func matchReceipts(block *Block, receipts []*Receipt) error {
	included := make(map[string]bool, len(block.Transactions))
	for _, tx := range block.Transactions {
		included[tx.ID] = false
	}
	seen := make(map[string]bool, len(receipts))
	for _, r := range receipts {
		if seen[r.TxID] {
			return fmt.Errorf("duplicate receipt for tx %s", r.TxID)
		}
		seen[r.TxID] = true
		if r.BlockHeight != block.Header.Height {
			return fmt.Errorf("receipt %s at height %d, block is %d", r.TxID, r.BlockHeight, block.Header.Height)
		}
		_, inBody := included[r.TxID]
		switch r.Status {
		case TxCommitted:
			if !inBody {
				return fmt.Errorf("committed receipt %s has no tx in block", r.TxID)
			}
			included[r.TxID] = true
		case TxFailed:
			if inBody {
				return fmt.Errorf("failed receipt %s names an included tx", r.TxID)
			}
		default:
			return fmt.Errorf("receipt %s is not final", r.TxID)
		}
	}
	for id, ok := range included {
		if !ok {
			return fmt.Errorf("tx %s has no receipt", id)
		}
	}
	return nil
}

// GetBlock returns a block by its hash.
func (bc *Blockchain) GetBlock(hash string) (*Block, error) {
	return bc.store.GetBlock(hash)
}

// GetBlockByHeight returns the block at the given height.
func (bc *Blockchain) GetBlockByHeight(height int64) (*Block, error) {
	return bc.store.GetBlockByHeight(height)
}

// GetReceipt returns the final receipt of txID, or ErrNotFound while the
// transaction has not been considered by any block.
func (bc *Blockchain) GetReceipt(txID string) (*Receipt, error) {
	return bc.store.GetReceipt(txID)
}

// Tip returns the current chain tip, or nil for a fresh chain.
func (bc *Blockchain) Tip() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Height returns the height of the current tip (0 for a fresh chain).
func (bc *Blockchain) Height() int64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.height
}
