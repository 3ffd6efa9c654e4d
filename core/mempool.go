package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMempoolSize is used when NewMempool is given a non-positive size.
	DefaultMempoolSize = 10_000

	maxTxAge    = int64(time.Hour)
	maxTxFuture = int64(5 * time.Minute)
)

var (
	ErrMempoolFull = errors.New("mempool full")
	ErrDuplicateTx = errors.New("tx already in pool")
)

// Mempool holds submitted transactions in arrival order until the consensus
// engine drains them. Arrival order is the ledger's global write order.
type Mempool struct {
	mu      sync.RWMutex
	maxSize int
	txs     map[string]*Transaction
	ord     []string
}

// NewMempool creates an empty mempool holding at most maxSize transactions.
func NewMempool(maxSize int) *Mempool {
	if maxSize <= 0 {
		maxSize = DefaultMempoolSize
	}
	return &Mempool{maxSize: maxSize, txs: make(map[string]*Transaction)}
}

// Add validates and appends a transaction. It rejects bad signatures,
// duplicates, a full pool, and timestamps outside [-1h, +5min] of now.
func (m *Mempool) Add(tx *Transaction) error {
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("invalid tx signature: %w", err)
	}
	now := time.Now().UnixNano()
	if now-tx.Timestamp > maxTxAge {
		return errors.New("transaction expired")
	}
	if tx.Timestamp-now > maxTxFuture {
		return errors.New("transaction timestamp too far in the future")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) >= m.maxSize {
		return ErrMempoolFull
	}
	if _, exists := m.txs[tx.ID]; exists {
		return ErrDuplicateTx
	}
	m.txs[tx.ID] = tx
	m.ord = append(m.ord, tx.ID)
	return nil
}

// Get returns a pending transaction by ID.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Pending returns up to n pending transactions in arrival order.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Transaction, 0, min(n, len(m.ord)))
	for _, id := range m.ord {
		if tx, ok := m.txs[id]; ok {
			result = append(result, tx)
			if len(result) >= n {
				break
			}
		}
	}
	return result
}

// Remove deletes transactions by ID (called after block commit).
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		removed[id] = true
	}
	filtered := m.ord[:0]
	for _, id := range m.ord {
		if !removed[id] {
			filtered = append(filtered, id)
		}
	}
	m.ord = filtered
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
