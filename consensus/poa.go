// Package consensus implements Proof-of-Authority block production.
// Validators propose blocks in round-robin order. Each block is signed by
// the proposer; block production is the single point where ledger writes
// are serialized and made final.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/config"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/metrics"
	"github.com/tolelom/skillbloom/vm"
	"go.uber.org/zap"
)

const defaultMaxBlockTxs = 500

// ErrNotProposer is returned by ProduceBlock when another validator owns the
// next height.
var ErrNotProposer = errors.New("not the proposer for this round")

// Deps bundles the collaborators of the engine.
type Deps struct {
	Config   *config.Config
	Chain    *core.Blockchain
	State    core.State
	Mempool  *core.Mempool
	Executor *vm.Executor
	Emitter  *events.Emitter
	Metrics  *metrics.Metrics // optional
	Key      *crypto.PrivateKey
	Logger   *zap.Logger // optional
}

// PoA is the Proof-of-Authority consensus engine.
type PoA struct {
	mu sync.Mutex // serializes block production

	bc          *core.Blockchain
	state       core.State
	mempool     *core.Mempool
	exec        *vm.Executor
	emitter     *events.Emitter
	metrics     *metrics.Metrics
	validators  []common.Address
	maxBlockTxs int
	key         *crypto.PrivateKey
	addr        common.Address
	logger      *zap.Logger
}

// New creates a PoA engine for the local validator identified by d.Key.
func New(d Deps) (*PoA, error) {
	validators, err := d.Config.ValidatorAddresses()
	if err != nil {
		return nil, err
	}
	if len(validators) == 0 {
		return nil, errors.New("no validators configured")
	}
	limit := d.Config.MaxBlockTxs
	if limit <= 0 {
		limit = defaultMaxBlockTxs
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoA{
		bc:          d.Chain,
		state:       d.State,
		mempool:     d.Mempool,
		exec:        d.Executor,
		emitter:     d.Emitter,
		metrics:     d.Metrics,
		validators:  validators,
		maxBlockTxs: limit,
		key:         d.Key,
		addr:        d.Key.Address(),
		logger:      logger.Named("consensus"),
	}, nil
}

func (p *PoA) proposerFor(height int64) common.Address {
	return p.validators[int(height)%len(p.validators)]
}

// IsProposer reports whether this node should propose the next block.
func (p *PoA) IsProposer() bool {
	return p.proposerFor(p.bc.Height()+1) == p.addr
}

// ProduceBlock drains pending transactions in arrival order, executes them
// one by one, and commits a block holding the successful ones. Every drained
// transaction gets a receipt: committed with its result, or failed with the
// ledger error code. Events are published only after the state is committed.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.IsProposer() {
		return nil, ErrNotProposer
	}

	txs := p.mempool.Pending(p.maxBlockTxs)

	tip := p.bc.Tip()
	prevHash := config.GenesisHash
	nextHeight := int64(1)
	if tip != nil {
		prevHash = tip.Hash
		nextHeight = tip.Header.Height + 1
	}
	block := core.NewBlock(nextHeight, prevHash, p.addr, nil)

	included := make([]*core.Transaction, 0, len(txs))
	receipts := make([]*core.Receipt, 0, len(txs))
	var pending []events.Event
	for _, tx := range txs {
		out, err := p.exec.ExecuteTx(block, tx)
		if err != nil {
			receipts = append(receipts, failedReceipt(tx, nextHeight, err))
			pending = append(pending, events.Event{
				Type:        events.EventTxFailed,
				TxID:        tx.ID,
				BlockHeight: nextHeight,
				Data: map[string]any{
					"type":  string(tx.Type),
					"from":  tx.From,
					"code":  core.ErrorCode(err),
					"error": err.Error(),
				},
			})
			continue
		}
		included = append(included, tx)
		receipts = append(receipts, &core.Receipt{
			TxID:        tx.ID,
			Type:        tx.Type,
			From:        tx.From,
			Status:      core.TxCommitted,
			BlockHeight: nextHeight,
			Result:      out.Result,
		})
		pending = append(pending, out.Events...)
	}
	block.SetTransactions(included)

	// Compute root from the write buffer BEFORE flushing so that if AddBlock
	// fails the state has not yet been persisted and the node stays consistent.
	block.Header.StateRoot = p.state.ComputeRoot()
	if err := block.Sign(p.key); err != nil {
		p.state.Discard()
		return nil, fmt.Errorf("sign block: %w", err)
	}
	if err := p.bc.AddBlock(block, receipts); err != nil {
		p.state.Discard()
		return nil, fmt.Errorf("add block: %w", err)
	}

	// Flush state only after the block is safely stored.
	if err := p.state.Commit(); err != nil {
		p.logger.Fatal("block stored but state commit failed",
			zap.Int64("height", block.Header.Height),
			zap.Error(err))
	}

	for _, ev := range pending {
		p.emitter.Emit(ev)
	}
	p.emitter.Emit(events.Event{
		Type:        events.EventBlockCommit,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"hash": block.Hash, "txs": len(block.Transactions)},
	})

	for _, r := range receipts {
		status := metrics.StatusCommitted
		if r.Status == core.TxFailed {
			status = metrics.StatusFailed
		}
		p.metrics.ObserveTx(string(r.Type), status)
	}
	p.metrics.ObserveBlock(len(block.Transactions))

	txIDs := make([]string, len(txs))
	for i, tx := range txs {
		txIDs[i] = tx.ID
	}
	p.mempool.Remove(txIDs)
	p.metrics.SetMempoolSize(p.mempool.Size())

	p.logger.Debug("block committed",
		zap.Int64("height", block.Header.Height),
		zap.String("hash", block.Hash),
		zap.Int("included", len(included)),
		zap.Int("failed", len(txs)-len(included)))
	return block, nil
}

func failedReceipt(tx *core.Transaction, height int64, err error) *core.Receipt {
	return &core.Receipt{
		TxID:        tx.ID,
		Type:        tx.Type,
		From:        tx.From,
		Status:      core.TxFailed,
		BlockHeight: height,
		ErrorCode:   core.ErrorCode(err),
		Error:       err.Error(),
	}
}

// ValidateBlock checks that block was proposed and signed by the expected
// validator and links to the current tip.
func (p *PoA) ValidateBlock(block *core.Block) error {
	expected := p.proposerFor(block.Header.Height)
	if block.Header.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer.Hex(), expected.Hex())
	}
	if block.ComputeHash() != block.Hash {
		return errors.New("block hash does not match header")
	}
	if err := block.Verify(); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}
	if core.ComputeTxRoot(block.Transactions) != block.Header.TxRoot {
		return errors.New("tx root does not match body")
	}

	tip := p.bc.Tip()
	if tip == nil {
		if !config.IsGenesisHash(block.Header.PrevHash) {
			return errors.New("first block must reference genesis prev-hash")
		}
		return nil
	}
	if block.Header.PrevHash != tip.Hash {
		return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, tip.Hash)
	}
	if block.Header.Height != tip.Header.Height+1 {
		return fmt.Errorf("height mismatch: got %d want %d", block.Header.Height, tip.Header.Height+1)
	}
	return nil
}

// Run starts the block-production loop with the given interval. Ticks with
// an empty mempool are skipped. It blocks until ctx is done.
func (p *PoA) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p.mempool.Size() == 0 || !p.IsProposer() {
				continue
			}
			if _, err := p.ProduceBlock(); err != nil {
				p.logger.Error("produce block", zap.Error(err))
			}
		}
	}
}
