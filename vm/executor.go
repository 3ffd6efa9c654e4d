package vm

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"go.uber.org/zap"
)

// Context is passed to every Handler and provides access to the ledger
// state, the current block and the triggering transaction. Events and the
// result recorded through it are only published if the transaction succeeds.
type Context struct {
	State core.State
	Block *core.Block
	Tx    *core.Transaction

	events []events.Event
	result json.RawMessage
}

// Emit queues an event of typ carrying data for the current transaction.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.events = append(c.events, events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Data:        data,
	})
}

// SetResult records v as the receipt result of the current transaction.
func (c *Context) SetResult(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	c.result = raw
	return nil
}

// Outcome is what a successful transaction produced.
type Outcome struct {
	Result json.RawMessage
	Events []events.Event
}

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	state   core.State
	chainID string
	logger  *zap.Logger
}

// NewExecutor creates an Executor for chainID over state.
func NewExecutor(state core.State, chainID string, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{state: state, chainID: chainID, logger: logger.Named("vm")}
}

// ExecuteTx verifies and executes a single transaction inside a state
// snapshot. On failure every write of the transaction, including the fee and
// nonce, is reverted and the handler error is returned unchanged.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) (*Outcome, error) {
	if tx.ChainID != e.chainID {
		return nil, fmt.Errorf("%w: chain id %q, want %q", core.ErrInvalidPayload, tx.ChainID, e.chainID)
	}
	if err := tx.Verify(); err != nil {
		return nil, fmt.Errorf("%w: signature: %v", core.ErrUnauthorized, err)
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	ctx := &Context{State: e.state, Block: block, Tx: tx}
	if err := e.applyTx(ctx); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return nil, fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		e.logger.Debug("tx rejected",
			zap.String("tx", tx.ID),
			zap.String("type", string(tx.Type)),
			zap.Error(err))
		return nil, err
	}

	ctx.events = append(ctx.events, events.Event{
		Type:        events.EventTxExecuted,
		TxID:        tx.ID,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"type": string(tx.Type), "from": tx.From},
	})
	return &Outcome{Result: ctx.result, Events: ctx.events}, nil
}

// applyTx checks the nonce, deducts the fee, increments the nonce, then
// dispatches to the handler.
func (e *Executor) applyTx(ctx *Context) error {
	tx := ctx.Tx
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return fmt.Errorf("%w: invalid nonce: expected %d got %d", core.ErrInvalidPayload, acc.Nonce, tx.Nonce)
	}
	if acc.Balance < tx.Fee {
		return fmt.Errorf("%w for fee: have %d need %d", core.ErrInsufficientBalance, acc.Balance, tx.Fee)
	}
	if acc.Nonce == math.MaxUint64 {
		return fmt.Errorf("nonce overflow for account %s", tx.From.Hex())
	}
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return err
	}
	return globalRegistry.Execute(tx.Type, ctx, tx.Payload)
}
