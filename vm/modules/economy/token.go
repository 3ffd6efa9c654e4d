// Package economy moves the ledger's native token, which funds fees and
// tournament entry payments.
package economy

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := vm.DecodePayload(core.TxTransfer, payload, &p); err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("%w: transfer amount must be > 0", core.ErrInvalidPayload)
	}
	if p.To == (common.Address{}) {
		return fmt.Errorf("%w: transfer to address required", core.ErrInvalidPayload)
	}
	if p.To == ctx.Tx.From {
		return fmt.Errorf("%w: cannot transfer to self", core.ErrInvalidPayload)
	}

	sender, err := ctx.State.GetAccount(ctx.Tx.From)
	if err != nil {
		return err
	}
	if sender.Balance < p.Amount {
		return fmt.Errorf("%w: have %d, need %d", core.ErrInsufficientBalance, sender.Balance, p.Amount)
	}
	sender.Balance -= p.Amount
	if err := ctx.State.SetAccount(sender); err != nil {
		return err
	}

	recipient, err := ctx.State.GetAccount(p.To)
	if err != nil {
		return err
	}
	recipient.Balance += p.Amount
	if err := ctx.State.SetAccount(recipient); err != nil {
		return err
	}

	ctx.Emit(events.EventTokenTransfer, map[string]any{
		"from":   ctx.Tx.From,
		"to":     p.To,
		"amount": p.Amount,
	})
	return nil
}
