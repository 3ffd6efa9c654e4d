// Package tournament handles tournament creation and entry.
package tournament

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/vm"
)

func init() {
	vm.Register(core.TxCreateTournament, handleCreateTournament)
	vm.Register(core.TxJoinTournament, handleJoinTournament)
}

func handleCreateTournament(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateTournamentPayload
	if err := vm.DecodePayload(core.TxCreateTournament, payload, &p); err != nil {
		return err
	}
	if err := vm.RequireOwner(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: tournament name required", core.ErrInvalidPayload)
	}
	fee, err := vm.DecodeValue("entry fee", p.EncodedEntryFee)
	if err != nil {
		return err
	}
	pool, err := vm.DecodeValue("prize pool", p.EncodedPrizePool)
	if err != nil {
		return err
	}

	t := &core.Tournament{
		Name:             p.Name,
		EncodedEntryFee:  p.EncodedEntryFee,
		EntryFee:         fee,
		EncodedPrizePool: p.EncodedPrizePool,
		PrizePool:        pool,
		Participants:     []common.Address{},
		Creator:          ctx.Tx.From,
		CreatedAt:        ctx.Block.Header.Timestamp,
	}
	id, err := ctx.State.AppendTournament(t)
	if err != nil {
		return err
	}

	ctx.Emit(events.EventTournamentCreated, map[string]any{
		"tournament_id": id,
		"owner":         ctx.Tx.From,
		"name":          p.Name,
	})
	return ctx.SetResult(core.TournamentCreatedResult{TournamentID: id})
}

func handleJoinTournament(ctx *vm.Context, payload json.RawMessage) error {
	var p core.JoinTournamentPayload
	if err := vm.DecodePayload(core.TxJoinTournament, payload, &p); err != nil {
		return err
	}
	addr := ctx.Tx.From
	if _, err := vm.LoadPlayer(ctx, addr); err != nil {
		return err
	}

	t, err := ctx.State.GetTournament(p.TournamentID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: %d", core.ErrInvalidTournament, p.TournamentID)
	}
	if err != nil {
		return fmt.Errorf("load tournament %d: %w", p.TournamentID, err)
	}
	if t.IsParticipant(addr) {
		return fmt.Errorf("%w: tournament %d", core.ErrAlreadyJoined, t.ID)
	}
	if _, err := vm.DecodeValue("entry fee", p.EncodedEntryFee); err != nil {
		return err
	}
	if p.Payment < uint64(t.EntryFee) {
		return fmt.Errorf("%w: paid %d, entry fee %d", core.ErrInsufficientPayment, p.Payment, t.EntryFee)
	}

	// Lock the payment from the player's balance into the tournament escrow.
	if p.Payment > 0 {
		acc, err := ctx.State.GetAccount(addr)
		if err != nil {
			return err
		}
		if acc.Balance < p.Payment {
			return fmt.Errorf("%w: have %d, need %d", core.ErrInsufficientBalance, acc.Balance, p.Payment)
		}
		acc.Balance -= p.Payment
		if err := ctx.State.SetAccount(acc); err != nil {
			return err
		}
		t.Escrow += p.Payment
	}

	t.Participants = append(t.Participants, addr)
	if err := ctx.State.SetTournament(t); err != nil {
		return err
	}

	ctx.Emit(events.EventTournamentJoined, map[string]any{
		"tournament_id": t.ID,
		"player":        addr,
		"payment":       p.Payment,
	})
	return ctx.SetResult(core.TournamentJoinedResult{TournamentID: t.ID, Escrow: t.Escrow})
}
