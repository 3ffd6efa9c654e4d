// Package player handles player registration and verifier-attested
// reputation changes.
package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/vm"
)

func init() {
	vm.Register(core.TxRegisterPlayer, handleRegisterPlayer)
	vm.Register(core.TxUpdateReputation, handleUpdateReputation)
}

func handleRegisterPlayer(ctx *vm.Context, payload json.RawMessage) error {
	if len(payload) > 0 && string(payload) != "null" {
		var p core.RegisterPlayerPayload
		if err := vm.DecodePayload(core.TxRegisterPlayer, payload, &p); err != nil {
			return err
		}
	}

	addr := ctx.Tx.From
	if _, err := ctx.State.GetPlayer(addr); err == nil {
		return fmt.Errorf("%w: %s", core.ErrAlreadyRegistered, addr.Hex())
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking player %s: %w", addr.Hex(), err)
	}

	points, err := ctx.State.GetInitialSkillPoints()
	if err != nil {
		return fmt.Errorf("load initial skill points: %w", err)
	}

	player := &core.Player{
		Address:        addr,
		SkillPoints:    points,
		UnlockedSkills: []uint64{},
		Level:          core.LevelFor(0),
		RegisteredAt:   ctx.Block.Header.Timestamp,
	}
	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}

	ctx.Emit(events.EventPlayerRegistered, map[string]any{
		"player":         addr,
		"initial_points": points,
	})
	return ctx.SetResult(core.PlayerRegisteredResult{InitialPoints: points})
}

func handleUpdateReputation(ctx *vm.Context, payload json.RawMessage) error {
	var p core.UpdateReputationPayload
	if err := vm.DecodePayload(core.TxUpdateReputation, payload, &p); err != nil {
		return err
	}
	if err := vm.RequireVerifier(ctx); err != nil {
		return err
	}
	player, err := vm.LoadPlayer(ctx, p.Player)
	if err != nil {
		return err
	}
	delta, err := vm.DecodeValue("reputation delta", p.EncodedDelta)
	if err != nil {
		return err
	}

	if uint64(delta) > math.MaxUint64-player.Reputation {
		player.Reputation = math.MaxUint64
	} else {
		player.Reputation += uint64(delta)
	}
	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}

	ctx.Emit(events.EventReputationUpdated, map[string]any{
		"player":         player.Address,
		"new_reputation": player.Reputation,
	})
	return ctx.SetResult(core.ReputationUpdatedResult{
		Player:        player.Address,
		NewReputation: player.Reputation,
	})
}
