// Package skill handles skill definitions and skill unlocking.
package skill

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/vm"
)

func init() {
	vm.Register(core.TxCreateSkill, handleCreateSkill)
	vm.Register(core.TxUnlockSkill, handleUnlockSkill)
}

func handleCreateSkill(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateSkillPayload
	if err := vm.DecodePayload(core.TxCreateSkill, payload, &p); err != nil {
		return err
	}
	if err := vm.RequireOwner(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: skill name required", core.ErrInvalidPayload)
	}
	if !p.Branch.Valid() {
		return fmt.Errorf("%w: unknown branch %q", core.ErrInvalidPayload, p.Branch)
	}
	cost, err := vm.DecodeValue("skill cost", p.EncodedCost)
	if err != nil {
		return err
	}

	count, err := ctx.State.SkillCount()
	if err != nil {
		return err
	}
	for _, req := range p.Requires {
		if req >= count {
			return fmt.Errorf("%w: prerequisite %d does not exist", core.ErrInvalidSkill, req)
		}
	}

	def := &core.SkillDefinition{
		Name:          p.Name,
		Description:   p.Description,
		Branch:        p.Branch,
		EncodedCost:   p.EncodedCost,
		Cost:          cost,
		RequiredLevel: p.RequiredLevel,
		Requires:      p.Requires,
		Creator:       ctx.Tx.From,
		CreatedAt:     ctx.Block.Header.Timestamp,
	}
	id, err := ctx.State.AppendSkill(def)
	if err != nil {
		return err
	}

	ctx.Emit(events.EventSkillCreated, map[string]any{
		"skill_id": id,
		"owner":    ctx.Tx.From,
		"name":     p.Name,
		"branch":   string(p.Branch),
	})
	return ctx.SetResult(core.SkillCreatedResult{SkillID: id})
}

func handleUnlockSkill(ctx *vm.Context, payload json.RawMessage) error {
	var p core.UnlockSkillPayload
	if err := vm.DecodePayload(core.TxUnlockSkill, payload, &p); err != nil {
		return err
	}
	player, err := vm.LoadPlayer(ctx, ctx.Tx.From)
	if err != nil {
		return err
	}

	def, err := ctx.State.GetSkill(p.SkillID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: %d", core.ErrInvalidSkill, p.SkillID)
	}
	if err != nil {
		return fmt.Errorf("load skill %d: %w", p.SkillID, err)
	}
	if player.HasUnlocked(def.ID) {
		return fmt.Errorf("%w: %d", core.ErrSkillAlreadyUnlocked, def.ID)
	}

	claimed, err := vm.DecodeValue("current skill points", p.EncodedPoints)
	if err != nil {
		return err
	}
	// The claimed balance must cover the cost, and so must the ledger's own
	// record, which is what gets debited.
	if claimed < def.Cost || player.SkillPoints < def.Cost {
		return fmt.Errorf("%w: have %d, need %d", core.ErrInsufficientPoints, player.SkillPoints, def.Cost)
	}
	if player.Level < def.RequiredLevel {
		return fmt.Errorf("%w: level %d, need %d", core.ErrLevelTooLow, player.Level, def.RequiredLevel)
	}
	for _, req := range def.Requires {
		if !player.HasUnlocked(req) {
			return fmt.Errorf("%w: skill %d requires %d", core.ErrPrerequisiteMissing, def.ID, req)
		}
	}

	player.SkillPoints -= def.Cost
	player.UnlockedSkills = append(player.UnlockedSkills, def.ID)
	player.Level = core.LevelFor(len(player.UnlockedSkills))
	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}

	ctx.Emit(events.EventSkillUnlocked, map[string]any{
		"skill_id":   def.ID,
		"player":     player.Address,
		"new_points": player.SkillPoints,
		"branch":     string(def.Branch),
	})
	return ctx.SetResult(core.SkillUnlockedResult{
		SkillID:   def.ID,
		NewPoints: player.SkillPoints,
		NewLevel:  player.Level,
	})
}
