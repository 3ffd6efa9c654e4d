package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/indexer"
)

type addressParams struct {
	Address common.Address `json:"address"`
}

type skillParams struct {
	SkillID uint64 `json:"skill_id"`
}

func query[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var out T
	err := c.call(ctx, method, params, &out)
	return out, err
}

// PlayerSkillPoints returns the unspent skill points of a registered player.
func (c *Client) PlayerSkillPoints(ctx context.Context, addr common.Address) (uint32, error) {
	return query[uint32](ctx, c, "getPlayerSkillPoints", addressParams{addr})
}

// PlayerLevel returns the level of a registered player.
func (c *Client) PlayerLevel(ctx context.Context, addr common.Address) (uint32, error) {
	return query[uint32](ctx, c, "getPlayerLevel", addressParams{addr})
}

// IsSkillUnlocked reports whether addr has unlocked skillID.
func (c *Client) IsSkillUnlocked(ctx context.Context, addr common.Address, skillID uint64) (bool, error) {
	return query[bool](ctx, c, "isSkillUnlocked", struct {
		Address common.Address `json:"address"`
		SkillID uint64         `json:"skill_id"`
	}{addr, skillID})
}

// SkillInfo returns the cost and level requirement of skillID.
func (c *Client) SkillInfo(ctx context.Context, skillID uint64) (core.SkillInfo, error) {
	return query[core.SkillInfo](ctx, c, "getSkillInfo", skillParams{skillID})
}

// SkillsLength returns the number of skill definitions.
func (c *Client) SkillsLength(ctx context.Context) (uint64, error) {
	return query[uint64](ctx, c, "getSkillsLength", nil)
}

// Skill returns the full definition of skillID.
func (c *Client) Skill(ctx context.Context, skillID uint64) (*core.SkillDefinition, error) {
	return query[*core.SkillDefinition](ctx, c, "getSkill", skillParams{skillID})
}

// PlayerRecord returns the ledger's player record without consulting the cache.
func (c *Client) PlayerRecord(ctx context.Context, addr common.Address) (*core.Player, error) {
	return query[*core.Player](ctx, c, "getPlayer", addressParams{addr})
}

// Tournament returns tournament id.
func (c *Client) Tournament(ctx context.Context, id uint64) (*core.Tournament, error) {
	return query[*core.Tournament](ctx, c, "getTournament", struct {
		TournamentID uint64 `json:"tournament_id"`
	}{id})
}

// TournamentsLength returns the number of tournaments.
func (c *Client) TournamentsLength(ctx context.Context) (uint64, error) {
	return query[uint64](ctx, c, "getTournamentsLength", nil)
}

// Roles returns the owner and verifier addresses.
func (c *Client) Roles(ctx context.Context) (*core.Roles, error) {
	return query[*core.Roles](ctx, c, "getRoles", nil)
}

// Account returns the token balance and nonce of addr.
func (c *Client) Account(ctx context.Context, addr common.Address) (*core.Account, error) {
	return query[*core.Account](ctx, c, "getBalance", addressParams{addr})
}

// Receipt returns the receipt of txID; pending transactions yield a receipt
// with status pending.
func (c *Client) Receipt(ctx context.Context, txID string) (*core.Receipt, error) {
	return query[*core.Receipt](ctx, c, "getReceipt", struct {
		TxID string `json:"tx_id"`
	}{txID})
}

// Block returns the block at height.
func (c *Client) Block(ctx context.Context, height int64) (*core.Block, error) {
	return query[*core.Block](ctx, c, "getBlock", struct {
		Height int64 `json:"height"`
	}{height})
}

// BlockHeight returns the height of the chain tip.
func (c *Client) BlockHeight(ctx context.Context) (int64, error) {
	return query[int64](ctx, c, "getBlockHeight", nil)
}

// MempoolSize returns the number of transactions awaiting a block.
func (c *Client) MempoolSize(ctx context.Context) (int, error) {
	return query[int](ctx, c, "getMempoolSize", nil)
}

// TournamentsByPlayer lists the tournaments addr joined.
func (c *Client) TournamentsByPlayer(ctx context.Context, addr common.Address) ([]uint64, error) {
	return query[[]uint64](ctx, c, "getTournamentsByPlayer", addressParams{addr})
}

// SkillsByBranch lists the skill ids of branch.
func (c *Client) SkillsByBranch(ctx context.Context, branch core.Branch) ([]uint64, error) {
	return query[[]uint64](ctx, c, "getSkillsByBranch", struct {
		Branch core.Branch `json:"branch"`
	}{branch})
}

// UnlockHistory lists addr's unlocks in ledger order.
func (c *Client) UnlockHistory(ctx context.Context, addr common.Address) ([]indexer.UnlockRecord, error) {
	return query[[]indexer.UnlockRecord](ctx, c, "getUnlockHistory", addressParams{addr})
}

// Player returns the confirmed view of addr, served from the cache when one
// is configured and holds a current entry.
func (c *Client) Player(ctx context.Context, addr common.Address) (*PlayerView, error) {
	if v, ok := c.cache.Get(addr); ok {
		return v, nil
	}
	gen := c.cache.Generation(addr)
	p, err := c.PlayerRecord(ctx, addr)
	if err != nil {
		return nil, err
	}
	v := viewOf(p)
	c.cache.PutAt(v, gen)
	return v, nil
}
