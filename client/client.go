// Package client is the command/query layer over a ledger node. Commands
// encode their quantities, sign, submit, and wait for the transaction to be
// final before returning its typed result. Ledger failures come back as the
// same sentinel errors the ledger uses, wrapped in *TxError. Nothing is
// retried.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/codec"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/rpc"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when Config.PollInterval is zero.
const DefaultPollInterval = 500 * time.Millisecond

// Signer signs transactions on behalf of one address. wallet.Wallet
// implements it.
type Signer interface {
	Address() common.Address
	SignTx(tx *core.Transaction) error
}

// TxError reports a transaction the ledger executed and rejected.
type TxError struct {
	TxID string
	Type core.TxType
	Err  error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("tx %s (%s) failed: %v", e.TxID, e.Type, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// Config tunes a Client.
type Config struct {
	ChainID      string
	Fee          uint64 // fee attached to every transaction
	PollInterval time.Duration
}

// Client issues commands and queries against one node.
type Client struct {
	t      Transport
	cfg    Config
	cache  *PlayerCache // optional
	logger *zap.Logger
}

// New creates a Client over t. cache and logger may be nil.
func New(t Transport, cfg Config, cache *PlayerCache, logger *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{t: t, cfg: cfg, cache: cache, logger: logger.Named("client")}
}

// call performs an RPC and turns ledger error codes back into ledger errors.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	err := c.t.Call(ctx, method, params, out)
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.Data != nil && rpcErr.Data.LedgerCode != "" {
		return core.ErrorFromCode(rpcErr.Data.LedgerCode, rpcErr.Message)
	}
	return err
}

// ---- commands ----

// Submit signs and submits a transaction of typ carrying payload, then waits
// for its receipt. A failed receipt is returned together with a *TxError.
func (c *Client) Submit(ctx context.Context, s Signer, typ core.TxType, payload any) (*core.Receipt, error) {
	from := s.Address()
	acc, err := c.Account(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	tx, err := core.NewTransaction(c.cfg.ChainID, typ, from, acc.Nonce, c.cfg.Fee, payload)
	if err != nil {
		return nil, err
	}
	if err := s.SignTx(tx); err != nil {
		return nil, fmt.Errorf("sign %s: %w", typ, err)
	}

	var sent rpc.SendTxResult
	if err := c.call(ctx, "sendTx", tx, &sent); err != nil {
		return nil, fmt.Errorf("submit %s: %w", typ, err)
	}
	c.cache.Invalidate(from)
	c.logger.Debug("tx submitted", zap.String("tx", sent.TxID), zap.String("type", string(typ)))

	receipt, err := c.WaitReceipt(ctx, sent.TxID)
	// Reads made while the tx was pending may have cached the old view.
	c.cache.Invalidate(from)
	if err != nil {
		return nil, err
	}
	if rerr := receipt.Err(); rerr != nil {
		return receipt, &TxError{TxID: receipt.TxID, Type: typ, Err: rerr}
	}
	return receipt, nil
}

// WaitReceipt polls until the receipt of txID is final or ctx is done.
func (c *Client) WaitReceipt(ctx context.Context, txID string) (*core.Receipt, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		r, err := c.Receipt(ctx, txID)
		switch {
		case err == nil && r.Final():
			return r, nil
		case err != nil && !errors.Is(err, core.ErrNotFound):
			return nil, fmt.Errorf("poll receipt %s: %w", txID, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await tx %s: %w", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func submitFor[T any](ctx context.Context, c *Client, s Signer, typ core.TxType, payload any) (*T, error) {
	receipt, err := c.Submit(ctx, s, typ, payload)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := receipt.DecodeResult(out); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", typ, err)
	}
	return out, nil
}

// SkillSpec describes a skill to create.
type SkillSpec struct {
	Name          string
	Description   string
	Branch        core.Branch
	Cost          uint32
	RequiredLevel uint32
	Requires      []uint64
}

// CreateSkill appends a skill definition and returns its id. Owner only.
func (c *Client) CreateSkill(ctx context.Context, s Signer, spec SkillSpec) (uint64, error) {
	cost := codec.Encode(spec.Cost)
	res, err := submitFor[core.SkillCreatedResult](ctx, c, s, core.TxCreateSkill, core.CreateSkillPayload{
		Name:          spec.Name,
		Description:   spec.Description,
		Branch:        spec.Branch,
		EncodedCost:   cost.Data,
		Proof:         cost.Proof,
		RequiredLevel: spec.RequiredLevel,
		Requires:      spec.Requires,
	})
	if err != nil {
		return 0, err
	}
	return res.SkillID, nil
}

// RegisterPlayer registers the signer and returns its initial skill points.
func (c *Client) RegisterPlayer(ctx context.Context, s Signer) (uint32, error) {
	res, err := submitFor[core.PlayerRegisteredResult](ctx, c, s, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	if err != nil {
		return 0, err
	}
	return res.InitialPoints, nil
}

// UnlockSkill spends the signer's points on skillID. currentPoints is the
// caller's view of its balance, sent encoded.
func (c *Client) UnlockSkill(ctx context.Context, s Signer, skillID uint64, currentPoints uint32) (*core.SkillUnlockedResult, error) {
	points := codec.Encode(currentPoints)
	return submitFor[core.SkillUnlockedResult](ctx, c, s, core.TxUnlockSkill, core.UnlockSkillPayload{
		SkillID:       skillID,
		EncodedPoints: points.Data,
		Proof:         points.Proof,
	})
}

// CreateTournament appends a tournament and returns its id. Owner only.
// The ledger call carries one proof, the entry fee's. The prize pool is sent
// encoded without one.
func (c *Client) CreateTournament(ctx context.Context, s Signer, name string, entryFee, prizePool uint32) (uint64, error) {
	fee := codec.Encode(entryFee)
	res, err := submitFor[core.TournamentCreatedResult](ctx, c, s, core.TxCreateTournament, core.CreateTournamentPayload{
		Name:             name,
		EncodedEntryFee:  fee.Data,
		EncodedPrizePool: codec.Encode(prizePool).Data,
		Proof:            fee.Proof,
	})
	if err != nil {
		return 0, err
	}
	return res.TournamentID, nil
}

// JoinTournament enters the signer into tournamentID, paying payment tokens
// into escrow.
func (c *Client) JoinTournament(ctx context.Context, s Signer, tournamentID uint64, entryFee uint32, payment uint64) (*core.TournamentJoinedResult, error) {
	fee := codec.Encode(entryFee)
	return submitFor[core.TournamentJoinedResult](ctx, c, s, core.TxJoinTournament, core.JoinTournamentPayload{
		TournamentID:    tournamentID,
		EncodedEntryFee: fee.Data,
		Proof:           fee.Proof,
		Payment:         payment,
	})
}

// UpdateReputation adds delta to player's reputation and returns the new
// value. Verifier only.
func (c *Client) UpdateReputation(ctx context.Context, s Signer, player common.Address, delta uint32) (uint64, error) {
	d := codec.Encode(delta)
	res, err := submitFor[core.ReputationUpdatedResult](ctx, c, s, core.TxUpdateReputation, core.UpdateReputationPayload{
		Player:       player,
		EncodedDelta: d.Data,
		Proof:        d.Proof,
	})
	c.cache.Invalidate(player)
	if err != nil {
		return 0, err
	}
	return res.NewReputation, nil
}

// Transfer sends amount native tokens to to.
func (c *Client) Transfer(ctx context.Context, s Signer, to common.Address, amount uint64) error {
	_, err := c.Submit(ctx, s, core.TxTransfer, core.TransferPayload{To: to, Amount: amount})
	return err
}
