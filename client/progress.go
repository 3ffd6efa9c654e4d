package client

import (
	"context"

	"github.com/tolelom/skillbloom/skilltree"
)

// PlayerLedger binds a Client to one signer so a skilltree.Session can
// drive it.
type PlayerLedger struct {
	c *Client
	s Signer
}

// ForPlayer returns the ledger view of the player signing with s.
func (c *Client) ForPlayer(s Signer) *PlayerLedger {
	return &PlayerLedger{c: c, s: s}
}

// UnlockSkill implements skilltree.Ledger.
func (l *PlayerLedger) UnlockSkill(ctx context.Context, skillID uint64, currentPoints uint32) error {
	_, err := l.c.UnlockSkill(ctx, l.s, skillID, currentPoints)
	return err
}

// Progress implements skilltree.Ledger.
func (l *PlayerLedger) Progress(ctx context.Context) (skilltree.Progress, error) {
	v, err := l.c.Player(ctx, l.s.Address())
	if err != nil {
		return skilltree.Progress{}, err
	}
	return skilltree.Progress{Points: v.Points, Unlocked: v.Unlocked}, nil
}
