// Package testnode builds fully wired in-memory ledger nodes for tests of
// the consensus engine, the RPC surface and the client.
package testnode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/config"
	"github.com/tolelom/skillbloom/crypto"
	"github.com/tolelom/skillbloom/internal/node"
	"github.com/tolelom/skillbloom/internal/testutil"
)

// Fixture is a single-validator node with its privileged keys.
type Fixture struct {
	*node.Node
	DB        *testutil.MemDB
	Validator *crypto.PrivateKey
	Owner     *crypto.PrivateKey
	Verifier  *crypto.PrivateKey
}

// New creates a node whose genesis funds owner, verifier and every key in
// funded with balance tokens. Genesis seeds no skills unless mutate adds
// them.
func New(t *testing.T, balance uint64, mutate func(*config.Config), funded ...*crypto.PrivateKey) *Fixture {
	t.Helper()
	f := &Fixture{
		DB:        testutil.NewMemDB(),
		Validator: testutil.NewKey(t),
		Owner:     testutil.NewKey(t),
		Verifier:  testutil.NewKey(t),
	}

	cfg := config.DefaultConfig()
	cfg.Genesis.ChainID = testutil.ChainID
	cfg.Genesis.Owner = f.Owner.Address().Hex()
	cfg.Genesis.Verifier = f.Verifier.Address().Hex()
	cfg.Genesis.Skills = nil
	cfg.Validators = []string{f.Validator.Address().Hex()}
	cfg.BlockInterval = 10 * time.Millisecond
	cfg.Genesis.Alloc = map[string]uint64{
		cfg.Genesis.Owner:    balance,
		cfg.Genesis.Verifier: balance,
	}
	for _, k := range funded {
		cfg.Genesis.Alloc[k.Address().Hex()] = balance
	}
	if mutate != nil {
		mutate(cfg)
	}

	n, err := node.New(cfg, f.DB, f.Validator, nil)
	require.NoError(t, err)
	f.Node = n
	return f
}
