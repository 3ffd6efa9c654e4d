package consensus_test

import (
	"context"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/config"
	"github.com/tolelom/skillbloom/consensus"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/internal/testnode"
	"github.com/tolelom/skillbloom/internal/testutil"
	"github.com/tolelom/skillbloom/storage"
)

func submit(t *testing.T, f *testnode.Fixture, k *crypto.PrivateKey, nonce uint64, typ core.TxType, payload any) *core.Transaction {
	t.Helper()
	tx, err := core.NewTransaction(testutil.ChainID, typ, k.Address(), nonce, 0, payload)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(k))
	require.NoError(t, f.Mempool.Add(tx))
	return tx
}

func TestProduceBlockRecordsEveryOutcome(t *testing.T) {
	f := testnode.New(t, 0, nil)
	a, b := testutil.NewKey(t), testutil.NewKey(t)

	ok1 := submit(t, f, a, 0, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	dup := submit(t, f, a, 1, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	ok2 := submit(t, f, b, 0, core.TxRegisterPlayer, core.RegisterPlayerPayload{})

	block, err := f.Engine.ProduceBlock()
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.Header.Height)
	require.Len(t, block.Transactions, 2)
	assert.Equal(t, ok1.ID, block.Transactions[0].ID)
	assert.Equal(t, ok2.ID, block.Transactions[1].ID)
	assert.Zero(t, f.Mempool.Size())

	r, err := f.Chain.GetReceipt(ok1.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TxCommitted, r.Status)
	assert.Equal(t, block.Hash, r.BlockHash)
	var res core.PlayerRegisteredResult
	require.NoError(t, r.DecodeResult(&res))
	assert.Equal(t, uint32(5), res.InitialPoints)

	r, err = f.Chain.GetReceipt(dup.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TxFailed, r.Status)
	assert.Equal(t, core.CodeAlreadyRegistered, r.ErrorCode)
	assert.Empty(t, r.BlockHash)
	assert.ErrorIs(t, r.Err(), core.ErrAlreadyRegistered)

	_, err = f.Reader.GetPlayer(b.Address())
	require.NoError(t, err)
	assert.Equal(t, block.Header.StateRoot, storage.NewStateDB(f.DB).ComputeRoot())

	n, err := promtest.GatherAndCount(f.Registry, "skillbloom_tx_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEventsFollowCommit(t *testing.T) {
	f := testnode.New(t, 0, nil)
	k := testutil.NewKey(t)

	var committed []bool
	var failedCodes []string
	f.Emitter.Subscribe(events.EventPlayerRegistered, func(ev events.Event) {
		_, err := storage.NewStateDB(f.DB).GetPlayer(k.Address())
		committed = append(committed, err == nil)
	})
	f.Emitter.Subscribe(events.EventTxFailed, func(ev events.Event) {
		failedCodes = append(failedCodes, ev.Data["code"].(string))
	})

	submit(t, f, k, 0, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	submit(t, f, k, 1, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	_, err := f.Engine.ProduceBlock()
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, committed)
	assert.Equal(t, []string{core.CodeAlreadyRegistered}, failedCodes)
}

func TestProduceBlockNotProposer(t *testing.T) {
	other := testutil.NewKey(t)
	f := testnode.New(t, 0, func(c *config.Config) {
		c.Validators = append(c.Validators, other.Address().Hex())
	})

	assert.False(t, f.Engine.IsProposer())
	_, err := f.Engine.ProduceBlock()
	assert.ErrorIs(t, err, consensus.ErrNotProposer)
}

func TestValidateBlock(t *testing.T) {
	f := testnode.New(t, 0, nil)
	tip := f.Chain.Tip()

	good := core.NewBlock(1, tip.Hash, f.Validator.Address(), nil)
	require.NoError(t, good.Sign(f.Validator))
	assert.NoError(t, f.Engine.ValidateBlock(good))

	intruder := testutil.NewKey(t)
	foreign := core.NewBlock(1, tip.Hash, intruder.Address(), nil)
	require.NoError(t, foreign.Sign(intruder))
	assert.Error(t, f.Engine.ValidateBlock(foreign))

	orphan := core.NewBlock(1, "0xbeef", f.Validator.Address(), nil)
	require.NoError(t, orphan.Sign(f.Validator))
	assert.Error(t, f.Engine.ValidateBlock(orphan))

	tampered := core.NewBlock(1, tip.Hash, f.Validator.Address(), nil)
	require.NoError(t, tampered.Sign(f.Validator))
	tampered.Transactions = []*core.Transaction{{ID: "0x01"}}
	assert.Error(t, f.Engine.ValidateBlock(tampered))
}

func TestRunProducesBlocksForPendingTxs(t *testing.T) {
	f := testnode.New(t, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Engine.Run(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), f.Chain.Height())

	submit(t, f, testutil.NewKey(t), 0, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	require.Eventually(t, func() bool { return f.Chain.Height() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
