package vm_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/internal/testutil"
	"github.com/tolelom/skillbloom/vm"

	_ "github.com/tolelom/skillbloom/vm/modules/economy"
	_ "github.com/tolelom/skillbloom/vm/modules/player"
)

func TestExecuteRejectsForeignChain(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	tx, err := core.NewTransaction("other-chain", core.TxRegisterPlayer, k.Address(), 0, 0, core.RegisterPlayerPayload{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(k))

	_, err = l.Exec.ExecuteTx(l.Block, tx)
	assert.ErrorIs(t, err, core.ErrInvalidPayload)
}

func TestExecuteRejectsBadSignature(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	tx := l.Tx(k, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	tx.Fee = 1

	_, err := l.Exec.ExecuteTx(l.Block, tx)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestExecuteRejectsReplayedNonce(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	tx := l.Tx(k, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
	_, err := l.Exec.ExecuteTx(l.Block, tx)
	require.NoError(t, err)

	_, err = l.Exec.ExecuteTx(l.Block, tx)
	assert.ErrorIs(t, err, core.ErrInvalidPayload)
}

func TestExecuteRevertsFeeAndNonceOnFailure(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	l.Fund(k.Address(), 10)
	l.Register(k)

	tx, err := core.NewTransaction(testutil.ChainID, core.TxRegisterPlayer, k.Address(), 1, 3, core.RegisterPlayerPayload{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(k))
	_, err = l.Exec.ExecuteTx(l.Block, tx)
	require.ErrorIs(t, err, core.ErrAlreadyRegistered)

	acc, err := l.State.GetAccount(k.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acc.Balance)
	assert.Equal(t, uint64(1), acc.Nonce)
}

func TestExecuteBurnsFee(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	l.Fund(k.Address(), 10)

	tx, err := core.NewTransaction(testutil.ChainID, core.TxRegisterPlayer, k.Address(), 0, 4, core.RegisterPlayerPayload{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(k))
	out, err := l.Exec.ExecuteTx(l.Block, tx)
	require.NoError(t, err)

	acc, err := l.State.GetAccount(k.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), acc.Balance)

	last := out.Events[len(out.Events)-1]
	assert.Equal(t, events.EventTxExecuted, last.Type)
	assert.Equal(t, tx.ID, last.TxID)
}

func TestExecuteFeeAboveBalance(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	tx, err := core.NewTransaction(testutil.ChainID, core.TxRegisterPlayer, k.Address(), 0, 1, core.RegisterPlayerPayload{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(k))

	_, err = l.Exec.ExecuteTx(l.Block, tx)
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)
}

func TestExecuteUnknownType(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	k := testutil.NewKey(t)
	_, err := l.Do(k, core.TxType("mint_gold"), struct{}{})
	assert.ErrorIs(t, err, core.ErrInvalidPayload)
	assert.False(t, vm.Registered(core.TxType("mint_gold")))
	assert.True(t, vm.Registered(core.TxTransfer))
}

func TestRegistryRejectsDuplicateHandler(t *testing.T) {
	r := vm.NewRegistry()
	var h vm.Handler = func(*vm.Context, json.RawMessage) error { return nil }
	r.Register("noop", h)
	assert.True(t, r.Has("noop"))
	assert.Panics(t, func() { r.Register("noop", h) })
}
