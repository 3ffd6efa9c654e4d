package core_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/codec"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/internal/testutil"
	"github.com/tolelom/skillbloom/storage"
)

func signedTx(t *testing.T, nonce uint64) *core.Transaction {
	t.Helper()
	k := testutil.NewKey(t)
	tx, err := core.NewTransaction(testutil.ChainID, core.TxRegisterPlayer, k.Address(), nonce, 0, core.RegisterPlayerPayload{})
	require.NoError(t, err)
	require.NoError(t, tx.Sign(k))
	return tx
}

func TestTransactionSignAndVerify(t *testing.T) {
	tx := signedTx(t, 0)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, tx.Hash(), tx.ID)
	require.NoError(t, tx.Verify())
}

func TestTransactionTamperFailsVerify(t *testing.T) {
	tx := signedTx(t, 0)
	tx.Nonce++
	assert.Error(t, tx.Verify())
}

func TestTransactionSignRejectsForeignKey(t *testing.T) {
	k := testutil.NewKey(t)
	other := testutil.NewKey(t)
	tx, err := core.NewTransaction(testutil.ChainID, core.TxTransfer, k.Address(), 0, 0, core.TransferPayload{})
	require.NoError(t, err)
	assert.Error(t, tx.Sign(other))
}

func TestMempoolKeepsArrivalOrder(t *testing.T) {
	mp := core.NewMempool(10)
	var ids []string
	for i := 0; i < 3; i++ {
		tx := signedTx(t, uint64(i))
		require.NoError(t, mp.Add(tx))
		ids = append(ids, tx.ID)
	}
	pending := mp.Pending(10)
	require.Len(t, pending, 3)
	for i, tx := range pending {
		assert.Equal(t, ids[i], tx.ID)
	}
	assert.Len(t, mp.Pending(2), 2)

	mp.Remove(ids[:1])
	assert.Equal(t, 2, mp.Size())
	assert.Equal(t, ids[1], mp.Pending(1)[0].ID)
	_, ok := mp.Get(ids[0])
	assert.False(t, ok)
}

func TestMempoolRejections(t *testing.T) {
	mp := core.NewMempool(2)
	tx := signedTx(t, 0)
	require.NoError(t, mp.Add(tx))
	assert.ErrorIs(t, mp.Add(tx), core.ErrDuplicateTx)
	require.NoError(t, mp.Add(signedTx(t, 0)))
	assert.ErrorIs(t, mp.Add(signedTx(t, 0)), core.ErrMempoolFull)

	bad := signedTx(t, 0)
	bad.Fee = 9
	assert.Error(t, core.NewMempool(1).Add(bad))

	stale := signedTx(t, 0)
	stale.Timestamp = time.Now().Add(-2 * time.Hour).UnixNano()
	assert.Error(t, core.NewMempool(1).Add(stale))
}

func TestErrorCodeRoundTrip(t *testing.T) {
	sentinels := []error{
		core.ErrUnauthorized, core.ErrAlreadyRegistered, core.ErrNotRegistered,
		core.ErrInvalidSkill, core.ErrInvalidTournament, core.ErrInsufficientPoints,
		core.ErrInsufficientPayment, core.ErrAlreadyJoined, core.ErrSkillAlreadyUnlocked,
		core.ErrPrerequisiteMissing, core.ErrLevelTooLow, core.ErrInsufficientBalance,
		core.ErrInvalidPayload, codec.ErrDecode,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("handler: %w", sentinel)
		code := core.ErrorCode(wrapped)
		require.NotEqual(t, core.CodeInternal, code, sentinel.Error())

		rebuilt := core.ErrorFromCode(code, wrapped.Error())
		assert.ErrorIs(t, rebuilt, sentinel)
		assert.Equal(t, wrapped.Error(), rebuilt.Error())
	}
}

func TestErrorCodeUnclassified(t *testing.T) {
	assert.Empty(t, core.ErrorCode(nil))
	assert.Equal(t, core.CodeInternal, core.ErrorCode(errors.New("disk on fire")))

	err := core.ErrorFromCode("mystery", "")
	var le *core.LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "mystery", le.Code)
	assert.Nil(t, errors.Unwrap(err))
}

func TestReceiptErr(t *testing.T) {
	ok := &core.Receipt{Status: core.TxCommitted}
	assert.NoError(t, ok.Err())
	assert.True(t, ok.Final())

	failed := &core.Receipt{Status: core.TxFailed, ErrorCode: core.CodeAlreadyJoined}
	assert.ErrorIs(t, failed.Err(), core.ErrAlreadyJoined)
	assert.Equal(t, core.ErrAlreadyJoined.Error(), failed.Err().Error())

	assert.False(t, (&core.Receipt{Status: core.TxPending}).Final())
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, uint32(1), core.LevelFor(0))
	assert.Equal(t, uint32(4), core.LevelFor(3))
}

func TestBranchValid(t *testing.T) {
	for _, b := range core.Branches {
		assert.True(t, b.Valid())
	}
	assert.False(t, core.Branch("stealth").Valid())
}

func TestBlockchainEnforcesLinkage(t *testing.T) {
	k := testutil.NewKey(t)
	db := testutil.NewMemDB()
	bc := core.NewBlockchain(storage.NewBlockStore(db))
	require.NoError(t, bc.Init())
	assert.Nil(t, bc.Tip())

	genesis := core.NewBlock(0, "", k.Address(), nil)
	require.NoError(t, genesis.Sign(k))
	require.NoError(t, bc.AddBlock(genesis, nil))

	gap := core.NewBlock(2, genesis.Hash, k.Address(), nil)
	require.NoError(t, gap.Sign(k))
	assert.Error(t, bc.AddBlock(gap, nil))

	wrongParent := core.NewBlock(1, "0xdead", k.Address(), nil)
	require.NoError(t, wrongParent.Sign(k))
	assert.Error(t, bc.AddBlock(wrongParent, nil))

	next := core.NewBlock(1, genesis.Hash, k.Address(), nil)
	require.NoError(t, next.Sign(k))
	require.NoError(t, bc.AddBlock(next, nil))
	assert.Equal(t, int64(1), bc.Height())

	reopened := core.NewBlockchain(storage.NewBlockStore(db))
	require.NoError(t, reopened.Init())
	assert.Equal(t, next.Hash, reopened.Tip().Hash)

	byHeight, err := reopened.GetBlockByHeight(0)
	require.NoError(t, err)
	assert.Equal(t, genesis.Hash, byHeight.Hash)
}

func TestBlockchainCommitsReceiptsWithBlock(t *testing.T) {
	k := testutil.NewKey(t)
	bc := core.NewBlockchain(storage.NewBlockStore(testutil.NewMemDB()))
	require.NoError(t, bc.Init())

	genesis := core.NewBlock(0, "", k.Address(), nil)
	require.NoError(t, genesis.Sign(k))
	require.NoError(t, bc.AddBlock(genesis, nil))

	ok, rejected := signedTx(t, 0), signedTx(t, 0)
	block := core.NewBlock(1, genesis.Hash, k.Address(), []*core.Transaction{ok})
	require.NoError(t, block.Sign(k))

	committed := &core.Receipt{TxID: ok.ID, Status: core.TxCommitted, BlockHeight: 1}
	failed := &core.Receipt{TxID: rejected.ID, Status: core.TxFailed, BlockHeight: 1, ErrorCode: core.CodeAlreadyRegistered}

	_, err := bc.GetReceipt(ok.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, bc.AddBlock(block, []*core.Receipt{committed, failed}))

	r, err := bc.GetReceipt(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TxCommitted, r.Status)
	assert.Equal(t, block.Hash, r.BlockHash)

	r, err = bc.GetReceipt(rejected.ID)
	require.NoError(t, err)
	assert.Empty(t, r.BlockHash)
	assert.ErrorIs(t, r.Err(), core.ErrAlreadyRegistered)
}

func TestBlockchainRejectsMismatchedReceipts(t *testing.T) {
	k := testutil.NewKey(t)
	included, other := signedTx(t, 0), signedTx(t, 0)

	tests := []struct {
		name     string
		receipts []*core.Receipt
	}{
		{"missing", nil},
		{"wrong height", []*core.Receipt{{TxID: included.ID, Status: core.TxCommitted, BlockHeight: 7}}},
		{"committed outside body", []*core.Receipt{
			{TxID: included.ID, Status: core.TxCommitted, BlockHeight: 1},
			{TxID: other.ID, Status: core.TxCommitted, BlockHeight: 1},
		}},
		{"failed inside body", []*core.Receipt{{TxID: included.ID, Status: core.TxFailed, BlockHeight: 1}}},
		{"pending", []*core.Receipt{{TxID: included.ID, Status: core.TxPending, BlockHeight: 1}}},
		{"duplicate", []*core.Receipt{
			{TxID: included.ID, Status: core.TxCommitted, BlockHeight: 1},
			{TxID: included.ID, Status: core.TxCommitted, BlockHeight: 1},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := testutil.NewMemDB()
			bc := core.NewBlockchain(storage.NewBlockStore(db))
			genesis := core.NewBlock(0, "", k.Address(), nil)
			require.NoError(t, genesis.Sign(k))
			require.NoError(t, bc.AddBlock(genesis, nil))
			stored := db.Len()

			block := core.NewBlock(1, genesis.Hash, k.Address(), []*core.Transaction{included})
			require.NoError(t, block.Sign(k))
			assert.Error(t, bc.AddBlock(block, tc.receipts))
			assert.Equal(t, int64(0), bc.Height())
			assert.Equal(t, stored, db.Len())
		})
	}
}

func TestBlockSignatureCoversHeader(t *testing.T) {
	k := testutil.NewKey(t)
	b := core.NewBlock(1, "0xabc", k.Address(), []*core.Transaction{signedTx(t, 0)})
	require.NoError(t, b.Sign(k))
	require.NoError(t, b.Verify())
	assert.Equal(t, b.Hash, b.ComputeHash())

	b.Header.StateRoot = "0xother"
	assert.Error(t, b.Verify())
}
