package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/internal/testutil"
)

func TestTransferMovesBalance(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	from, to := testutil.NewKey(t), testutil.NewKey(t)
	l.Fund(from.Address(), 100)

	l.MustDo(from, core.TxTransfer, core.TransferPayload{To: to.Address(), Amount: 40})

	fromAcc, err := l.State.GetAccount(from.Address())
	require.NoError(t, err)
	toAcc, err := l.State.GetAccount(to.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(60), fromAcc.Balance)
	assert.Equal(t, uint64(40), toAcc.Balance)
	assert.Equal(t, uint64(1), fromAcc.Nonce)
}

func TestTransferRejections(t *testing.T) {
	l := testutil.NewLedger(t, 5)
	from, to := testutil.NewKey(t), testutil.NewKey(t)
	l.Fund(from.Address(), 10)

	tests := []struct {
		name    string
		payload core.TransferPayload
		want    error
	}{
		{"zero amount", core.TransferPayload{To: to.Address()}, core.ErrInvalidPayload},
		{"missing recipient", core.TransferPayload{Amount: 1}, core.ErrInvalidPayload},
		{"to self", core.TransferPayload{To: from.Address(), Amount: 1}, core.ErrInvalidPayload},
		{"overdraft", core.TransferPayload{To: to.Address(), Amount: 11}, core.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Do(from, core.TxTransfer, tt.payload)
			require.ErrorIs(t, err, tt.want)
		})
	}

	acc, err := l.State.GetAccount(from.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acc.Balance)
	assert.Zero(t, acc.Nonce)
}
