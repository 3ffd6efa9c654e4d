package testutil

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/codec"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
	"github.com/tolelom/skillbloom/storage"
	"github.com/tolelom/skillbloom/vm"
)

// ChainID is the chain id fixtures sign for.
const ChainID = "test-chain"

// Ledger is an executor over in-memory state with owner and verifier keys,
// for driving transaction handlers directly. It tracks nonces of every key
// it signs for.
type Ledger struct {
	t        *testing.T
	State    *storage.StateDB
	Exec     *vm.Executor
	Owner    *crypto.PrivateKey
	Verifier *crypto.PrivateKey
	Block    *core.Block

	nonces map[common.Address]uint64
}

// NewLedger creates a ledger with distinct owner and verifier and an initial
// grant of initialPoints skill points per registered player.
func NewLedger(t *testing.T, initialPoints uint32) *Ledger {
	t.Helper()
	state := NewStateDB()
	owner := NewKey(t)
	verifier := NewKey(t)
	require.NoError(t, state.SetRoles(&core.Roles{Owner: owner.Address(), Verifier: verifier.Address()}))
	require.NoError(t, state.SetInitialSkillPoints(initialPoints))
	return &Ledger{
		t:        t,
		State:    state,
		Exec:     vm.NewExecutor(state, ChainID, nil),
		Owner:    owner,
		Verifier: verifier,
		Block:    core.NewBlock(1, "0x00", owner.Address(), nil),
		nonces:   make(map[common.Address]uint64),
	}
}

// NewKey returns a fresh secp256k1 key.
func NewKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return k
}

// Fund sets the token balance of addr.
func (l *Ledger) Fund(addr common.Address, balance uint64) {
	l.t.Helper()
	acc, err := l.State.GetAccount(addr)
	require.NoError(l.t, err)
	acc.Balance = balance
	require.NoError(l.t, l.State.SetAccount(acc))
}

// Tx builds and signs a transaction from key with its next nonce.
func (l *Ledger) Tx(key *crypto.PrivateKey, typ core.TxType, payload any) *core.Transaction {
	l.t.Helper()
	tx, err := core.NewTransaction(ChainID, typ, key.Address(), l.nonces[key.Address()], 0, payload)
	require.NoError(l.t, err)
	require.NoError(l.t, tx.Sign(key))
	return tx
}

// Do executes a transaction from key. The tracked nonce only advances on
// success, matching the executor's revert of failed transactions.
func (l *Ledger) Do(key *crypto.PrivateKey, typ core.TxType, payload any) (*vm.Outcome, error) {
	l.t.Helper()
	out, err := l.Exec.ExecuteTx(l.Block, l.Tx(key, typ, payload))
	if err == nil {
		l.nonces[key.Address()]++
	}
	return out, err
}

// MustDo executes a transaction that is expected to succeed.
func (l *Ledger) MustDo(key *crypto.PrivateKey, typ core.TxType, payload any) *vm.Outcome {
	l.t.Helper()
	out, err := l.Do(key, typ, payload)
	require.NoError(l.t, err)
	return out
}

// CreateSkill creates a skill as owner and returns its id.
func (l *Ledger) CreateSkill(name string, branch core.Branch, cost uint32, requiredLevel uint32, requires ...uint64) uint64 {
	l.t.Helper()
	enc := codec.Encode(cost)
	out := l.MustDo(l.Owner, core.TxCreateSkill, core.CreateSkillPayload{
		Name:          name,
		Branch:        branch,
		EncodedCost:   enc.Data,
		Proof:         enc.Proof,
		RequiredLevel: requiredLevel,
		Requires:      requires,
	})
	var res core.SkillCreatedResult
	require.NoError(l.t, (&core.Receipt{Result: out.Result}).DecodeResult(&res))
	return res.SkillID
}

// Register registers key as a player.
func (l *Ledger) Register(key *crypto.PrivateKey) {
	l.t.Helper()
	l.MustDo(key, core.TxRegisterPlayer, core.RegisterPlayerPayload{})
}

// Player loads the player record of addr.
func (l *Ledger) Player(addr common.Address) *core.Player {
	l.t.Helper()
	p, err := l.State.GetPlayer(addr)
	require.NoError(l.t, err)
	return p
}
