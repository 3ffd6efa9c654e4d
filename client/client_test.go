package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/client"
	"github.com/tolelom/skillbloom/config"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/internal/testnode"
	"github.com/tolelom/skillbloom/internal/testutil"
	"github.com/tolelom/skillbloom/rpc"
	"github.com/tolelom/skillbloom/skilltree"
	"github.com/tolelom/skillbloom/wallet"
)

type env struct {
	f        *testnode.Fixture
	c        *client.Client
	owner    *wallet.Wallet
	verifier *wallet.Wallet
	player   *wallet.Wallet
}

func newEnv(t *testing.T, cache *client.PlayerCache) *env {
	t.Helper()
	player := wallet.New(testutil.NewKey(t))
	f := testnode.New(t, 1000, func(c *config.Config) {
		c.Genesis.Skills = config.DefaultSkills()
		c.Genesis.Alloc[player.Address().Hex()] = 1000
	})

	srv := httptest.NewServer(rpc.NewServer("127.0.0.1:0", f.Handler, "", nil, nil).HTTPHandler())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Engine.Run(ctx, 5*time.Millisecond)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})

	c := client.New(client.NewHTTPTransport(srv.URL, ""), client.Config{
		ChainID:      testutil.ChainID,
		PollInterval: 5 * time.Millisecond,
	}, cache, nil)
	return &env{
		f:        f,
		c:        c,
		owner:    wallet.New(f.Owner),
		verifier: wallet.New(f.Verifier),
		player:   player,
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRegisterAndUnlock(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)

	points, err := e.c.RegisterPlayer(ctx, e.player)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), points)

	res, err := e.c.UnlockSkill(ctx, e.player, 0, points)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), res.NewPoints)
	assert.Equal(t, uint32(2), res.NewLevel)

	unlocked, err := e.c.IsSkillUnlocked(ctx, e.player.Address(), 0)
	require.NoError(t, err)
	assert.True(t, unlocked)

	_, err = e.c.UnlockSkill(ctx, e.player, 0, 4)
	require.ErrorIs(t, err, core.ErrSkillAlreadyUnlocked)
	left, err := e.c.PlayerSkillPoints(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint32(4), left)

	history, err := e.c.UnlockHistory(ctx, e.player.Address())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Zero(t, history[0].SkillID)
}

func TestDuplicateRegistrationSurfacesLedgerError(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)

	_, err := e.c.RegisterPlayer(ctx, e.player)
	require.NoError(t, err)

	_, err = e.c.RegisterPlayer(ctx, e.player)
	require.ErrorIs(t, err, core.ErrAlreadyRegistered)
	var txErr *client.TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, core.TxRegisterPlayer, txErr.Type)

	r, err := e.c.Receipt(ctx, txErr.TxID)
	require.NoError(t, err)
	assert.Equal(t, core.TxFailed, r.Status)
}

func TestQueryErrorsMapToSentinels(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)

	_, err := e.c.PlayerLevel(ctx, e.player.Address())
	assert.ErrorIs(t, err, core.ErrNotRegistered)
	_, err = e.c.SkillInfo(ctx, 42)
	assert.ErrorIs(t, err, core.ErrInvalidSkill)
	_, err = e.c.Tournament(ctx, 42)
	assert.ErrorIs(t, err, core.ErrInvalidTournament)

	info, err := e.c.SkillInfo(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), info.Cost)

	n, err := e.c.SkillsLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), n)

	ids, err := e.c.SkillsByBranch(ctx, core.BranchHybrid)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 10}, ids)
}

func TestOwnerCommands(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)

	id, err := e.c.CreateSkill(ctx, e.owner, client.SkillSpec{
		Name: "Shadow Step", Branch: core.BranchHybrid, Cost: 2, RequiredLevel: 2, Requires: []uint64{0},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)

	_, err = e.c.CreateSkill(ctx, e.player, client.SkillSpec{Name: "Cheat", Branch: core.BranchCombat, Cost: 0})
	require.ErrorIs(t, err, core.ErrUnauthorized)

	skill, err := e.c.Skill(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Shadow Step", skill.Name)
	assert.Equal(t, e.owner.Address(), skill.Creator)

	roles, err := e.c.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, e.verifier.Address(), roles.Verifier)
}

func TestTournamentFlow(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)

	id, err := e.c.CreateTournament(ctx, e.owner, "Spring Cup", 100, 5000)
	require.NoError(t, err)
	_, err = e.c.RegisterPlayer(ctx, e.player)
	require.NoError(t, err)

	_, err = e.c.JoinTournament(ctx, e.player, id, 100, 50)
	require.ErrorIs(t, err, core.ErrInsufficientPayment)

	res, err := e.c.JoinTournament(ctx, e.player, id, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Escrow)

	_, err = e.c.JoinTournament(ctx, e.player, id, 100, 100)
	require.ErrorIs(t, err, core.ErrAlreadyJoined)

	tr, err := e.c.Tournament(ctx, id)
	require.NoError(t, err)
	assert.True(t, tr.IsParticipant(e.player.Address()))

	joined, err := e.c.TournamentsByPlayer(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, joined)

	acc, err := e.c.Account(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(900), acc.Balance)
}

func TestReputationAndTransfer(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)

	_, err := e.c.RegisterPlayer(ctx, e.player)
	require.NoError(t, err)

	_, err = e.c.UpdateReputation(ctx, e.owner, e.player.Address(), 5)
	require.ErrorIs(t, err, core.ErrUnauthorized)

	rep, err := e.c.UpdateReputation(ctx, e.verifier, e.player.Address(), 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), rep)

	require.NoError(t, e.c.Transfer(ctx, e.player, e.owner.Address(), 250))
	acc, err := e.c.Account(ctx, e.owner.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1250), acc.Balance)
}

func TestPlayerCacheInvalidatedByCommands(t *testing.T) {
	cache, err := client.NewPlayerCache(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	e := newEnv(t, cache)
	ctx := testContext(t)

	_, err = e.c.RegisterPlayer(ctx, e.player)
	require.NoError(t, err)

	v, err := e.c.Player(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint32(5), v.Points)
	assert.Equal(t, 1, cache.Len())

	_, err = e.c.UnlockSkill(ctx, e.player, 3, v.Points)
	require.NoError(t, err)
	v, err = e.c.Player(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint32(4), v.Points)
	assert.True(t, v.HasUnlocked(3))

	_, err = e.c.UpdateReputation(ctx, e.verifier, e.player.Address(), 7)
	require.NoError(t, err)
	v, err = e.c.Player(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v.Reputation)
}

func TestSessionOverLedger(t *testing.T) {
	e := newEnv(t, nil)
	ctx := testContext(t)
	_, err := e.c.RegisterPlayer(ctx, e.player)
	require.NoError(t, err)

	s := skilltree.NewSession(skilltree.DefaultGraph(), skilltree.DefaultConfig(), e.c.ForPlayer(e.player))
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, uint32(5), s.Points())

	require.NoError(t, s.Unlock(ctx, "magic_basic"))
	require.NoError(t, s.Unlock(ctx, "magic_advanced"))
	assert.Equal(t, uint32(2), s.Points())

	st, err := s.Status("magic_forbidden")
	require.NoError(t, err)
	assert.Equal(t, skilltree.Encrypted, st)

	points, err := e.c.PlayerSkillPoints(ctx, e.player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), points)
}

func TestCachelessPlayerLookup(t *testing.T) {
	var cache *client.PlayerCache
	assert.Zero(t, cache.Len())
	_, ok := cache.Get(testutil.NewKey(t).Address())
	assert.False(t, ok)
}
