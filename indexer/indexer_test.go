package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/internal/testutil"
)

func TestIndexesSkillsByBranch(t *testing.T) {
	em := events.NewEmitter(nil)
	idx := New(testutil.NewMemDB(), em, nil)

	em.Emit(events.Event{Type: events.EventSkillCreated, Data: map[string]any{"skill_id": uint64(0), "branch": "combat"}})
	em.Emit(events.Event{Type: events.EventSkillCreated, Data: map[string]any{"skill_id": uint64(1), "branch": "magic"}})
	em.Emit(events.Event{Type: events.EventSkillCreated, Data: map[string]any{"skill_id": uint64(2), "branch": "combat"}})

	ids, err := idx.GetSkillsByBranch(core.BranchCombat)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2}, ids)

	ids, err = idx.GetSkillsByBranch(core.BranchSupport)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndexesTournamentsByPlayer(t *testing.T) {
	em := events.NewEmitter(nil)
	idx := New(testutil.NewMemDB(), em, nil)
	p := testutil.NewKey(t).Address()

	for _, id := range []uint64{3, 1, 3} {
		em.Emit(events.Event{Type: events.EventTournamentJoined, Data: map[string]any{"tournament_id": id, "player": p}})
	}

	ids, err := idx.GetTournamentsByPlayer(p)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1}, ids)
}

func TestRecordsUnlockHistory(t *testing.T) {
	em := events.NewEmitter(nil)
	idx := New(testutil.NewMemDB(), em, nil)
	p := testutil.NewKey(t).Address()

	em.Emit(events.Event{Type: events.EventSkillUnlocked, TxID: "0xa", BlockHeight: 4, Data: map[string]any{"skill_id": uint64(0), "player": p}})
	em.Emit(events.Event{Type: events.EventSkillUnlocked, TxID: "0xb", BlockHeight: 7, Data: map[string]any{"skill_id": uint64(1), "player": p}})

	recs, err := idx.GetUnlockHistory(p)
	require.NoError(t, err)
	assert.Equal(t, []UnlockRecord{
		{SkillID: 0, BlockHeight: 4, TxID: "0xa"},
		{SkillID: 1, BlockHeight: 7, TxID: "0xb"},
	}, recs)
}

func TestIgnoresMalformedEvents(t *testing.T) {
	em := events.NewEmitter(nil)
	db := testutil.NewMemDB()
	New(db, em, nil)

	em.Emit(events.Event{Type: events.EventSkillCreated, Data: map[string]any{"skill_id": "zero", "branch": "combat"}})
	em.Emit(events.Event{Type: events.EventTournamentJoined, Data: map[string]any{"tournament_id": uint64(1)}})
	assert.Zero(t, db.Len())
}
