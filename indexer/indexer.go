// Package indexer maintains secondary indexes over committed blocks so game
// clients can list tournaments by player and skills by branch without
// scanning full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/storage"
	"go.uber.org/zap"
)

const (
	prefixPlayerTournaments = "idx:player:tourn:"
	prefixBranchSkills      = "idx:branch:skill:"
	prefixPlayerUnlocks     = "idx:player:unlock:"
)

// UnlockRecord is one entry of a player's unlock history.
type UnlockRecord struct {
	SkillID     uint64 `json:"skill_id"`
	BlockHeight int64  `json:"block_height"`
	TxID        string `json:"tx_id"`
}

// Indexer subscribes to ledger events and updates secondary lookup tables.
// Events are only delivered after their block is committed.
type Indexer struct {
	db     storage.DB
	logger *zap.Logger
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &Indexer{db: db, logger: logger.Named("indexer")}
	emitter.Subscribe(events.EventSkillCreated, idx.onSkillCreated)
	emitter.Subscribe(events.EventSkillUnlocked, idx.onSkillUnlocked)
	emitter.Subscribe(events.EventTournamentJoined, idx.onTournamentJoined)
	return idx
}

// GetTournamentsByPlayer returns the IDs of every tournament player joined,
// in join order.
func (idx *Indexer) GetTournamentsByPlayer(player common.Address) ([]uint64, error) {
	var ids []uint64
	if err := idx.getList(prefixPlayerTournaments+player.Hex(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetSkillsByBranch returns the IDs of every skill created in branch.
func (idx *Indexer) GetSkillsByBranch(branch core.Branch) ([]uint64, error) {
	var ids []uint64
	if err := idx.getList(prefixBranchSkills+string(branch), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetUnlockHistory returns player's unlocks in ledger order.
func (idx *Indexer) GetUnlockHistory(player common.Address) ([]UnlockRecord, error) {
	var recs []UnlockRecord
	if err := idx.getList(prefixPlayerUnlocks+player.Hex(), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ---- event handlers ----

func (idx *Indexer) onSkillCreated(ev events.Event) {
	id, ok := ev.Data["skill_id"].(uint64)
	branch, _ := ev.Data["branch"].(string)
	if !ok || branch == "" {
		return
	}
	idx.appendID(prefixBranchSkills+branch, id)
}

func (idx *Indexer) onSkillUnlocked(ev events.Event) {
	id, ok := ev.Data["skill_id"].(uint64)
	player, okPlayer := ev.Data["player"].(common.Address)
	if !ok || !okPlayer {
		return
	}
	key := prefixPlayerUnlocks + player.Hex()
	var recs []UnlockRecord
	if err := idx.getList(key, &recs); err != nil {
		idx.logger.Error("read unlock history", zap.String("player", player.Hex()), zap.Error(err))
		return
	}
	recs = append(recs, UnlockRecord{SkillID: id, BlockHeight: ev.BlockHeight, TxID: ev.TxID})
	if err := idx.setList(key, recs); err != nil {
		idx.logger.Error("write unlock history", zap.String("player", player.Hex()), zap.Error(err))
	}
}

func (idx *Indexer) onTournamentJoined(ev events.Event) {
	id, ok := ev.Data["tournament_id"].(uint64)
	player, okPlayer := ev.Data["player"].(common.Address)
	if !ok || !okPlayer {
		return
	}
	idx.appendID(prefixPlayerTournaments+player.Hex(), id)
}

// ---- list helpers ----

func (idx *Indexer) appendID(key string, id uint64) {
	var ids []uint64
	if err := idx.getList(key, &ids); err != nil {
		idx.logger.Error("read index", zap.String("key", key), zap.Error(err))
		return
	}
	if slices.Contains(ids, id) {
		return
	}
	if err := idx.setList(key, append(ids, id)); err != nil {
		idx.logger.Error("write index", zap.String("key", key), zap.Error(err))
	}
}

func (idx *Indexer) getList(key string, out any) error {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil // empty list
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("indexer unmarshal: %w", err)
	}
	return nil
}

func (idx *Indexer) setList(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
