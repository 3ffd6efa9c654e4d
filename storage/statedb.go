package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated by registerPrefix() below.
var statePrefixes []string

var (
	prefixAccount    = registerPrefix("acct:")
	prefixSkill      = registerPrefix("skill:")
	prefixPlayer     = registerPrefix("player:")
	prefixTournament = registerPrefix("tourn:")
	prefixMeta       = registerPrefix("meta:")
)

var (
	keyRoles           = prefixMeta + "roles"
	keySkillCount      = prefixMeta + "skill_count"
	keyTournamentCount = prefixMeta + "tournament_count"
	keyInitialPoints   = prefixMeta + "initial_points"
)

func seqKey(prefix string, id uint64) string {
	return fmt.Sprintf("%s%020d", prefix, id)
}

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with an in-memory write
// buffer, snapshot/rollback, and deterministic state-root computation.
// It is not safe for concurrent writers; the consensus engine is its only
// writer.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) getJSON(key string, out any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *StateDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, data)
	return nil
}

func (s *StateDB) getUint(key string) (uint64, error) {
	data, err := s.get(key)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(data), 10, 64)
}

func (s *StateDB) setUint(key string, v uint64) {
	s.set(key, []byte(strconv.FormatUint(v, 10)))
}

// ---- Account ----

func (s *StateDB) GetAccount(addr common.Address) (*core.Account, error) {
	var acc core.Account
	err := s.getJSON(prefixAccount+addr.Hex(), &acc)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: addr}, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	return s.setJSON(prefixAccount+acc.Address.Hex(), acc)
}

// ---- Roles ----

func (s *StateDB) GetRoles() (*core.Roles, error) {
	var r core.Roles
	if err := s.getJSON(keyRoles, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *StateDB) SetRoles(r *core.Roles) error {
	return s.setJSON(keyRoles, r)
}

// ---- Skill ----

func (s *StateDB) GetSkill(id uint64) (*core.SkillDefinition, error) {
	var sk core.SkillDefinition
	if err := s.getJSON(seqKey(prefixSkill, id), &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

func (s *StateDB) AppendSkill(sk *core.SkillDefinition) (uint64, error) {
	n, err := s.getUint(keySkillCount)
	if err != nil {
		return 0, err
	}
	sk.ID = n
	if err := s.setJSON(seqKey(prefixSkill, n), sk); err != nil {
		return 0, err
	}
	s.setUint(keySkillCount, n+1)
	return n, nil
}

func (s *StateDB) SkillCount() (uint64, error) {
	return s.getUint(keySkillCount)
}

// ---- Player ----

func (s *StateDB) GetPlayer(addr common.Address) (*core.Player, error) {
	var p core.Player
	if err := s.getJSON(prefixPlayer+addr.Hex(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *StateDB) SetPlayer(p *core.Player) error {
	return s.setJSON(prefixPlayer+p.Address.Hex(), p)
}

// ---- Tournament ----

func (s *StateDB) GetTournament(id uint64) (*core.Tournament, error) {
	var t core.Tournament
	if err := s.getJSON(seqKey(prefixTournament, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *StateDB) AppendTournament(t *core.Tournament) (uint64, error) {
	n, err := s.getUint(keyTournamentCount)
	if err != nil {
		return 0, err
	}
	t.ID = n
	if err := s.setJSON(seqKey(prefixTournament, n), t); err != nil {
		return 0, err
	}
	s.setUint(keyTournamentCount, n+1)
	return n, nil
}

func (s *StateDB) SetTournament(t *core.Tournament) error {
	n, err := s.getUint(keyTournamentCount)
	if err != nil {
		return err
	}
	if t.ID >= n {
		return fmt.Errorf("tournament %d: %w", t.ID, core.ErrNotFound)
	}
	return s.setJSON(seqKey(prefixTournament, t.ID), t)
}

func (s *StateDB) TournamentCount() (uint64, error) {
	return s.getUint(keyTournamentCount)
}

// ---- Parameters ----

func (s *StateDB) GetInitialSkillPoints() (uint32, error) {
	v, err := s.getUint(keyInitialPoints)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (s *StateDB) SetInitialSkillPoints(points uint32) error {
	s.setUint(keyInitialPoints, uint64(points))
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	s.snapshots = append(s.snapshots, stateSnapshot{
		dirty:   copyDirty(s.dirty),
		deleted: copyDeleted(s.deleted),
	})
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot
// and drops it and every later snapshot.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]
	s.dirty = copyDirty(snap.dirty)
	s.deleted = copyDeleted(snap.deleted)
	s.snapshots = s.snapshots[:id]
	return nil
}

func copyDirty(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func copyDeleted(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ComputeRoot returns the deterministic hash of the complete world state:
// persisted entries under the state prefixes merged with the write buffer,
// sorted by key and length-prefix encoded. It does not modify state.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[string(it.Key())] = v
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB and then
// clears it. Call ComputeRoot() before signing the block.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.Discard()
	return nil
}

// Discard drops the write buffer and all snapshots.
func (s *StateDB) Discard() {
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
}
