package client

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
)

// PlayerView is the last ledger-confirmed progress of one player.
type PlayerView struct {
	Address    common.Address `json:"address"`
	Points     uint32         `json:"points"`
	Unlocked   []uint64       `json:"unlocked"`
	Level      uint32         `json:"level"`
	Reputation uint64         `json:"reputation"`
}

// HasUnlocked reports whether skillID is in the view's unlocked set.
func (v *PlayerView) HasUnlocked(skillID uint64) bool {
	return slices.Contains(v.Unlocked, skillID)
}

func viewOf(p *core.Player) *PlayerView {
	return &PlayerView{
		Address:    p.Address,
		Points:     p.SkillPoints,
		Unlocked:   slices.Clone(p.UnlockedSkills),
		Level:      p.Level,
		Reputation: p.Reputation,
	}
}

// PlayerCache holds confirmed PlayerViews keyed by address. Entries are only
// ever written from ledger reads and are dropped after every mutating
// command, so the ledger stays the source of truth. A nil *PlayerCache is a
// valid, always-empty cache.
//
// Every Invalidate bumps the address's generation. A read that started
// before an invalidation stores nothing, so a view fetched while a
// transaction was pending cannot outlive it.
type PlayerCache struct {
	cache *bigcache.BigCache

	mu   sync.Mutex
	gens map[common.Address]uint64
}

// NewPlayerCache creates a cache whose entries expire after ttl.
func NewPlayerCache(ttl time.Duration) (*PlayerCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10_000
	cfg.MaxEntrySize = 512
	cfg.Verbose = false
	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create player cache: %w", err)
	}
	return &PlayerCache{cache: cache, gens: make(map[common.Address]uint64)}, nil
}

// Get returns the cached view of addr.
func (c *PlayerCache) Get(addr common.Address) (*PlayerView, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.cache.Get(addr.Hex())
	if err != nil {
		return nil, false
	}
	var v PlayerView
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Generation returns the invalidation count of addr. Pass it to PutAt once
// the ledger read it guards has returned.
func (c *PlayerCache) Generation(addr common.Address) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[addr]
}

// PutAt stores v only if v.Address has not been invalidated since gen was
// taken. It reports whether v was stored.
func (c *PlayerCache) PutAt(v *PlayerView, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[v.Address] != gen {
		return false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return c.cache.Set(v.Address.Hex(), data) == nil
}

// Invalidate drops the entry of addr and discards any read of addr still
// in flight.
func (c *PlayerCache) Invalidate(addr common.Address) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[addr]++
	_ = c.cache.Delete(addr.Hex())
}

// Len returns the number of cached entries.
func (c *PlayerCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// Close releases the cache's background cleaner.
func (c *PlayerCache) Close() error {
	if c == nil {
		return nil
	}
	return c.cache.Close()
}
