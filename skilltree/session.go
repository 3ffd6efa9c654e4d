package skilltree

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
)

var (
	ErrUnknownSkill   = errors.New("unknown skill")
	ErrNotAvailable   = errors.New("skill not available")
	ErrUnlockInFlight = errors.New("unlock already in flight")
)

// Progress is the ledger-confirmed progress of one player.
type Progress struct {
	Points   uint32
	Unlocked []uint64 // ledger skill ids
}

// Ledger is the authoritative store a Session reconciles with.
type Ledger interface {
	UnlockSkill(ctx context.Context, skillID uint64, currentPoints uint32) error
	Progress(ctx context.Context) (Progress, error)
}

// Session holds one player's progress client-side. Unlocks are applied
// optimistically and rolled back if the ledger rejects them; after a
// successful unlock the session reloads from the ledger. Safe for concurrent
// use.
type Session struct {
	graph  *Graph
	cfg    Config
	ledger Ledger

	mu       sync.Mutex
	unlocked map[string]bool
	points   uint32
	stale    bool
	inflight map[string]uint32 // key → optimistically deducted cost
}

// NewSession creates an empty session; call Refresh to load progress.
func NewSession(g *Graph, cfg Config, l Ledger) *Session {
	return &Session{
		graph:    g,
		cfg:      cfg,
		ledger:   l,
		unlocked: make(map[string]bool),
		stale:    true,
		inflight: make(map[string]uint32),
	}
}

// Refresh replaces the local progress with the ledger's.
func (s *Session) Refresh(ctx context.Context) error {
	p, err := s.ledger.Progress(ctx)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(p)
	return nil
}

// apply installs confirmed progress, keeping the optimistic effect of
// unlocks the ledger has not confirmed yet.
func (s *Session) apply(p Progress) {
	s.unlocked = s.graph.UnlockedKeys(p.Unlocked)
	s.points = p.Points
	for key, cost := range s.inflight {
		if s.unlocked[key] {
			continue
		}
		s.unlocked[key] = true
		s.points -= min(cost, s.points)
	}
	s.stale = false
}

// View derives the current node and edge statuses.
func (s *Session) View() View {
	s.mu.Lock()
	unlocked := maps.Clone(s.unlocked)
	points := s.points
	s.mu.Unlock()
	return s.graph.Snapshot(s.cfg, unlocked, points)
}

// Status returns the current status of the node with key.
func (s *Session) Status(key string) (Status, error) {
	n, ok := s.graph.Node(key)
	if !ok {
		return Locked, fmt.Errorf("%w: %q", ErrUnknownSkill, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Status(n, s.unlocked, s.points), nil
}

// Points returns the local view of unspent skill points.
func (s *Session) Points() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// Unlock unlocks the node with key. Only Available nodes can be unlocked.
// The ledger's error is returned unchanged when it rejects the unlock.
func (s *Session) Unlock(ctx context.Context, key string) error {
	n, ok := s.graph.Node(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSkill, key)
	}

	s.mu.Lock()
	stale := s.stale
	s.mu.Unlock()
	if stale {
		if err := s.Refresh(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnlockInFlight, key)
	}
	if st := s.cfg.Status(n, s.unlocked, s.points); st != Available {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q is %s", ErrNotAvailable, key, st)
	}
	claimed := s.points
	s.unlocked[key] = true
	s.points -= n.Cost
	s.inflight[key] = n.Cost
	s.mu.Unlock()

	err := s.ledger.UnlockSkill(ctx, n.ID, claimed)

	s.mu.Lock()
	delete(s.inflight, key)
	if err != nil {
		delete(s.unlocked, key)
		s.points += n.Cost
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	p, perr := s.ledger.Progress(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if perr != nil {
		// Keep the optimistic state; the next Unlock reloads first.
		s.stale = true
		return nil
	}
	s.apply(p)
	return nil
}
