// Package skilltree is the client-side view model of the skill graph: the
// static node topology, the per-node status rules, and a per-player progress
// session reconciled against the ledger.
package skilltree

import (
	"errors"
	"fmt"

	"github.com/tolelom/skillbloom/core"
)

// Position places a node on the canvas, in percent of width and height.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one skill in the graph. ID is the ledger skill id; Key is the
// stable name prerequisites and edges refer to.
type Node struct {
	ID          uint64      `json:"id"`
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Position    Position    `json:"position"`
	Icon        string      `json:"icon"`
	Cost        uint32      `json:"cost"`
	Requires    []string    `json:"requires"`
	Branch      core.Branch `json:"branch"`
	Encrypted   bool        `json:"encrypted"` // hidden build, revealed in tournaments
}

// Edge connects two nodes for rendering.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is an immutable skill graph. Nodes[i].ID == i.
type Graph struct {
	Nodes []Node
	Edges []Edge

	byKey map[string]int
}

// NewGraph indexes nodes and edges and validates the result.
func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{Nodes: nodes, Edges: edges, byKey: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		if _, dup := g.byKey[n.Key]; dup {
			return nil, fmt.Errorf("duplicate node key %q", n.Key)
		}
		g.byKey[n.Key] = i
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Node returns the node with key.
func (g *Graph) Node(key string) (Node, bool) {
	i, ok := g.byKey[key]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodeByID returns the node for ledger skill id.
func (g *Graph) NodeByID(id uint64) (Node, bool) {
	if id >= uint64(len(g.Nodes)) {
		return Node{}, false
	}
	return g.Nodes[id], true
}

// Validate checks that ids are index-aligned, keys are unique, every
// prerequisite and edge endpoint names a known node, and prerequisites are
// acyclic.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Key == "" {
			return fmt.Errorf("node %d: empty key", i)
		}
		if n.ID != uint64(i) {
			return fmt.Errorf("node %q: id %d, want %d", n.Key, n.ID, i)
		}
		if seen[n.Key] {
			return fmt.Errorf("duplicate node key %q", n.Key)
		}
		seen[n.Key] = true
		if !n.Branch.Valid() {
			return fmt.Errorf("node %q: unknown branch %q", n.Key, n.Branch)
		}
	}
	for _, n := range g.Nodes {
		for _, req := range n.Requires {
			if !seen[req] {
				return fmt.Errorf("node %q: unknown prerequisite %q", n.Key, req)
			}
		}
	}
	for _, e := range g.Edges {
		if !seen[e.From] || !seen[e.To] {
			return fmt.Errorf("edge %s→%s references unknown node", e.From, e.To)
		}
	}
	return g.checkAcyclic()
}

var errCycle = errors.New("prerequisite cycle")

func (g *Graph) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.Nodes))
	reqs := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		reqs[n.Key] = n.Requires
	}
	var visit func(key string) error
	visit = func(key string) error {
		switch state[key] {
		case visiting:
			return fmt.Errorf("%w through %q", errCycle, key)
		case done:
			return nil
		}
		state[key] = visiting
		for _, r := range reqs[key] {
			if err := visit(r); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}
	for _, n := range g.Nodes {
		if err := visit(n.Key); err != nil {
			return err
		}
	}
	return nil
}

// DefaultGraph returns the launch skill tree: three tiers per branch and two
// hybrid skills. Node ids match the genesis skill catalog.
func DefaultGraph() *Graph {
	nodes := []Node{
		{ID: 0, Key: "combat_basic", Name: "Basic Combat", Description: "Fundamental fighting techniques and weapon handling",
			Position: Position{20, 80}, Icon: "shield", Cost: 1, Branch: core.BranchCombat},
		{ID: 1, Key: "combat_advanced", Name: "Advanced Combat", Description: "Master-level fighting techniques and combo attacks",
			Position: Position{20, 60}, Icon: "shield", Cost: 2, Requires: []string{"combat_basic"}, Branch: core.BranchCombat},
		{ID: 2, Key: "combat_master", Name: "Combat Mastery", Description: "Legendary combat prowess",
			Position: Position{20, 40}, Icon: "shield", Cost: 3, Requires: []string{"combat_advanced"}, Branch: core.BranchCombat, Encrypted: true},

		{ID: 3, Key: "magic_basic", Name: "Basic Spellcasting", Description: "Learn to channel magical energies",
			Position: Position{50, 80}, Icon: "zap", Cost: 1, Branch: core.BranchMagic},
		{ID: 4, Key: "magic_advanced", Name: "Arcane Mastery", Description: "Harness powerful magical forces",
			Position: Position{50, 60}, Icon: "zap", Cost: 2, Requires: []string{"magic_basic"}, Branch: core.BranchMagic},
		{ID: 5, Key: "magic_forbidden", Name: "Forbidden Arts", Description: "Ancient forbidden magic",
			Position: Position{50, 40}, Icon: "zap", Cost: 4, Requires: []string{"magic_advanced"}, Branch: core.BranchMagic, Encrypted: true},

		{ID: 6, Key: "support_basic", Name: "Basic Support", Description: "Learn healing and buffing abilities",
			Position: Position{80, 80}, Icon: "star", Cost: 1, Branch: core.BranchSupport},
		{ID: 7, Key: "support_advanced", Name: "Divine Grace", Description: "Master healing and protection spells",
			Position: Position{80, 60}, Icon: "star", Cost: 2, Requires: []string{"support_basic"}, Branch: core.BranchSupport},
		{ID: 8, Key: "support_legendary", Name: "Resurrection", Description: "The power over life and death",
			Position: Position{80, 40}, Icon: "star", Cost: 5, Requires: []string{"support_advanced"}, Branch: core.BranchSupport, Encrypted: true},

		{ID: 9, Key: "hybrid_spellsword", Name: "Spellsword", Description: "Combine magic and combat",
			Position: Position{35, 25}, Icon: "zap", Cost: 3, Requires: []string{"combat_advanced", "magic_advanced"}, Branch: core.BranchHybrid, Encrypted: true},
		{ID: 10, Key: "hybrid_paladin", Name: "Sacred Warrior", Description: "Holy combat mastery",
			Position: Position{65, 25}, Icon: "shield", Cost: 3, Requires: []string{"combat_advanced", "support_advanced"}, Branch: core.BranchHybrid, Encrypted: true},
	}
	edges := []Edge{
		{"combat_basic", "combat_advanced"},
		{"combat_advanced", "combat_master"},
		{"magic_basic", "magic_advanced"},
		{"magic_advanced", "magic_forbidden"},
		{"support_basic", "support_advanced"},
		{"support_advanced", "support_legendary"},
		{"combat_advanced", "hybrid_spellsword"},
		{"magic_advanced", "hybrid_spellsword"},
		{"combat_advanced", "hybrid_paladin"},
		{"support_advanced", "hybrid_paladin"},
	}
	g, err := NewGraph(nodes, edges)
	if err != nil {
		panic("skilltree: default graph invalid: " + err.Error())
	}
	return g
}
