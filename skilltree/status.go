package skilltree

import "fmt"

// Status is the derived display state of a node.
type Status int

const (
	Locked Status = iota
	Available
	Unlocked
	Encrypted
)

var statusNames = [...]string{
	Locked:    "locked",
	Available: "available",
	Unlocked:  "unlocked",
	Encrypted: "encrypted",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DefaultEncryptedThreshold is the cost from which a node is treated as a
// hidden high-tier build.
const DefaultEncryptedThreshold = 3

// Config holds the tunable status rules.
type Config struct {
	// EncryptedThreshold is the cost at or above which a node is never
	// offered for unlocking. Zero disables the cost rule; nodes flagged
	// Encrypted are hidden regardless.
	EncryptedThreshold uint32 `yaml:"encrypted_threshold" json:"encrypted_threshold"`
}

// DefaultConfig returns the launch rules.
func DefaultConfig() Config {
	return Config{EncryptedThreshold: DefaultEncryptedThreshold}
}

func (c Config) hidden(n Node) bool {
	return n.Encrypted || (c.EncryptedThreshold > 0 && n.Cost >= c.EncryptedThreshold)
}

// Status derives the state of n for a player holding unlocked (by node key)
// and points unspent skill points.
func (c Config) Status(n Node, unlocked map[string]bool, points uint32) Status {
	if unlocked[n.Key] {
		return Unlocked
	}
	met := requirementsMet(n, unlocked)
	switch {
	case c.hidden(n):
		if met {
			return Encrypted
		}
		return Locked
	case met && points >= n.Cost:
		return Available
	default:
		return Locked
	}
}

func requirementsMet(n Node, unlocked map[string]bool) bool {
	for _, req := range n.Requires {
		if !unlocked[req] {
			return false
		}
	}
	return true
}

// EdgeActive reports whether both endpoints of e are unlocked.
func EdgeActive(e Edge, unlocked map[string]bool) bool {
	return unlocked[e.From] && unlocked[e.To]
}

// NodeView is a node with its derived status.
type NodeView struct {
	Node
	Status Status `json:"status"`
}

// EdgeView is an edge with its derived activity.
type EdgeView struct {
	Edge
	Active bool `json:"active"`
}

// View is everything a renderer needs for one player.
type View struct {
	Points uint32     `json:"points"`
	Nodes  []NodeView `json:"nodes"`
	Edges  []EdgeView `json:"edges"`
}

// Snapshot derives the status of every node and edge.
func (g *Graph) Snapshot(cfg Config, unlocked map[string]bool, points uint32) View {
	v := View{
		Points: points,
		Nodes:  make([]NodeView, len(g.Nodes)),
		Edges:  make([]EdgeView, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		v.Nodes[i] = NodeView{Node: n, Status: cfg.Status(n, unlocked, points)}
	}
	for i, e := range g.Edges {
		v.Edges[i] = EdgeView{Edge: e, Active: EdgeActive(e, unlocked)}
	}
	return v
}

// UnlockedKeys maps ledger skill ids to node keys, skipping ids the graph
// does not know.
func (g *Graph) UnlockedKeys(ids []uint64) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n, ok := g.NodeByID(id); ok {
			out[n.Key] = true
		}
	}
	return out
}
