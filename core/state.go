package core

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Account holds a participant's token balance and replay-protection nonce.
type Account struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

// Branch is the thematic grouping of a skill.
type Branch string

const (
	BranchCombat  Branch = "combat"
	BranchMagic   Branch = "magic"
	BranchSupport Branch = "support"
	BranchHybrid  Branch = "hybrid"
)

// Branches lists every valid branch in display order.
var Branches = []Branch{BranchCombat, BranchMagic, BranchSupport, BranchHybrid}

// Valid reports whether b is a known branch.
func (b Branch) Valid() bool {
	return slices.Contains(Branches, b)
}

// Roles holds the two privileged identities. Owner curates skills and
// tournaments; Verifier attests reputation changes. They never coincide.
type Roles struct {
	Owner    common.Address `json:"owner"`
	Verifier common.Address `json:"verifier"`
}

// SkillDefinition is immutable once created. ID is its index in creation order.
type SkillDefinition struct {
	ID            uint64         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Branch        Branch         `json:"branch"`
	EncodedCost   string         `json:"encoded_cost"`
	Cost          uint32         `json:"cost"`
	RequiredLevel uint32         `json:"required_level"`
	Requires      []uint64       `json:"requires,omitempty"`
	Creator       common.Address `json:"creator"`
	CreatedAt     int64          `json:"created_at"`
}

// SkillInfo is the compact view returned by getSkillInfo.
type SkillInfo struct {
	Cost          uint32 `json:"cost"`
	RequiredLevel uint32 `json:"required_level"`
}

// Info returns the cost and level requirement of s.
func (s *SkillDefinition) Info() SkillInfo {
	return SkillInfo{Cost: s.Cost, RequiredLevel: s.RequiredLevel}
}

// Player is created once per address by registration.
type Player struct {
	Address        common.Address `json:"address"`
	SkillPoints    uint32         `json:"skill_points"`
	UnlockedSkills []uint64       `json:"unlocked_skills"`
	Level          uint32         `json:"level"`
	Reputation     uint64         `json:"reputation"`
	RegisteredAt   int64          `json:"registered_at"`
}

// HasUnlocked reports whether skillID is in the player's unlocked set.
func (p *Player) HasUnlocked(skillID uint64) bool {
	return slices.Contains(p.UnlockedSkills, skillID)
}

// LevelFor derives the level of a player holding n unlocked skills.
func LevelFor(n int) uint32 {
	return uint32(n) + 1
}

// Tournament is created by the owner; players join by paying the entry fee.
type Tournament struct {
	ID               uint64           `json:"id"`
	Name             string           `json:"name"`
	EncodedEntryFee  string           `json:"encoded_entry_fee"`
	EntryFee         uint32           `json:"entry_fee"`
	EncodedPrizePool string           `json:"encoded_prize_pool"`
	PrizePool        uint32           `json:"prize_pool"`
	Participants     []common.Address `json:"participants"`
	Escrow           uint64           `json:"escrow"` // total payments collected
	Creator          common.Address   `json:"creator"`
	CreatedAt        int64            `json:"created_at"`
}

// IsParticipant reports whether addr already joined t.
func (t *Tournament) IsParticipant(addr common.Address) bool {
	return slices.Contains(t.Participants, addr)
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
// Getters for records that do not exist return ErrNotFound.
type State interface {
	// Accounts (missing accounts read as zero-value)
	GetAccount(addr common.Address) (*Account, error)
	SetAccount(account *Account) error

	// Roles
	GetRoles() (*Roles, error)
	SetRoles(r *Roles) error

	// Skills
	GetSkill(id uint64) (*SkillDefinition, error)
	// AppendSkill assigns the next sequential ID to s and stores it.
	AppendSkill(s *SkillDefinition) (uint64, error)
	SkillCount() (uint64, error)

	// Players
	GetPlayer(addr common.Address) (*Player, error)
	SetPlayer(p *Player) error

	// Tournaments
	GetTournament(id uint64) (*Tournament, error)
	// AppendTournament assigns the next sequential ID to t and stores it.
	AppendTournament(t *Tournament) (uint64, error)
	SetTournament(t *Tournament) error
	TournamentCount() (uint64, error)

	// Parameters
	GetInitialSkillPoints() (uint32, error)
	SetInitialSkillPoints(points uint32) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
	// Discard drops the write buffer without flushing.
	Discard()
}
