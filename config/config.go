package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/core"
	"gopkg.in/yaml.v3"
)

// DefaultInitialSkillPoints is the skill point grant of a freshly registered
// player unless genesis overrides it.
const DefaultInitialSkillPoints = 5

// SeedSkill is a skill definition created at genesis, in catalog order.
// Requires holds the catalog indexes of prerequisite skills.
type SeedSkill struct {
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	Branch        core.Branch `yaml:"branch"`
	Cost          uint32      `yaml:"cost"`
	RequiredLevel uint32      `yaml:"required_level"`
	Requires      []uint64    `yaml:"requires,omitempty"`
}

// GenesisConfig describes the ledger's initial state.
type GenesisConfig struct {
	ChainID            string            `yaml:"chain_id"`
	Owner              string            `yaml:"owner"`    // curates skills and tournaments
	Verifier           string            `yaml:"verifier"` // attests reputation changes
	Alloc              map[string]uint64 `yaml:"alloc"`    // address hex → initial balance
	InitialSkillPoints uint32            `yaml:"initial_skill_points"`
	Skills             []SeedSkill       `yaml:"skills"`
}

// Config holds all node configuration.
type Config struct {
	NodeID        string        `yaml:"node_id"`
	DataDir       string        `yaml:"data_dir"`
	RPCHost       string        `yaml:"rpc_host"`
	RPCPort       int           `yaml:"rpc_port"`
	RPCAuthToken  string        `yaml:"rpc_auth_token"` // empty disables bearer auth
	BlockInterval time.Duration `yaml:"block_interval"`
	MaxBlockTxs   int           `yaml:"max_block_txs"` // max transactions per block; 0 → 500
	MempoolSize   int           `yaml:"mempool_size"`
	Validators    []string      `yaml:"validators"` // authorised proposer addresses
	LogLevel      string        `yaml:"log_level"`  // "debug" selects the development logger
	Genesis       GenesisConfig `yaml:"genesis"`
}

// DefaultConfig returns a single-node development configuration. Owner,
// verifier and validators are left empty and must be filled in before the
// node starts.
func DefaultConfig() *Config {
	return &Config{
		NodeID:        "node0",
		DataDir:       "./data",
		RPCHost:       "127.0.0.1",
		RPCPort:       8545,
		BlockInterval: time.Second,
		MaxBlockTxs:   500,
		MempoolSize:   core.DefaultMempoolSize,
		LogLevel:      "info",
		Genesis: GenesisConfig{
			ChainID:            "skillbloom-dev",
			Alloc:              map[string]uint64{},
			InitialSkillPoints: DefaultInitialSkillPoints,
			Skills:             DefaultSkills(),
		},
	}
}

// DefaultSkills returns the launch catalog: three tiers per branch plus two
// hybrid skills.
func DefaultSkills() []SeedSkill {
	return []SeedSkill{
		{Name: "Basic Combat", Description: "Fundamental fighting techniques and weapon handling", Branch: core.BranchCombat, Cost: 1, RequiredLevel: 1},
		{Name: "Advanced Combat", Description: "Master-level fighting techniques and combo attacks", Branch: core.BranchCombat, Cost: 2, RequiredLevel: 2, Requires: []uint64{0}},
		{Name: "Combat Mastery", Description: "Legendary combat prowess - ENCRYPTED BUILD", Branch: core.BranchCombat, Cost: 3, RequiredLevel: 3, Requires: []uint64{1}},
		{Name: "Basic Spellcasting", Description: "Learn to channel magical energies", Branch: core.BranchMagic, Cost: 1, RequiredLevel: 1},
		{Name: "Arcane Mastery", Description: "Harness powerful magical forces", Branch: core.BranchMagic, Cost: 2, RequiredLevel: 2, Requires: []uint64{3}},
		{Name: "Forbidden Arts", Description: "Ancient forbidden magic - ENCRYPTED BUILD", Branch: core.BranchMagic, Cost: 4, RequiredLevel: 3, Requires: []uint64{4}},
		{Name: "Basic Support", Description: "Learn healing and buffing abilities", Branch: core.BranchSupport, Cost: 1, RequiredLevel: 1},
		{Name: "Divine Grace", Description: "Master healing and protection spells", Branch: core.BranchSupport, Cost: 2, RequiredLevel: 2, Requires: []uint64{6}},
		{Name: "Resurrection", Description: "The power over life and death - ENCRYPTED BUILD", Branch: core.BranchSupport, Cost: 5, RequiredLevel: 3, Requires: []uint64{7}},
		{Name: "Spellsword", Description: "Combine magic and combat - ENCRYPTED BUILD", Branch: core.BranchHybrid, Cost: 3, RequiredLevel: 3, Requires: []uint64{1, 4}},
		{Name: "Sacred Warrior", Description: "Holy combat mastery - ENCRYPTED BUILD", Branch: core.BranchHybrid, Cost: 3, RequiredLevel: 3, Requires: []uint64{1, 7}},
	}
}

// Load reads a YAML config file from path.
// If the file doesn't exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RPCAddr returns the host:port the RPC server listens on.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("%s:%d", c.RPCHost, c.RPCPort)
}

// Roles parses the genesis owner and verifier.
func (g *GenesisConfig) Roles() (core.Roles, error) {
	owner, err := parseAddress("owner", g.Owner)
	if err != nil {
		return core.Roles{}, err
	}
	verifier, err := parseAddress("verifier", g.Verifier)
	if err != nil {
		return core.Roles{}, err
	}
	return core.Roles{Owner: owner, Verifier: verifier}, nil
}

// ValidatorAddresses parses the configured validator set.
func (c *Config) ValidatorAddresses() ([]common.Address, error) {
	out := make([]common.Address, 0, len(c.Validators))
	for i, v := range c.Validators {
		addr, err := parseAddress(fmt.Sprintf("validators[%d]", i), v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// Validate reports the first configuration problem that would prevent the
// node from starting.
func (c *Config) Validate() error {
	if c.Genesis.ChainID == "" {
		return errors.New("genesis.chain_id is required")
	}
	roles, err := c.Genesis.Roles()
	if err != nil {
		return err
	}
	if roles.Owner == roles.Verifier {
		return errors.New("genesis owner and verifier must be distinct addresses")
	}
	if len(c.Validators) == 0 {
		return errors.New("at least one validator is required")
	}
	if _, err := c.ValidatorAddresses(); err != nil {
		return err
	}
	for addr := range c.Genesis.Alloc {
		if _, err := parseAddress("genesis.alloc", addr); err != nil {
			return err
		}
	}
	for i, s := range c.Genesis.Skills {
		if err := s.validate(uint64(i)); err != nil {
			return fmt.Errorf("genesis.skills[%d]: %w", i, err)
		}
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port %d out of range", c.RPCPort)
	}
	if c.BlockInterval <= 0 {
		return errors.New("block_interval must be positive")
	}
	return nil
}

func (s SeedSkill) validate(index uint64) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !s.Branch.Valid() {
		return fmt.Errorf("unknown branch %q", s.Branch)
	}
	for _, req := range s.Requires {
		if req >= index {
			return fmt.Errorf("prerequisite %d must precede skill %d", req, index)
		}
	}
	return nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s: zero address", field)
	}
	return addr, nil
}
