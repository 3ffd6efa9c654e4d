package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/skillbloom/codec"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
	"github.com/tolelom/skillbloom/internal/testutil"
	"github.com/tolelom/skillbloom/storage"
)

func validConfig(t *testing.T) (*Config, *crypto.PrivateKey) {
	t.Helper()
	validator := testutil.NewKey(t)
	cfg := DefaultConfig()
	cfg.Genesis.Owner = testutil.NewKey(t).Address().Hex()
	cfg.Genesis.Verifier = testutil.NewKey(t).Address().Hex()
	cfg.Validators = []string{validator.Address().Hex()}
	return cfg, validator
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg, _ := validConfig(t)
	cfg.BlockInterval = 250 * time.Millisecond
	cfg.Genesis.Alloc = map[string]uint64{cfg.Genesis.Owner: 1000}
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, "127.0.0.1:8545", loaded.RPCAddr())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing chain id", func(c *Config) { c.Genesis.ChainID = "" }},
		{"bad owner", func(c *Config) { c.Genesis.Owner = "nope" }},
		{"zero verifier", func(c *Config) { c.Genesis.Verifier = "0x0000000000000000000000000000000000000000" }},
		{"owner equals verifier", func(c *Config) { c.Genesis.Verifier = c.Genesis.Owner }},
		{"no validators", func(c *Config) { c.Validators = nil }},
		{"bad validator", func(c *Config) { c.Validators = []string{"0x12"} }},
		{"bad alloc", func(c *Config) { c.Genesis.Alloc = map[string]uint64{"bob": 1} }},
		{"forward prerequisite", func(c *Config) { c.Genesis.Skills[0].Requires = []uint64{1} }},
		{"unknown branch", func(c *Config) { c.Genesis.Skills[0].Branch = "stealth" }},
		{"port out of range", func(c *Config) { c.RPCPort = 70000 }},
		{"zero interval", func(c *Config) { c.BlockInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := validConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg, _ := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultSkillsCatalog(t *testing.T) {
	skills := DefaultSkills()
	require.Len(t, skills, 11)

	costs := make([]uint32, len(skills))
	for i, s := range skills {
		costs[i] = s.Cost
		assert.NoError(t, s.validate(uint64(i)), s.Name)
	}
	assert.Equal(t, []uint32{1, 2, 3, 1, 2, 4, 1, 2, 5, 3, 3}, costs)
	assert.Equal(t, []uint64{1, 4}, skills[9].Requires)
}

func TestApplyGenesisSeedsState(t *testing.T) {
	cfg, _ := validConfig(t)
	cfg.Genesis.InitialSkillPoints = 0
	cfg.Genesis.Alloc = map[string]uint64{cfg.Genesis.Verifier: 77}
	state := testutil.NewStateDB()

	require.NoError(t, ApplyGenesis(cfg, state))

	roles, err := state.GetRoles()
	require.NoError(t, err)
	assert.Equal(t, cfg.Genesis.Owner, roles.Owner.Hex())
	assert.Equal(t, cfg.Genesis.Verifier, roles.Verifier.Hex())

	points, err := state.GetInitialSkillPoints()
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultInitialSkillPoints), points)

	acc, err := state.GetAccount(roles.Verifier)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), acc.Balance)

	n, err := state.SkillCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), n)

	sk, err := state.GetSkill(5)
	require.NoError(t, err)
	assert.Equal(t, "Forbidden Arts", sk.Name)
	assert.Equal(t, core.BranchMagic, sk.Branch)
	cost, err := codec.Decode(sk.EncodedCost)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cost)
	assert.Equal(t, []uint64{4}, sk.Requires)
}

func TestCreateGenesisBlock(t *testing.T) {
	cfg, validator := validConfig(t)
	db := testutil.NewMemDB()
	state := storage.NewStateDB(db)

	block, err := CreateGenesisBlock(cfg, state, validator)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block.Header.Height)
	assert.True(t, IsGenesisHash(block.Header.PrevHash))
	assert.Zero(t, block.Header.Timestamp)
	require.NoError(t, block.Verify())

	reader := storage.NewStateDB(db)
	assert.Equal(t, block.Header.StateRoot, reader.ComputeRoot())
	n, err := reader.SkillCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), n)
}

func TestCreateGenesisBlockRejectsInvalidConfig(t *testing.T) {
	cfg, validator := validConfig(t)
	cfg.Validators = nil
	db := testutil.NewMemDB()

	_, err := CreateGenesisBlock(cfg, storage.NewStateDB(db), validator)
	assert.Error(t, err)
	assert.Zero(t, db.Len())
}
