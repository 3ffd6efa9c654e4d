package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tolelom/skillbloom/codec"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ApplyGenesis writes the genesis state (roles, initial skill points,
// balances and the seed skill catalog) into state without committing it.
func ApplyGenesis(cfg *Config, state core.State) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	g := cfg.Genesis

	roles, err := g.Roles()
	if err != nil {
		return err
	}
	if err := state.SetRoles(&roles); err != nil {
		return err
	}

	points := g.InitialSkillPoints
	if points == 0 {
		points = DefaultInitialSkillPoints
	}
	if err := state.SetInitialSkillPoints(points); err != nil {
		return err
	}

	for addrHex, balance := range g.Alloc {
		acc := &core.Account{
			Address: common.HexToAddress(addrHex),
			Balance: balance,
		}
		if err := state.SetAccount(acc); err != nil {
			return err
		}
	}

	for _, s := range g.Skills {
		def := &core.SkillDefinition{
			Name:          s.Name,
			Description:   s.Description,
			Branch:        s.Branch,
			EncodedCost:   codec.Encode(s.Cost).Data,
			Cost:          s.Cost,
			RequiredLevel: s.RequiredLevel,
			Requires:      s.Requires,
			Creator:       roles.Owner,
		}
		if _, err := state.AppendSkill(def); err != nil {
			return fmt.Errorf("seed skill %q: %w", s.Name, err)
		}
	}
	return nil
}

// CreateGenesisBlock applies the genesis state, commits it and returns the
// signed block #0.
func CreateGenesisBlock(cfg *Config, state core.State, proposer *crypto.PrivateKey) (*core.Block, error) {
	if err := ApplyGenesis(cfg, state); err != nil {
		state.Discard()
		return nil, err
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, proposer.Address(), nil)
	block.Header.Timestamp = 0
	block.Header.StateRoot = stateRoot
	// The genesis tx root commits to the chain ID.
	block.Header.TxRoot = crypto.Hash([]byte(cfg.Genesis.ChainID))
	if err := block.Sign(proposer); err != nil {
		return nil, err
	}
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return strings.EqualFold(h, GenesisHash)
}
