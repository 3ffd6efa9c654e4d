package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tolelom/skillbloom/wallet"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new account key",
	Long:  "Generate a secp256k1 key and save it to --key, encrypted with $SKILLBLOOM_PASSWORD.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(globalFlags.KeyPath); err == nil {
			return fmt.Errorf("%s already exists", globalFlags.KeyPath)
		}
		w, err := wallet.Generate()
		if err != nil {
			return err
		}
		if err := wallet.SaveKey(globalFlags.KeyPath, os.Getenv("SKILLBLOOM_PASSWORD"), w.PrivKey()); err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{"address": w.Address().Hex(), "keystore": globalFlags.KeyPath})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the signing account as a player",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := loadSigner()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		points, err := newClient().RegisterPlayer(ctx, w)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"player": w.Address().Hex(), "skill_points": points})
	},
}

var unlockPoints int64

var unlockCmd = &cobra.Command{
	Use:   "unlock <skill-id>",
	Short: "Spend skill points on a skill",
	Long:  "Unlock a skill. The current point balance is read from the ledger unless --points is given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skillID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("skill id: %w", err)
		}
		w, err := loadSigner()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		c := newClient()

		var points uint32
		if unlockPoints >= 0 {
			points = uint32(unlockPoints)
		} else if points, err = c.PlayerSkillPoints(ctx, w.Address()); err != nil {
			return err
		}
		res, err := c.UnlockSkill(ctx, w, skillID, points)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Verifier reputation commands",
}

var reputationUpdateCmd = &cobra.Command{
	Use:   "update <player> <delta>",
	Short: "Add delta to a player's reputation (verifier only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		player, err := addressArg(args[:1])
		if err != nil {
			return err
		}
		delta, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("delta: %w", err)
		}
		w, err := loadSigner()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		rep, err := newClient().UpdateReputation(ctx, w, player, uint32(delta))
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"player": player.Hex(), "reputation": rep})
	},
}

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "Player queries",
}

var playerShowCmd = &cobra.Command{
	Use:   "show [address]",
	Short: "Show a player's record, tournaments and unlock history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := addressArg(args)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		c := newClient()
		p, err := c.PlayerRecord(ctx, addr)
		if err != nil {
			return err
		}
		tournaments, err := c.TournamentsByPlayer(ctx, addr)
		if err != nil {
			return err
		}
		history, err := c.UnlockHistory(ctx, addr)
		if err != nil {
			return err
		}
		acc, err := c.Account(ctx, addr)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"player":      p,
			"balance":     acc.Balance,
			"tournaments": tournaments,
			"unlocks":     history,
		})
	},
}

func init() {
	unlockCmd.Flags().Int64Var(&unlockPoints, "points", -1, "claimed current skill points (default: read from ledger)")
	reputationCmd.AddCommand(reputationUpdateCmd)
	playerCmd.AddCommand(playerShowCmd)
}
