package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	tournamentName    string
	tournamentFee     uint32
	tournamentPool    uint32
	tournamentPayment uint64
)

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Tournament commands",
}

var tournamentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a tournament (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := loadSigner()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		id, err := newClient().CreateTournament(ctx, w, tournamentName, tournamentFee, tournamentPool)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]uint64{"tournament_id": id})
	},
}

var tournamentJoinCmd = &cobra.Command{
	Use:   "join <tournament-id>",
	Short: "Join a tournament, paying into its escrow",
	Long:  "Join a tournament. --payment defaults to the tournament's entry fee.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("tournament id: %w", err)
		}
		w, err := loadSigner()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		c := newClient()

		t, err := c.Tournament(ctx, id)
		if err != nil {
			return err
		}
		payment := tournamentPayment
		if !cmd.Flags().Changed("payment") {
			payment = uint64(t.EntryFee)
		}
		res, err := c.JoinTournament(ctx, w, id, t.EntryFee, payment)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var tournamentInfoCmd = &cobra.Command{
	Use:   "info <tournament-id>",
	Short: "Show a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("tournament id: %w", err)
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		t, err := newClient().Tournament(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, t)
	},
}

func init() {
	f := tournamentCreateCmd.Flags()
	f.StringVar(&tournamentName, "name", "", "tournament name")
	f.Uint32Var(&tournamentFee, "fee", 0, "entry fee")
	f.Uint32Var(&tournamentPool, "pool", 0, "prize pool")
	_ = tournamentCreateCmd.MarkFlagRequired("name")

	tournamentJoinCmd.Flags().Uint64Var(&tournamentPayment, "payment", 0, "tokens paid into escrow")

	tournamentCmd.AddCommand(tournamentCreateCmd, tournamentJoinCmd, tournamentInfoCmd)
}
