package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tolelom/skillbloom/skilltree"
)

var (
	treeThreshold uint32
	treeJSON      bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Skill tree view",
}

var treeShowCmd = &cobra.Command{
	Use:   "show [address]",
	Short: "Show the skill tree with per-node status for a player",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := addressArg(args)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		p, err := newClient().PlayerRecord(ctx, addr)
		if err != nil {
			return err
		}

		g := skilltree.DefaultGraph()
		cfg := skilltree.Config{EncryptedThreshold: treeThreshold}
		view := g.Snapshot(cfg, g.UnlockedKeys(p.UnlockedSkills), p.SkillPoints)
		if treeJSON {
			return printJSON(cmd, view)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "points: %d\n\n", view.Points)
		fmt.Fprintln(tw, "ID\tKEY\tBRANCH\tCOST\tSTATUS")
		for _, n := range view.Nodes {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", n.ID, n.Key, n.Branch, n.Cost, n.Status)
		}
		return tw.Flush()
	},
}

func init() {
	treeShowCmd.Flags().Uint32Var(&treeThreshold, "threshold", skilltree.DefaultEncryptedThreshold, "cost from which skills are shown as encrypted builds")
	treeShowCmd.Flags().BoolVar(&treeJSON, "json", false, "print the full view as JSON")
	treeCmd.AddCommand(treeShowCmd)
}
