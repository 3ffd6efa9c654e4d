package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tolelom/skillbloom/client"
	"github.com/tolelom/skillbloom/core"
)

var (
	skillName     string
	skillDesc     string
	skillBranch   string
	skillCost     uint32
	skillLevel    uint32
	skillRequires []string
	skillListOf   string
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Skill catalog commands",
}

var skillCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a skill definition (owner only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		requires, err := parseIDs(skillRequires)
		if err != nil {
			return err
		}
		w, err := loadSigner()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		id, err := newClient().CreateSkill(ctx, w, client.SkillSpec{
			Name:          skillName,
			Description:   skillDesc,
			Branch:        core.Branch(skillBranch),
			Cost:          skillCost,
			RequiredLevel: skillLevel,
			Requires:      requires,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]uint64{"skill_id": id})
	},
}

var skillInfoCmd = &cobra.Command{
	Use:   "info <skill-id>",
	Short: "Show a skill definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("skill id: %w", err)
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		s, err := newClient().Skill(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills, optionally of one branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		c := newClient()

		var ids []uint64
		if skillListOf != "" {
			var err error
			if ids, err = c.SkillsByBranch(ctx, core.Branch(skillListOf)); err != nil {
				return err
			}
		} else {
			n, err := c.SkillsLength(ctx)
			if err != nil {
				return err
			}
			for i := uint64(0); i < n; i++ {
				ids = append(ids, i)
			}
		}

		skills := make([]*core.SkillDefinition, 0, len(ids))
		for _, id := range ids {
			s, err := c.Skill(ctx, id)
			if err != nil {
				return err
			}
			skills = append(skills, s)
		}
		return printJSON(cmd, skills)
	},
}

func parseIDs(raw []string) ([]uint64, error) {
	out := make([]uint64, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := strconv.ParseUint(r, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("skill id %q: %w", r, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func init() {
	f := skillCreateCmd.Flags()
	f.StringVar(&skillName, "name", "", "skill name")
	f.StringVar(&skillDesc, "desc", "", "skill description")
	f.StringVar(&skillBranch, "branch", string(core.BranchCombat), "branch: combat|magic|support|hybrid")
	f.Uint32Var(&skillCost, "cost", 1, "skill point cost")
	f.Uint32Var(&skillLevel, "level", 0, "required player level")
	f.StringSliceVar(&skillRequires, "requires", nil, "prerequisite skill ids")
	_ = skillCreateCmd.MarkFlagRequired("name")

	skillListCmd.Flags().StringVar(&skillListOf, "branch", "", "only list skills of this branch")

	skillCmd.AddCommand(skillCreateCmd, skillInfoCmd, skillListCmd)
}
