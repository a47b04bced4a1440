package root

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grant <xp>",
		Short:   "Add or remove XP directly",
		Example: "  lq grant 50\n  lq grant -- -20",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := requireArgs(args, "xp"); err != nil {
				return err
			}
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("xp must be an integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, _ := strconv.Atoi(args[0])

			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			before, err := s.svc.GetCharacter(s.ctx, engine.ReadOptions{})
			if err != nil {
				return err
			}
			levelBefore := before.Level
			c, err := s.svc.GrantXP(s.ctx, delta)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.LabelValue(ui.IconBolt+" XP", ui.Signed(delta)))
			if c.Level > levelBefore {
				fmt.Fprintf(out, "%s %s\n", ui.BadgeLevelUp, ui.Gold.Render(fmt.Sprintf("%d → %d", levelBefore, c.Level)))
			}
			printCharacter(out, c)
			return nil
		},
	}

	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats <delta>",
		Short:   "Adjust attributes, e.g. focus=1,str=-2",
		Example: "  lq stats wisdom=2\n  lq stats str=1,end=1",
		Args: func(cmd *cobra.Command, args []string) error {
			return requireArgs(args, "delta")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := engine.ParseStatDelta(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			before, err := s.svc.GetCharacter(s.ctx, engine.ReadOptions{Force: true})
			if err != nil {
				return err
			}
			c, err := s.svc.MergeCharacterStats(s.ctx, delta)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), c.Stats, engine.StatDiff(before.Stats, c.Stats))
			return nil
		},
	}

	return cmd
}

// printStats lists every attribute with the change that was actually applied,
// which can be smaller than requested when the floor clamps it.
func printStats(w io.Writer, stats map[string]int, applied engine.StatDelta) {
	fmt.Fprintln(w, ui.H2.Render("📊 Attributes"))
	for _, a := range engine.Attributes {
		line := fmt.Sprintf("- %-12s %d", engine.AttributeLabel(a), stats[string(a)])
		if d, ok := applied[a]; ok {
			line += " " + ui.Signed(d)
		}
		fmt.Fprintln(w, line)
	}
}
