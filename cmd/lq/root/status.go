package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var showLocked bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show character progress, attributes and milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := s.svc.GetCharacter(s.ctx, engine.ReadOptions{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Character"))
			printCharacter(out, c)
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render("📊 Attributes"))
			for _, a := range engine.Attributes {
				fmt.Fprintf(out, "- %-12s %d\n", engine.AttributeLabel(a), c.Stats[string(a)])
			}
			fmt.Fprintln(out, "")

			ms, err := s.svc.Milestones(s.ctx)
			if err != nil {
				return err
			}
			earned := 0
			for _, m := range ms {
				if m.Earned {
					earned++
				}
			}
			fmt.Fprintln(out, ui.H2.Render(fmt.Sprintf("%s Milestones (%d/%d)", ui.IconTrophy, earned, len(ms))))
			for _, m := range ms {
				switch {
				case m.Earned:
					fmt.Fprintf(out, "- %s %s %s\n", m.Icon, ui.Good.Render(m.Name), ui.Muted.Render(m.Description))
				case showLocked:
					fmt.Fprintf(out, "- %s %s\n", ui.Muted.Render("🔒 "+m.Name), ui.Muted.Render(m.Description))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showLocked, "all", false, "Also list milestones not yet earned")

	return cmd
}
