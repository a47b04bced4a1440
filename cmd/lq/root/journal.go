package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newJournalCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.svc.ListJournal(s.ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconScroll, "Journal"))
			if len(entries) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(empty)"))
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s %s %s", ui.Muted.Render(e.Timestamp.Local().Format("2006-01-02 15:04")), e.Title, ui.Signed(e.XPGained))
				var stats []string
				for _, a := range engine.Attributes {
					if v := e.StatsGained[string(a)]; v != 0 {
						stats = append(stats, fmt.Sprintf("%s %+d", engine.AttributeLabel(a), v))
					}
				}
				if len(stats) > 0 {
					line += " " + ui.Muted.Render(strings.Join(stats, ", "))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries (0 for all)")

	return cmd
}
