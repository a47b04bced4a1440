package root

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

func newDailyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Run (or report) today's daily cycle",
		Long: `Fail daily quests left open on an earlier day, charge the missed-day
penalty and reopen repeating quests. The cycle runs at most once per day and
every command triggers it; this command shows what today's run did.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			printDailyCycle(cmd.OutOrStdout(), s.start.Daily)
			if st := s.start.Streak; st != nil && st.Changed {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconFire+" "+st.Message))
			}
			return nil
		},
	}

	return cmd
}

func printDailyCycle(w io.Writer, d *engine.DailyCycleResult) {
	fmt.Fprintln(w, ui.Heading(ui.IconSun, "Daily cycle "+d.Day))
	if !d.Ran {
		fmt.Fprintln(w, ui.Muted.Render("Already ran today."))
		return
	}
	if len(d.Failed) == 0 {
		fmt.Fprintln(w, ui.Good.Render(ui.IconDone+" No dailies missed"))
	} else {
		fmt.Fprintln(w, ui.Bad.Render(fmt.Sprintf("%s Missed %d daily quest(s)", ui.IconSkull, len(d.Failed))))
		for _, q := range d.Failed {
			fmt.Fprintln(w, "  - "+q.Title)
		}
		fmt.Fprintln(w, ui.LabelValue("Penalty", ui.Signed(-d.Penalty)))
	}
	if n := len(d.Reset); n > 0 {
		fmt.Fprintln(w, ui.LabelValue(ui.IconLoop+" Dailies reset", n))
	}
	if n := len(d.Recurring); n > 0 {
		fmt.Fprintln(w, ui.LabelValue(ui.IconLoop+" Recurring quests due", n))
		for _, q := range d.Recurring {
			fmt.Fprintln(w, "  - "+q.Title)
		}
	}
	if d.Character != nil {
		fmt.Fprintln(w, ui.LabelValue("Level", fmt.Sprintf("%d (%d/%d XP)", d.Character.Level, d.Character.XP, d.Character.XPToNextLevel)))
	}
}
