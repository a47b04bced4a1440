package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifequest/internal/ui"
)

func newStreakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Evaluate and show the daily streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.svc.EvaluateStreak(s.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconFire, "Streak"))
			fmt.Fprintln(out, ui.LabelValue("Days", res.StreakCount))
			msg := res.Message
			if s.start.Streak != nil && s.start.Streak.Changed {
				msg = s.start.Streak.Message
			}
			if msg != "" {
				fmt.Fprintln(out, ui.Muted.Render(msg))
			}
			return nil
		},
	}

	return cmd
}
