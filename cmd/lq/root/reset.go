package root

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lifequest/internal/ui"
)

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all quests and journal entries and start a new character",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes everything; pass --yes to confirm")
			}
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			c, err := s.svc.ResetCharacter(s.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Warn.Render(ui.IconWarn+" Character reset"))
			printCharacter(out, c)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	return cmd
}
