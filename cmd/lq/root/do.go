package root

import (
	"github.com/spf13/cobra"

	"lifequest/internal/engine"
)

// newTransitionCmd builds a command that moves one quest to status.
func newTransitionCmd(use, short, long string, status engine.QuestStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  long,
		Args: func(cmd *cobra.Command, args []string) error {
			return requireArgs(args, "id")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.svc.ResolveQuestID(s.ctx, args[0])
			if err != nil {
				return err
			}
			res, err := s.svc.SetQuestStatus(s.ctx, id, status)
			if err != nil {
				return err
			}
			printTransition(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newDoCmd() *cobra.Command {
	return newTransitionCmd("do", "Complete a quest", "Complete a quest and collect its XP and stat rewards.", engine.StatusCompleted)
}

func newStartCmd() *cobra.Command {
	return newTransitionCmd("start", "Mark a quest in progress", "", engine.StatusInProgress)
}

func newFailCmd() *cobra.Command {
	return newTransitionCmd("fail", "Give up on a quest", "Mark a quest failed. Failing costs nothing; the quest can be restarted later.", engine.StatusFailed)
}
