package root

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lifequest/internal/ui"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task <id> <n>",
		Short: "Toggle checklist item n (1-based) of a quest",
		Long:  "Check or uncheck a checklist item. Checking the last open item completes the quest; unchecking one reopens it.",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := requireArgs(args, "id", "item number"); err != nil {
				return err
			}
			if n, err := strconv.Atoi(args[1]); err != nil || n < 1 {
				return fmt.Errorf("item number must be a positive integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := strconv.Atoi(args[1])

			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.svc.ResolveQuestID(s.ctx, args[0])
			if err != nil {
				return err
			}
			res, err := s.svc.ToggleSubtask(s.ctx, id, n-1)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			q := res.Quest
			if n-1 < len(q.Tasks) {
				t := q.Tasks[n-1]
				mark := "[ ]"
				if t.Completed {
					mark = ui.Good.Render("[x]")
				}
				fmt.Fprintf(out, "%s %s %s\n", mark, t.Title, ui.ProgressBar(q.Progress, 100, 10))
			}
			if res.Changed() {
				printTransition(out, res)
			}
			return nil
		},
	}

	return cmd
}
