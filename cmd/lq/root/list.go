package root

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/storage"
	"lifequest/internal/ui"
)

var listOrder = []engine.QuestStatus{
	engine.StatusInProgress,
	engine.StatusAvailable,
	engine.StatusCompleted,
	engine.StatusFailed,
}

func newListCmd() *cobra.Command {
	var all bool
	var status string
	var questType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quests grouped by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var only engine.QuestStatus
			if status != "" {
				st, err := engine.ParseQuestStatus(status)
				if err != nil {
					return err
				}
				only = st
			}
			var kind engine.QuestType
			if questType != "" {
				t, err := engine.ParseQuestType(questType)
				if err != nil {
					return err
				}
				kind = t
			}

			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			quests, err := s.svc.ListQuests(s.ctx, engine.ReadOptions{})
			if err != nil {
				return err
			}

			groups := map[string][]storage.Quest{}
			for _, q := range quests {
				if kind != "" && q.Type != string(kind) {
					continue
				}
				groups[q.Status] = append(groups[q.Status], q)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconScroll, "Quest Log"))
			shown := 0
			for _, st := range listOrder {
				if only != "" && st != only {
					continue
				}
				if only == "" && !all && (st == engine.StatusCompleted || st == engine.StatusFailed) {
					continue
				}
				qs := groups[string(st)]
				if len(qs) == 0 {
					continue
				}
				sort.SliceStable(qs, func(i, j int) bool { return qs[i].CreatedAt.Before(qs[j].CreatedAt) })
				fmt.Fprintln(out, ui.H2.Render(fmt.Sprintf("%s (%d)", ui.StatusText(string(st)), len(qs))))
				for _, q := range qs {
					fmt.Fprintln(out, "  "+questLine(q))
					for i, t := range q.Tasks {
						mark := "[ ]"
						if t.Completed {
							mark = "[x]"
						}
						fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("      %d. %s %s", i+1, mark, t.Title)))
					}
					shown++
				}
			}
			if shown == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(no quests)"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed and failed quests")
	cmd.Flags().StringVar(&status, "status", "", "Only this status (available|in_progress|completed|failed)")
	cmd.Flags().StringVarP(&questType, "type", "t", "", "Only this quest type")

	return cmd
}
