package root

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lifequest/internal/engine"
	"lifequest/internal/ui"
)

const dateLayout = "2006-01-02"

// parseDay reads a YYYY-MM-DD date in local time. endOfDay moves it to the
// last second of that day.
func parseDay(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", engine.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func newAddCmd() *cobra.Command {
	var (
		questType   string
		xp          int
		stats       string
		repeat      string
		tasks       []string
		description string
		deadline    string
		until       string
		noPenalty   bool
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a quest",
		Long: `Add a quest to the log.

Types: daily, side (default), dungeon, boss. Dungeons and boss fights carry a
task checklist (--task, repeatable). Daily quests repeat every day and cost XP
when missed unless --no-penalty is set.`,
		Example: `  lq add "Morning run" -t daily -x 20 --stats endurance=1
  lq add "Ship v2" -t dungeon -x 150 --task design --task build --task release`,
		Args: func(cmd *cobra.Command, args []string) error {
			return requireArgs(args, "title")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			def := engine.QuestDefinition{
				Title:       args[0],
				Description: description,
				XPReward:    xp,
				Tasks:       tasks,
				NoPenalty:   noPenalty,
			}
			var err error
			if def.Type, err = engine.ParseQuestType(questType); err != nil {
				return err
			}
			if strings.TrimSpace(repeat) != "" {
				if def.Repeat, err = engine.ParseRepeat(repeat); err != nil {
					return err
				}
			}
			if def.StatRewards, err = engine.ParseStatDelta(stats); err != nil {
				return err
			}
			if def.Deadline, err = parseDay(deadline, true); err != nil {
				return err
			}
			if def.EndDate, err = parseDay(until, true); err != nil {
				return err
			}

			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			q, err := s.svc.CreateQuest(s.ctx, def)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", ui.Good.Render(ui.IconPlus+" Added"), questLine(*q))
			if len(q.StatRewards) > 0 {
				fmt.Fprintln(out, ui.Muted.Render("rewards: "+stats))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&questType, "type", "t", "side", "Quest type (daily|side|dungeon|boss)")
	cmd.Flags().IntVarP(&xp, "xp", "x", 10, "XP reward")
	cmd.Flags().StringVarP(&stats, "stats", "s", "", "Stat rewards, e.g. focus=1,str=2")
	cmd.Flags().StringVarP(&repeat, "repeat", "r", "", "Repeat (none|daily|weekly|monthly); dailies default to daily")
	cmd.Flags().StringArrayVar(&tasks, "task", nil, "Checklist item (repeatable)")
	cmd.Flags().StringVarP(&description, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Last active day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noPenalty, "no-penalty", false, "Do not charge XP when a daily is missed")

	return cmd
}
