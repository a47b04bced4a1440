package root

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"lifequest/internal/engine"
	"lifequest/internal/storage"
	"lifequest/internal/ui"
)

func requireArgs(args []string, names ...string) error {
	if len(args) != len(names) {
		return errors.New(strings.Join(names, " and ") + " required")
	}
	return nil
}

func questLine(q storage.Quest) string {
	line := fmt.Sprintf("%s %s %s %s", ui.TypeIcon(q.Type), ui.Muted.Render(ui.ShortID(q.ID)), q.Title, ui.StatusText(q.Status))
	if q.XPReward > 0 {
		line += " " + ui.Muted.Render(fmt.Sprintf("(%d XP)", q.XPReward))
	}
	if len(q.Tasks) > 0 {
		line += " " + ui.ProgressBar(q.Progress, 100, 10)
	}
	return line
}

func printTransition(w io.Writer, res *engine.TransitionResult) {
	q := res.Quest
	if !res.Changed() {
		fmt.Fprintf(w, "%s %s %s\n", ui.Muted.Render(ui.IconInfo), q.Title, ui.Muted.Render("(already "+string(res.To)+")"))
		return
	}
	fmt.Fprintf(w, "%s %s: %s → %s\n", ui.TypeIcon(q.Type), q.Title, ui.StatusText(string(res.From)), ui.StatusText(string(res.To)))
	if res.XPDelta != 0 {
		fmt.Fprintln(w, ui.LabelValue("XP", ui.Signed(res.XPDelta)))
	}
	if len(res.Stats) > 0 {
		var parts []string
		for _, k := range res.Stats.Keys() {
			parts = append(parts, fmt.Sprintf("%s %s", engine.AttributeLabel(k), ui.Signed(res.Stats[k])))
		}
		fmt.Fprintln(w, ui.LabelValue("Stats", strings.Join(parts, ", ")))
	}
	switch {
	case res.LevelUp():
		fmt.Fprintf(w, "%s %s\n", ui.BadgeLevelUp, ui.Gold.Render(fmt.Sprintf("%d → %d", res.LevelBefore, res.LevelAfter)))
	case res.LevelAfter < res.LevelBefore:
		fmt.Fprintln(w, ui.Warn.Render(fmt.Sprintf("%s Level decreased %d → %d", ui.IconWarn, res.LevelBefore, res.LevelAfter)))
	}
	if res.Streak != nil && res.Streak.Changed {
		fmt.Fprintln(w, ui.Warn.Render(ui.IconFire+" "+res.Streak.Message))
	}
}

func printCharacter(w io.Writer, c *storage.Character) {
	fmt.Fprintln(w, ui.LabelValue("Level", c.Level))
	fmt.Fprintln(w, ui.LabelValue("XP", fmt.Sprintf("%d/%d %s", c.XP, c.XPToNextLevel, ui.ProgressBar(c.XP, c.XPToNextLevel, 20))))
	fmt.Fprintln(w, ui.LabelValue("Total XP", c.TotalXPEarned))
	fmt.Fprintln(w, ui.LabelValue("Streak", c.StreakCount))
}
