package root

import (
	"github.com/spf13/cobra"

	"lifequest/internal/engine"
)

func newUndoCmd() *cobra.Command {
	return newTransitionCmd("undo", "Reopen a completed quest (undo completion)", `Reopen a completed quest and take back what it awarded.

This will:
- Deduct the XP the completion granted (levels may drop)
- Take back its stat rewards
- Log a reopen entry in the journal
- Move the quest back to in progress

Use this to fix accidental completions.`, engine.StatusInProgress)
}
