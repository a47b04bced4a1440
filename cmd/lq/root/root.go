package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lifequest/internal/ui"
)

const Version = "0.2.0"

var (
	configPath string
	userFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "lq",
	Short:         "Lifequest: level up by finishing real-world quests",
	Long:          "Lifequest is a local-first CLI/TUI that turns tasks into quests with XP, levels, attribute stats and daily streaks.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Act as this user (overrides config)")

	rootCmd.AddCommand(
		newAddCmd(),
		newListCmd(),
		newDoCmd(),
		newUndoCmd(),
		newStartCmd(),
		newFailCmd(),
		newTaskCmd(),
		newStatusCmd(),
		newJournalCmd(),
		newDailyCmd(),
		newStreakCmd(),
		newGrantCmd(),
		newStatsCmd(),
		newResetCmd(),
		newBoardCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
