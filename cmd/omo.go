package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var omoCmd = &cobra.Command{
	Use:   "omo",
	Short: "Manage oh-my-opencode model assignments",
}

var omoSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add missing agent and category assignments",
	Long:  `Fill in agent and category model assignments that oh-my-opencode.json does not define yet. Existing entries are never changed.`,
	RunE:  runOmoSync,
}

func init() {
	omoCmd.AddCommand(omoSyncCmd)
}

func runOmoSync(cmd *cobra.Command, _ []string) error {
	cfg, rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if cfg.DisableOmoSync {
		color.Yellow("OMO sync is disabled")
		return nil
	}

	added := rt.Omo.Sync(cmd.Context())
	if len(added) == 0 {
		color.Green("%s is up to date", rt.Paths.Omo)
		return nil
	}
	color.Green("Added to %s: %s", rt.Paths.Omo, strings.Join(added, ", "))
	return nil
}
