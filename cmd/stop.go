package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/process"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the local gateway proxy",
	Long:  `Stop the running gateway proxy started with 'aicodewith start'.`,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, _ []string) error {
	color.Yellow("Stopping %s...", AppName)

	procMgr := process.NewManager(baseDir)

	if !procMgr.IsRunning() {
		color.Yellow("Service is not running")
		return nil
	}

	if err := procMgr.Stop(); err != nil {
		return err
	}

	color.Green("Service stopped successfully")
	return nil
}
