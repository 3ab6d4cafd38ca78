package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/opencode"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/process"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show proxy status",
	Long:  `Display the current status of the local gateway proxy and the files it manages.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) {
	procMgr := process.NewManager(baseDir)
	cfg := cfgMgr.Get()

	running := procMgr.IsRunning()

	color.Blue("Status for %s:", AppName)
	fmt.Printf("  %-15s: %v\n", "Running", running)
	if running {
		fmt.Printf("  %-15s: %d\n", "PID", procMgr.ReadPID())
	}

	fmt.Printf("  %-15s: http://%s\n", "Endpoint", cfg.Addr())
	fmt.Printf("  %-15s: %s\n", "Upstream", cfg.Upstream)
	fmt.Printf("  %-15s: %s\n", "API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-15s: %s\n", "Proxy Key", maskString(cfg.ProxyKey))

	paths := opencode.ResolvePaths(cfg.Home, cfg.XDGConfigHome)
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())
	fmt.Printf("  %-15s: %s\n", "OpenCode", paths.JSON)
	fmt.Printf("  %-15s: %s\n", "OMO", paths.Omo)
	fmt.Printf("  %-15s: v%s\n", "Version", Version)
}
