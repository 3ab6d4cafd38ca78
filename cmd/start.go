package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/plugin"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/process"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/server"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/update"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the local gateway proxy",
	Long:  `Sync the OpenCode config and serve the gateway proxy in the foreground.`,
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolP("background", "b", false, "start the proxy as a background process")
	startCmd.Flags().Bool("no-sync", false, "skip OpenCode and OMO config sync")
}

func runStart(cmd *cobra.Command, _ []string) error {
	procMgr := process.NewManager(baseDir)

	if background, _ := cmd.Flags().GetBool("background"); background {
		args := []string{"start"}
		if noSync, _ := cmd.Flags().GetBool("no-sync"); noSync {
			args = append(args, "--no-sync")
		}
		started, err := procMgr.StartBackground(args...)
		if err != nil {
			return err
		}
		if !started {
			color.Yellow("Service is already running (PID %d)", procMgr.ReadPID())
			return nil
		}
		color.Green("Service started in background (PID %d)", procMgr.ReadPID())
		return nil
	}

	cfg, rt, err := loadRuntime()
	if err != nil {
		return err
	}
	warnMissingKey(cfg)

	if procMgr.IsRunning() {
		color.Yellow("Service is already running (PID %d)", procMgr.ReadPID())
		return nil
	}

	if noSync, _ := cmd.Flags().GetBool("no-sync"); !noSync {
		checker := update.NewChecker(Version, update.NotifierFunc(func(current, latest string) {
			color.Cyan("%s %s is available (running %s)", update.PackageName, latest, current)
		}), logger)
		hooks := plugin.New(rt, checker, logger)
		hooks.Init(cmd.Context())
		hooks.Event(cmd.Context(), update.Event{Type: update.EventSessionCreated})
	}

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("Starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"upstream", cfg.Upstream,
	)

	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv := server.New(cfgMgr, rt, logger)
	return srv.Start()
}
