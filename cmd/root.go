package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/plugin"
)

const (
	AppName = "aicodewith"
	Version = "0.1.0"
)

var (
	logger  *slog.Logger
	homeDir string
	baseDir string
	cfgMgr  *config.Manager
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)

	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		logger.Error("Failed to get home directory", "error", err)
		os.Exit(1)
	}

	baseDir = filepath.Join(homeDir, "."+AppName)
	cfgMgr = config.NewManager(baseDir)
}

var rootCmd = &cobra.Command{
	Use:     AppName,
	Short:   "AICodewith gateway adapter for OpenCode",
	Long:    `Routes Claude, Codex and Gemini traffic from OpenCode through the AICodewith gateway and keeps the OpenCode config in sync with the model catalog.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(verbose)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(omoCmd)
	rootCmd.AddCommand(askCmd)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
}

// loadRuntime reads the config and builds the dispatcher and sync
// components from it.
func loadRuntime() (*config.Config, *plugin.Runtime, error) {
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, plugin.NewRuntime(cfg, plugin.RuntimeOptions{}, logger), nil
}

func warnMissingKey(cfg *config.Config) {
	if cfg.APIKey == "" {
		color.Yellow("No gateway API key configured; requests must carry their own key")
	}
}
