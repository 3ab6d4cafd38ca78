package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/config"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/providers"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the proxy settings and the OpenCode config it maintains.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize the settings file by prompting for the gateway key and address.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after file, .env and environment overrides.`,
	RunE:  runConfigShow,
}

var configSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the OpenCode config with the model catalog",
	Long:  `Reconcile opencode.json with the provider block and migrate deprecated model references.`,
	RunE:  runConfigSync,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the settings and the built-in model catalog.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSyncCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("AICodewith Configuration Setup")
	color.Yellow("Press enter to keep the default shown in brackets.")

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label, def string) string {
		if def != "" {
			fmt.Printf("%s [%s]: ", label, def)
		} else {
			fmt.Printf("%s: ", label)
		}
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
		return def
	}

	cfg := &config.Config{
		Host:     config.DefaultHost,
		Port:     config.DefaultPort,
		APIKey:   prompt("AICodewith API Key", ""),
		Upstream: prompt("Gateway URL", providers.DefaultUpstream),
		ProxyKey: prompt("Proxy Key (optional, for local authentication)", ""),
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.GetPath())
	color.Cyan("You can now start the proxy with: %s start", AppName)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !cfgMgr.Exists() {
		color.Yellow("No settings file found; showing defaults and environment overrides.")
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-18s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-18s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-18s: %s\n", "Upstream", cfg.Upstream)
	fmt.Printf("  %-18s: %s\n", "API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-18s: %s\n", "Proxy Key", maskString(cfg.ProxyKey))
	fmt.Printf("  %-18s: %s\n", "Home", cfg.Home)
	if cfg.XDGConfigHome != "" {
		fmt.Printf("  %-18s: %s\n", "XDG Config Home", cfg.XDGConfigHome)
	}
	fmt.Printf("  %-18s: %v\n", "OMO Sync Disabled", cfg.DisableOmoSync)
	if cfg.OmoSourceURL != "" {
		fmt.Printf("  %-18s: %s\n", "OMO Source", cfg.OmoSourceURL)
	}
	fmt.Printf("  %-18s: %v\n", "Debug", cfg.Debug)
	fmt.Printf("  %-18s: %v\n", "Request Logging", cfg.RequestLogging)
	fmt.Printf("  %-18s: %v\n", "Save Raw Response", cfg.SaveRawResponse)
	fmt.Printf("  %-18s: %s\n", "Config Path", cfgMgr.GetPath())

	endpoints := cfg.Endpoints()
	fmt.Println("\nGateway Endpoints:")
	fmt.Printf("  %-18s: %s\n", "Codex", endpoints.Codex)
	fmt.Printf("  %-18s: %s\n", "Claude", endpoints.Anthropic)
	fmt.Printf("  %-18s: %s\n", "Claude (lite)", endpoints.Lite)
	fmt.Printf("  %-18s: %s\n", "Gemini", endpoints.Gemini)

	return nil
}

func runConfigSync(cmd *cobra.Command, _ []string) error {
	_, rt, err := loadRuntime()
	if err != nil {
		return err
	}

	res, err := rt.Reconciler.Reconcile(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to sync %s: %w", rt.Paths.JSON, err)
	}
	if res.Changed {
		color.Green("Updated OpenCode config: %s", strings.Join(res.Changes, ", "))
	} else {
		color.Green("OpenCode config is up to date")
	}

	if added := rt.Omo.Sync(cmd.Context()); len(added) > 0 {
		color.Green("Added OMO assignments: %s", strings.Join(added, ", "))
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var problems []string
	if err := cfg.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.APIKey == "" {
		problems = append(problems, "api_key is not set")
	}
	for _, p := range models.Default().Validate() {
		problems = append(problems, "catalog: "+p)
	}

	if len(problems) > 0 {
		color.Red("Configuration validation failed:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("configuration validation failed")
	}

	color.Green("Configuration is valid!")
	return nil
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
