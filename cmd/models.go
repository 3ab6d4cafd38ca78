package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog",
	Long:  `Show the models the provider exposes and the config blocks derived from them.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog models",
	RunE:  runModelsList,
}

var modelsProviderCmd = &cobra.Command{
	Use:   "provider-config",
	Short: "Print the provider block written to opencode.json",
	RunE:  runModelsProvider,
}

var modelsOmoCmd = &cobra.Command{
	Use:   "omo-config",
	Short: "Print the default oh-my-opencode assignments",
	RunE:  runModelsOmo,
}

var modelsMigrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "List deprecated model ids and their replacements",
	Run:   runModelsMigrations,
}

func init() {
	modelsListCmd.Flags().BoolP("all", "a", false, "include deprecated models")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsProviderCmd)
	modelsCmd.AddCommand(modelsOmoCmd)
	modelsCmd.AddCommand(modelsMigrationsCmd)
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	registry := models.Default()
	list := registry.Active()
	if all, _ := cmd.Flags().GetBool("all"); all {
		list = registry.All()
	}

	color.Blue("%s models:", models.ProviderName)
	fmt.Printf("  %-36s %-8s %-10s %9s %8s  %s\n", "ID", "FAMILY", "REASONING", "CONTEXT", "OUTPUT", "NAME")
	for _, m := range list {
		line := fmt.Sprintf("  %-36s %-8s %-10s %9d %8d  %s", m.ID, m.Family, m.Reasoning, m.Limit.Context, m.Limit.Output, m.DisplayName)
		if m.Deprecated {
			color.New(color.FgHiBlack).Printf("%s (-> %s)\n", line, m.ReplacedBy)
			continue
		}
		fmt.Println(line)
	}
	return nil
}

func runModelsProvider(cmd *cobra.Command, _ []string) error {
	_, rt, err := loadRuntime()
	if err != nil {
		return err
	}
	return printJSON(rt.Reconciler.Standard().JSON())
}

func runModelsOmo(cmd *cobra.Command, _ []string) error {
	data, err := json.Marshal(models.Default().OmoConfig())
	if err != nil {
		return err
	}
	return printJSON(data)
}

func runModelsMigrations(cmd *cobra.Command, _ []string) {
	migrations := models.Default().Migrations()
	from := make([]string, 0, len(migrations))
	for id := range migrations {
		from = append(from, id)
	}
	sort.Strings(from)

	color.Blue("Model migrations:")
	for _, id := range from {
		fmt.Printf("  %-48s -> %s\n", id, migrations[id])
	}
}

func printJSON(data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(os.Stdout)
	return err
}
