package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ai-cherry/payready-ai/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage PayReady AI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show merged configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file paths",
	Run:   runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().Bool("project", false, "Write the project config instead of the global one")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("# Merged configuration (global + project + env)")
	fmt.Println(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	project, _ := cmd.Flags().GetBool("project")

	var path string
	var err error
	if project {
		path = config.ProjectConfigPath()
		err = config.WriteProjectDefault(path)
	} else {
		path = config.GlobalConfigPath()
		err = config.WriteDefault(path)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	global := config.GlobalConfigPath()
	project := config.ProjectConfigPath()

	fmt.Printf("global:  %s", global)
	if _, err := os.Stat(global); err != nil {
		fmt.Print(" (missing)")
	}
	fmt.Println()
	fmt.Printf("project: %s", project)
	if _, err := os.Stat(project); err != nil {
		fmt.Print(" (missing)")
	}
	fmt.Println()
}
