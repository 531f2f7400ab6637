package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the client configuration",
	Long:  `Commands for showing and editing $HOME/.pmesh/config.yaml.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long:  `Write one key into the config file. Keys: server, api_key, output, history, log_level.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configKeys = []string{"server", "api_key", "output", "history", "log_level"}

func runConfigShow(cmd *cobra.Command, args []string) error {
	resolved := make(map[string]string, len(configKeys))
	for _, key := range configKeys {
		resolved[key] = viper.GetString(key)
	}
	// Never echo credentials in full.
	if resolved["api_key"] != "" {
		resolved["api_key"] = "********"
	}

	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	return encoder.Encode(resolved)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	known := false
	for _, k := range configKeys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown configuration key %q (known: %v)", key, configKeys)
	}

	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		dir := filepath.Join(home, ".pmesh")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	// Preserve keys already in the file.
	current := make(map[string]interface{})
	if data, err := os.ReadFile(path); err == nil {
		yaml.Unmarshal(data, &current)
	}
	current[key] = value

	data, err := yaml.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("✓ %s set in %s\n", key, path)
	return nil
}
