package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	status, err := app.gateway.Health()
	if err != nil {
		return fmt.Errorf("server unreachable")
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("✓ Server is %s", status.Status)
	if status.Timestamp != "" {
		fmt.Printf(" (%s)", status.Timestamp)
	}
	fmt.Println()
	return nil
}
