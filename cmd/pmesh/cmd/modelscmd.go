package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long:  `Retrieve the model catalog from the server, split into all models and the fast tier.`,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	catalog, err := app.gateway.Models()
	if err != nil {
		return fmt.Errorf("request failed")
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(catalog, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fast := make(map[string]bool, len(catalog.Fast))
	for _, model := range catalog.Fast {
		fast[model] = true
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Model", "Tier")
	for _, model := range catalog.All {
		tier := "standard"
		if fast[model] {
			tier = "fast"
		}
		table.Append(model, tier)
	}
	table.Render()
	fmt.Printf("\nTotal models: %d\n", len(catalog.All))
	return nil
}
