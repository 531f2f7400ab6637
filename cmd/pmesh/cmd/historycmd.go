package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past submissions",
	Long:  `Commands for listing and inspecting the local submission history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past submissions, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <entry-id>",
	Short: "Show one history entry in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	entries := app.history.Entries()

	if IsJSONOutput() {
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No submissions recorded")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Kind", "Task", "Models", "Submitted")
	for _, entry := range entries {
		task := entry.Details.Task
		if task == "" {
			task = "-"
		}
		modelsCol := "-"
		if len(entry.Details.Models) > 0 {
			modelsCol = fmt.Sprintf("%v", entry.Details.Models)
		} else if entry.Details.Model != "" {
			modelsCol = entry.Details.Model
		}
		table.Append(
			strconv.FormatInt(entry.ID, 10),
			string(entry.Kind),
			task,
			modelsCol,
			entry.Timestamp.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
	fmt.Printf("\nTotal submissions: %d\n", len(entries))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", args[0])
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	entry, ok := app.history.Get(id)
	if !ok {
		return fmt.Errorf("no history entry with id %d", id)
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("ID", strconv.FormatInt(entry.ID, 10))
	table.Append("Kind", string(entry.Kind))
	if entry.JobID != "" {
		table.Append("Job ID", entry.JobID)
	}
	if entry.Details.Task != "" {
		table.Append("Task", entry.Details.Task)
	}
	if entry.Details.Version != "" {
		table.Append("Version", entry.Details.Version)
	}
	if len(entry.Details.Versions) > 0 {
		table.Append("Versions", fmt.Sprintf("%v", entry.Details.Versions))
	}
	if len(entry.Details.Models) > 0 {
		table.Append("Models", fmt.Sprintf("%v", entry.Details.Models))
	}
	if entry.Details.Model != "" {
		table.Append("Model", entry.Details.Model)
	}
	if entry.Details.OptimizerModel != "" {
		table.Append("Optimizer", entry.Details.OptimizerModel)
	}
	if entry.Details.Mode != "" {
		table.Append("Mode", string(entry.Details.Mode))
	}
	table.Append("Inputs", strconv.Itoa(entry.Details.InputCount))
	table.Append("Submitted", entry.Timestamp.Format("2006-01-02 15:04:05"))
	table.Render()
	return nil
}
