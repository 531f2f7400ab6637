package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Browse the task registry",
	Long:  `Commands for listing tasks, their prompt versions, and stored prompt templates.`,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tasks",
	RunE:  runTasksList,
}

var tasksVersionsCmd = &cobra.Command{
	Use:   "versions <task>",
	Short: "List prompt versions of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksVersions,
}

var tasksPromptCmd = &cobra.Command{
	Use:   "prompt <task> <version>",
	Short: "Show the stored prompt template of a task version",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksPrompt,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksVersionsCmd)
	tasksCmd.AddCommand(tasksPromptCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.gateway.Tasks()
	if err != nil {
		return fmt.Errorf("request failed")
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(list.Tasks) == 0 {
		fmt.Println("No tasks registered")
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Task")
	for _, task := range list.Tasks {
		table.Append(task)
	}
	table.Render()
	fmt.Printf("\nTotal tasks: %d\n", len(list.Tasks))
	return nil
}

func runTasksVersions(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.gateway.Versions(args[0])
	if err != nil {
		return fmt.Errorf("request failed")
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Version")
	for _, version := range list.Versions {
		table.Append(version)
	}
	table.Render()
	return nil
}

func runTasksPrompt(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	detail, err := app.gateway.Prompt(args[0], args[1])
	if err != nil {
		return fmt.Errorf("request failed")
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("Task", args[0])
	table.Append("Version", args[1])
	table.Append("Task Type", detail.TaskType)
	if len(detail.InputVariables) > 0 {
		table.Append("Input Variables", fmt.Sprintf("%v", detail.InputVariables))
	}
	if len(detail.SchemaFields) > 0 {
		table.Append("Schema Fields", fmt.Sprintf("%v", detail.SchemaFields))
	}
	if len(detail.Constraints) > 0 {
		constraints, _ := json.Marshal(detail.Constraints)
		table.Append("Constraints", string(constraints))
	}
	table.Render()

	fmt.Printf("\nTemplate:\n%s\n", detail.Template)
	return nil
}
