package cmd

import (
	"github.com/spf13/cobra"

	"github.com/psantana5/promptmesh/pkg/builder"
)

var (
	compareFile     string
	compareTask     string
	compareVersions []string
	compareModels   []string
	compareInput    string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare prompt versions side by side",
	Long: `Submit a comparison job: run several stored prompt versions against
several models over one test input, then follow the job until the
version-by-model matrix comes back.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareFile, "file", "", "YAML job file (flags override file values)")
	compareCmd.Flags().StringVar(&compareTask, "task", "", "task name")
	compareCmd.Flags().StringSliceVar(&compareVersions, "version", nil, "prompt version to compare (repeatable)")
	compareCmd.Flags().StringSliceVar(&compareModels, "model", nil, "model to run (repeatable)")
	compareCmd.Flags().StringVar(&compareInput, "input", "", "the single test input")
}

func runCompare(cmd *cobra.Command, args []string) error {
	form := builder.CompareForm{
		Task:      compareTask,
		Versions:  compareVersions,
		Models:    compareModels,
		TestInput: compareInput,
	}

	if compareFile != "" {
		jf, err := loadJobFile(compareFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("task") && jf.Task != "" {
			form.Task = jf.Task
		}
		if !flags.Changed("version") && len(jf.Versions) > 0 {
			form.Versions = jf.Versions
		}
		if !flags.Changed("model") && len(jf.Models) > 0 {
			form.Models = jf.Models
		}
		if !flags.Changed("input") && jf.Input != "" {
			form.TestInput = jf.Input
		}
	}

	sub, err := builder.BuildCompare(form)
	if err != nil {
		return err
	}
	return submitAndWait(sub)
}
