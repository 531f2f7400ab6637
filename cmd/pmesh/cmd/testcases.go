package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/promptmesh/pkg/builder"
)

var (
	genFile     string
	genTaskType string
	genInputs   []string
	genCount    int
)

var testcasesCmd = &cobra.Command{
	Use:   "testcases",
	Short: "Test-case utilities",
	Long:  `Commands for generating test cases from the server's generator.`,
}

var testcasesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate test cases for a task type",
	Long: `Generate test cases synchronously. Base inputs seed the generator;
without them the server falls back to per-task-type defaults.`,
	RunE: runTestcasesGenerate,
}

func init() {
	rootCmd.AddCommand(testcasesCmd)
	testcasesCmd.AddCommand(testcasesGenerateCmd)

	testcasesGenerateCmd.Flags().StringVar(&genFile, "file", "", "YAML job file (flags override file values)")
	testcasesGenerateCmd.Flags().StringVar(&genTaskType, "task-type", "", "task type tag (e.g. summarization)")
	testcasesGenerateCmd.Flags().StringArrayVar(&genInputs, "base-input", nil, "base input to vary (repeatable)")
	testcasesGenerateCmd.Flags().IntVar(&genCount, "count", 5, "number of cases to generate")
}

func runTestcasesGenerate(cmd *cobra.Command, args []string) error {
	form := builder.GenerateForm{
		TaskType:   genTaskType,
		BaseInputs: genInputs,
		Count:      genCount,
	}

	if genFile != "" {
		jf, err := loadJobFile(genFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("task-type") && jf.TaskType != "" {
			form.TaskType = jf.TaskType
		}
		if !flags.Changed("base-input") && len(jf.Inputs) > 0 {
			form.BaseInputs = jf.Inputs
		}
		if !flags.Changed("count") && jf.Count > 0 {
			form.Count = jf.Count
		}
	}

	sub, err := builder.BuildGenerate(form)
	if err != nil {
		return err
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.submitter.Generate(sub)
	if err != nil {
		// Gateway already notified.
		return fmt.Errorf("generation failed")
	}
	return renderTestCases(result)
}
