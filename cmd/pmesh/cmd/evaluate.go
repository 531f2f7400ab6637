package cmd

import (
	"github.com/spf13/cobra"

	"github.com/psantana5/promptmesh/pkg/builder"
	"github.com/psantana5/promptmesh/pkg/models"
)

var (
	evalFile        string
	evalMode        string
	evalTask        string
	evalVersion     string
	evalModels      []string
	evalInputs      []string
	evalAutoGen     bool
	evalCount       int
	evalPrompt      string
	evalTemperature float64
	evalMaxTokens   int
	evalYes         bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a prompt against one or more models",
	Long: `Submit an evaluation job: run a stored prompt version (or an ad hoc
custom prompt) against the selected models over a set of test inputs,
then follow the job until its scores come back.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalFile, "file", "", "YAML job file (flags override file values)")
	evaluateCmd.Flags().StringVar(&evalMode, "mode", "registry", "prompt mode: registry or custom")
	evaluateCmd.Flags().StringVar(&evalTask, "task", "", "task name (registry mode)")
	evaluateCmd.Flags().StringVar(&evalVersion, "version", "", "prompt version (registry mode)")
	evaluateCmd.Flags().StringSliceVar(&evalModels, "model", nil, "model to evaluate (repeatable)")
	evaluateCmd.Flags().StringArrayVar(&evalInputs, "input", nil, "test input (repeatable)")
	evaluateCmd.Flags().BoolVar(&evalAutoGen, "generate", false, "let the server generate test cases (registry mode)")
	evaluateCmd.Flags().IntVar(&evalCount, "count", 3, "generated test case count (with --generate)")
	evaluateCmd.Flags().StringVar(&evalPrompt, "prompt", "", "custom prompt text (custom mode)")
	evaluateCmd.Flags().Float64Var(&evalTemperature, "temperature", 0.3, "sampling temperature (custom mode)")
	evaluateCmd.Flags().IntVar(&evalMaxTokens, "max-tokens", 256, "max tokens (custom mode)")
	evaluateCmd.Flags().BoolVar(&evalYes, "yes", false, "skip the placeholder confirmation prompt")
}

func evaluateForm(cmd *cobra.Command) (builder.EvaluateForm, error) {
	form := builder.EvaluateForm{
		Mode:          models.PromptMode(evalMode),
		Task:          evalTask,
		Version:       evalVersion,
		Models:        evalModels,
		RawInputs:     joinInputs(evalInputs),
		AutoGenerate:  evalAutoGen,
		TestCaseCount: evalCount,
		CustomPrompt:  evalPrompt,
		Temperature:   evalTemperature,
		MaxTokens:     evalMaxTokens,
	}

	if evalFile == "" {
		return form, nil
	}
	jf, err := loadJobFile(evalFile)
	if err != nil {
		return form, err
	}

	flags := cmd.Flags()
	if !flags.Changed("mode") && jf.Mode != "" {
		form.Mode = models.PromptMode(jf.Mode)
	}
	if !flags.Changed("task") && jf.Task != "" {
		form.Task = jf.Task
	}
	if !flags.Changed("version") && jf.Version != "" {
		form.Version = jf.Version
	}
	if !flags.Changed("model") && len(jf.Models) > 0 {
		form.Models = jf.Models
	}
	if !flags.Changed("input") && len(jf.Inputs) > 0 {
		form.RawInputs = joinInputs(jf.Inputs)
	}
	if !flags.Changed("generate") {
		form.AutoGenerate = jf.AutoGenerate
	}
	if !flags.Changed("count") && jf.TestCaseCount > 0 {
		form.TestCaseCount = jf.TestCaseCount
	}
	if !flags.Changed("prompt") && jf.CustomPrompt != "" {
		form.CustomPrompt = jf.CustomPrompt
	}
	if !flags.Changed("temperature") && jf.Temperature > 0 {
		form.Temperature = jf.Temperature
	}
	if !flags.Changed("max-tokens") && jf.MaxTokens > 0 {
		form.MaxTokens = jf.MaxTokens
	}
	return form, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	form, err := evaluateForm(cmd)
	if err != nil {
		return err
	}

	sub, err := buildConfirmed(evalYes, func(ack bool) (*models.Submission, error) {
		form.PlaceholderAck = ack
		return builder.BuildEvaluate(form)
	})
	if err == errDeclined {
		return nil
	}
	if err != nil {
		return err
	}
	return submitAndWait(sub)
}
