package cmd

import (
	"github.com/spf13/cobra"

	"github.com/psantana5/promptmesh/pkg/builder"
	"github.com/psantana5/promptmesh/pkg/models"
)

var (
	evolveFile          string
	evolveMode          string
	evolveTask          string
	evolveVersion       string
	evolveModel         string
	evolveOptimizer     string
	evolveMaxIterations int
	evolveCaseCount     int
	evolveMinDelta      float64
	evolveInputs        []string
	evolvePrompt        string
	evolveTemperature   float64
	evolveMaxTokens     int
	evolveYes           bool
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve a prompt through optimizer iterations",
	Long: `Submit an evolution job: have the optimizer model iteratively rewrite
the prompt, scoring each iteration on the test inputs, then follow the
job until the evolution history comes back.`,
	RunE: runEvolve,
}

func init() {
	rootCmd.AddCommand(evolveCmd)

	evolveCmd.Flags().StringVar(&evolveFile, "file", "", "YAML job file (flags override file values)")
	evolveCmd.Flags().StringVar(&evolveMode, "mode", "registry", "prompt mode: registry or custom")
	evolveCmd.Flags().StringVar(&evolveTask, "task", "", "task name (registry mode)")
	evolveCmd.Flags().StringVar(&evolveVersion, "version", "", "prompt version (registry mode)")
	evolveCmd.Flags().StringVar(&evolveModel, "model", "", "model the prompt targets")
	evolveCmd.Flags().StringVar(&evolveOptimizer, "optimizer-model", builder.DefaultOptimizerModel, "model that rewrites the prompt")
	evolveCmd.Flags().IntVar(&evolveMaxIterations, "max-iterations", builder.DefaultMaxIterations, "iteration limit")
	evolveCmd.Flags().IntVar(&evolveCaseCount, "test-case-count", builder.DefaultTestCaseCount, "test cases scored per iteration")
	evolveCmd.Flags().Float64Var(&evolveMinDelta, "min-delta", builder.DefaultMinDelta, "minimum score gain to keep iterating")
	evolveCmd.Flags().StringArrayVar(&evolveInputs, "input", nil, "test input (repeatable)")
	evolveCmd.Flags().StringVar(&evolvePrompt, "prompt", "", "custom prompt text (custom mode)")
	evolveCmd.Flags().Float64Var(&evolveTemperature, "temperature", 0.3, "sampling temperature (custom mode)")
	evolveCmd.Flags().IntVar(&evolveMaxTokens, "max-tokens", 256, "max tokens (custom mode)")
	evolveCmd.Flags().BoolVar(&evolveYes, "yes", false, "skip the placeholder confirmation prompt")
}

func evolveForm(cmd *cobra.Command) (builder.EvolveForm, error) {
	form := builder.EvolveForm{
		Mode:           models.PromptMode(evolveMode),
		Task:           evolveTask,
		Version:        evolveVersion,
		Model:          evolveModel,
		OptimizerModel: evolveOptimizer,
		MaxIterations:  evolveMaxIterations,
		TestCaseCount:  evolveCaseCount,
		MinDelta:       evolveMinDelta,
		RawInputs:      joinInputs(evolveInputs),
		CustomPrompt:   evolvePrompt,
		Temperature:    evolveTemperature,
		MaxTokens:      evolveMaxTokens,
	}

	if evolveFile == "" {
		return form, nil
	}
	jf, err := loadJobFile(evolveFile)
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
	if !flags.Changed("model") && jf.Model != "" {
		form.Model = jf.Model
	}
	if !flags.Changed("optimizer-model") && jf.OptimizerModel != "" {
		form.OptimizerModel = jf.OptimizerModel
	}
	if !flags.Changed("max-iterations") && jf.MaxIterations > 0 {
		form.MaxIterations = jf.MaxIterations
	}
	if !flags.Changed("test-case-count") && jf.TestCaseCount > 0 {
		form.TestCaseCount = jf.TestCaseCount
	}
	if !flags.Changed("min-delta") && jf.MinDelta > 0 {
		form.MinDelta = jf.MinDelta
	}
	if !flags.Changed("input") && len(jf.Inputs) > 0 {
		form.RawInputs = joinInputs(jf.Inputs)
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

func runEvolve(cmd *cobra.Command, args []string) error {
	form, err := evolveForm(cmd)
	if err != nil {
		return err
	}

	sub, err := buildConfirmed(evolveYes, func(ack bool) (*models.Submission, error) {
		form.PlaceholderAck = ack
		return builder.BuildEvolve(form)
	})
	if err == errDeclined {
		return nil
	}
	if err != nil {
		return err
	}
	return submitAndWait(sub)
}
