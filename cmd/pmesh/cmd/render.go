package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/router"
)

// registerRenderers binds one renderer per async job kind. JSON output mode
// bypasses the tables and prints the raw results document.
func registerRenderers(rt *router.Router) {
	rt.Register(models.KindEvaluation, renderEvaluation)
	rt.Register(models.KindComparison, renderComparison)
	rt.Register(models.KindEvolution, renderEvolution)
}

func printRawJSON(raw json.RawMessage) error {
	var buf interface{}
	if err := json.Unmarshal(raw, &buf); err != nil {
		return fmt.Errorf("failed to parse results: %w", err)
	}
	output, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func renderEvaluation(raw json.RawMessage) error {
	if IsJSONOutput() {
		return printRawJSON(raw)
	}

	var evals []models.ModelEvaluation
	if err := json.Unmarshal(raw, &evals); err != nil {
		return fmt.Errorf("failed to parse evaluation results: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Rank", "Model", "Avg Score", "Cases")
	for i, eval := range evals {
		table.Append(
			fmt.Sprintf("%d", i+1),
			eval.Model,
			fmt.Sprintf("%.3f", eval.AverageScore),
			fmt.Sprintf("%d", len(eval.Results)),
		)
	}
	table.Render()

	// Per-input detail for the winning model.
	if len(evals) > 0 && len(evals[0].Results) > 0 {
		fmt.Printf("\nBest model: %s\n", evals[0].Model)
		detail := tablewriter.NewWriter(os.Stdout)
		detail.Header("Input", "Score", "Tokens", "Latency")
		for _, cr := range evals[0].Results {
			detail.Append(
				truncate(cr.Input, 56),
				fmt.Sprintf("%.3f", cr.Score),
				fmt.Sprintf("%d", cr.Tokens),
				fmt.Sprintf("%.0f ms", cr.LatencyMS),
			)
		}
		detail.Render()
	}
	return nil
}

func renderComparison(raw json.RawMessage) error {
	if IsJSONOutput() {
		return printRawJSON(raw)
	}

	var rows []models.ComparisonRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("failed to parse comparison results: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Version", "Model", "Score", "Output")
	for _, row := range rows {
		table.Append(
			row.PromptVersion,
			row.Model,
			fmt.Sprintf("%.3f", row.Score),
			truncate(row.Output, 56),
		)
	}
	table.Render()
	return nil
}

func renderEvolution(raw json.RawMessage) error {
	if IsJSONOutput() {
		return printRawJSON(raw)
	}

	var outcome models.EvolutionOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return fmt.Errorf("failed to parse evolution results: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Iteration", "Score", "Prompt")
	for _, step := range outcome.History {
		table.Append(
			fmt.Sprintf("%d", step.Iteration),
			fmt.Sprintf("%.3f", step.Score),
			truncate(step.Prompt, 64),
		)
	}
	table.Render()

	fmt.Printf("\nScore: %.3f -> %.3f (improvement %+.3f)\n",
		outcome.InitialScore, outcome.FinalScore, outcome.Improvement)
	if outcome.FinalPrompt != "" {
		fmt.Printf("\nFinal prompt:\n%s\n", outcome.FinalPrompt)
	}
	return nil
}

// renderTestCases prints the synchronous generation result.
func renderTestCases(result *models.GenerateResult) error {
	if IsJSONOutput() {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}
	for i, tc := range result.TestCases {
		fmt.Printf("%2d. %s\n", i+1, tc)
	}
	fmt.Printf("\nGenerated %d test cases\n", len(result.TestCases))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
