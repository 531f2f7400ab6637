package models

import "encoding/json"

// Result shapes as the backend reports them per job kind. Renderers decode
// the raw results document into one of these; the shapes are also what the
// local stub backend serves.

// CaseResult is one test input run against one model.
type CaseResult struct {
	Input     string             `json:"input"`
	Output    string             `json:"output"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	Tokens    int                `json:"tokens"`
	LatencyMS float64            `json:"latency_ms"`
}

// ModelEvaluation aggregates one model's runs in an evaluation job.
// The backend sorts the list by average score, best first.
type ModelEvaluation struct {
	Model        string       `json:"model"`
	AverageScore float64      `json:"average_score"`
	Results      []CaseResult `json:"results"`
}

// ComparisonRow is one (prompt version, model) cell of a comparison job.
type ComparisonRow struct {
	PromptVersion string             `json:"prompt_version"`
	Model         string             `json:"model"`
	Output        string             `json:"output"`
	Score         float64            `json:"score"`
	Breakdown     map[string]float64 `json:"breakdown,omitempty"`
}

// EvolutionStep is one iteration of an evolution run. Breakdowns stays raw:
// it is a per-input list the client never interprets.
type EvolutionStep struct {
	Iteration  int             `json:"iteration"`
	Prompt     string          `json:"prompt"`
	Score      float64         `json:"score"`
	Breakdowns json.RawMessage `json:"breakdowns,omitempty"`
}

// EvolutionOutcome is the results object of an evolution job.
type EvolutionOutcome struct {
	History      []EvolutionStep `json:"history"`
	InitialScore float64         `json:"initial_score"`
	FinalScore   float64         `json:"final_score"`
	Improvement  float64         `json:"improvement"`
	FinalPrompt  string          `json:"final_prompt"`
}
