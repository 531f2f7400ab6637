package models

import (
	"bytes"
	"encoding/json"
)

// JobKind identifies the kind of work a submission asks the backend to run.
type JobKind string

const (
	KindEvaluation         JobKind = "evaluation"
	KindComparison         JobKind = "comparison"
	KindEvolution          JobKind = "evolution"
	KindTestCaseGeneration JobKind = "test_case_generation"
)

// Async reports whether the kind runs as a background job on the server.
// Test-case generation answers inline and never produces a job id.
func (k JobKind) Async() bool {
	return k != KindTestCaseGeneration
}

// JobStatus mirrors the status strings the backend reports for a job.
type JobStatus string

const (
	JobStatusStarted   JobStatus = "started"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// PromptMode selects where the prompt template comes from.
type PromptMode string

const (
	ModeFromRegistry PromptMode = "registry" // task + version name a stored template
	ModeCustom       PromptMode = "custom"   // caller supplies the prompt text
)

// Constraints are the sampling constraints attached to a custom prompt.
type Constraints struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// EvaluateRequest is the body posted to /api/evaluate.
// GenerateTestCases is serialized unconditionally: the backend defaults it
// to true, so omitting a false value would flip the caller's choice.
type EvaluateRequest struct {
	Task              string       `json:"task,omitempty"`
	Version           string       `json:"version,omitempty"`
	Models            []string     `json:"models"`
	TestInputs        []string     `json:"test_inputs"`
	GenerateTestCases bool         `json:"generate_test_cases"`
	TestCaseCount     int          `json:"test_case_count,omitempty"`
	CustomPrompt      string       `json:"custom_prompt,omitempty"`
	CustomConstraints *Constraints `json:"custom_constraints,omitempty"`
}

// CompareRequest is the body posted to /api/compare.
type CompareRequest struct {
	Task      string   `json:"task"`
	Versions  []string `json:"versions"`
	Models    []string `json:"models"`
	TestInput string   `json:"test_input"`
}

// EvolveRequest is the body posted to /api/evolve.
type EvolveRequest struct {
	Task              string       `json:"task,omitempty"`
	Version           string       `json:"version,omitempty"`
	Model             string       `json:"model"`
	OptimizerModel    string       `json:"optimizer_model"`
	MaxIterations     int          `json:"max_iterations"`
	TestCaseCount     int          `json:"test_case_count"`
	MinDelta          float64      `json:"min_delta"`
	TestInputs        []string     `json:"test_inputs"`
	CustomPrompt      string       `json:"custom_prompt,omitempty"`
	CustomConstraints *Constraints `json:"custom_constraints,omitempty"`
}

// GenerateRequest is the body posted to /api/test-cases/generate.
type GenerateRequest struct {
	TaskType   string   `json:"task_type"`
	BaseInputs []string `json:"base_inputs"`
	Count      int      `json:"count"`
}

// SubmitAck is the backend's acknowledgement for an async submission.
type SubmitAck struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobSnapshot is one observation of a job from GET /api/jobs/{id}.
// Results stays raw: its shape depends on the job kind and is only
// interpreted by the kind's renderer.
type JobSnapshot struct {
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	Results     json.RawMessage `json:"results,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   string          `json:"started_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
}

// EmptyResults reports whether a results document carries no usable payload.
// The backend leaves results null until completion, and a run can finish
// with an empty list (no cases) or an empty object.
func EmptyResults(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	switch string(trimmed) {
	case "null", "[]", "{}":
		return true
	}
	return false
}

// JobDetails is the selection snapshot recorded with a history entry.
type JobDetails struct {
	Task           string     `json:"task,omitempty"`
	Version        string     `json:"version,omitempty"`
	Versions       []string   `json:"versions,omitempty"`
	Models         []string   `json:"models,omitempty"`
	Model          string     `json:"model,omitempty"`
	OptimizerModel string     `json:"optimizer_model,omitempty"`
	Mode           PromptMode `json:"mode,omitempty"`
	InputCount     int        `json:"input_count,omitempty"`
}

// Submission is a validated payload ready for the gateway: the kind, the
// JSON-serializable request body, and the details snapshot for history.
type Submission struct {
	Kind    JobKind
	Body    interface{}
	Details JobDetails
}
