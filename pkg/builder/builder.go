package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/psantana5/promptmesh/pkg/models"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation      = errors.New("validation error")
	ErrConfirmRequired = errors.New("confirmation required")
)

// PlaceholderMarker is the literal the backend substitutes each test input
// into. Custom prompts without it run the same prompt for every input.
const PlaceholderMarker = "{{text}}"

// ValidationError names the form fields that blocked a submission. It is
// raised before any network access; a failed build never leaves the client.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConfirmError reports that the custom prompt lacks the placeholder marker.
// Not a validation failure: the caller asks the user, sets PlaceholderAck on
// the form, and rebuilds. Declining simply abandons the submission.
type ConfirmError struct {
	Prompt string
}

func (e *ConfirmError) Error() string {
	return fmt.Sprintf("custom prompt does not contain %s", PlaceholderMarker)
}

func (e *ConfirmError) Unwrap() error {
	return ErrConfirmRequired
}

// SplitInputs derives the test-input list from raw multi-line text:
// split on newlines, trim, drop empties.
func SplitInputs(raw string) []string {
	var inputs []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			inputs = append(inputs, line)
		}
	}
	return inputs
}

// validator accumulates missing-field names so one error can report them all.
type validator struct {
	fields []string
}

func (v *validator) require(ok bool, field string) {
	if !ok {
		v.fields = append(v.fields, field)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// EvaluateForm holds the raw values for an evaluation submission.
type EvaluateForm struct {
	Mode          models.PromptMode
	Task          string
	Version       string
	Models        []string
	RawInputs     string // multi-line, one test input per line
	AutoGenerate  bool   // registry mode only: let the backend generate cases
	TestCaseCount int

	// Custom mode
	CustomPrompt string
	Temperature  float64
	MaxTokens    int

	// Set after the user confirmed a prompt without the placeholder marker.
	PlaceholderAck bool
}

// BuildEvaluate validates an evaluation form and constructs its payload.
func BuildEvaluate(form EvaluateForm) (*models.Submission, error) {
	inputs := SplitInputs(form.RawInputs)

	v := &validator{}
	v.require(len(form.Models) > 0, "models")

	switch form.Mode {
	case models.ModeFromRegistry:
		v.require(form.Task != "", "task")
		v.require(form.Version != "", "version")
		if form.AutoGenerate {
			v.require(form.TestCaseCount > 0, "test_case_count")
		} else {
			v.require(len(inputs) > 0, "test_inputs")
		}
	case models.ModeCustom:
		v.require(strings.TrimSpace(form.CustomPrompt) != "", "custom_prompt")
		v.require(form.Temperature > 0, "temperature")
		v.require(form.MaxTokens > 0, "max_tokens")
		v.require(len(inputs) > 0, "test_inputs")
	default:
		v.require(false, "mode")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if form.Mode == models.ModeCustom {
		if err := checkPlaceholder(form.CustomPrompt, form.PlaceholderAck); err != nil {
			return nil, err
		}
	}

	req := &models.EvaluateRequest{
		Models:     form.Models,
		TestInputs: inputs,
	}
	if form.Mode == models.ModeFromRegistry {
		req.Task = form.Task
		req.Version = form.Version
		if form.AutoGenerate {
			req.GenerateTestCases = true
			req.TestCaseCount = form.TestCaseCount
		}
	} else {
		req.CustomPrompt = form.CustomPrompt
		req.CustomConstraints = &models.Constraints{
			Temperature: form.Temperature,
			MaxTokens:   form.MaxTokens,
		}
	}

	return &models.Submission{
		Kind: models.KindEvaluation,
		Body: req,
		Details: models.JobDetails{
			Task:       form.Task,
			Version:    form.Version,
			Models:     form.Models,
			Mode:       form.Mode,
			InputCount: len(inputs),
		},
	}, nil
}

// CompareForm holds the raw values for a comparison submission.
// Comparison is registry-only and runs exactly one test input.
type CompareForm struct {
	Task      string
	Versions  []string
	Models    []string
	TestInput string
}

// BuildCompare validates a comparison form and constructs its payload.
func BuildCompare(form CompareForm) (*models.Submission, error) {
	input := strings.TrimSpace(form.TestInput)

	v := &validator{}
	v.require(form.Task != "", "task")
	v.require(len(form.Versions) > 0, "versions")
	v.require(len(form.Models) > 0, "models")
	v.require(input != "", "test_input")
	if err := v.err(); err != nil {
		return nil, err
	}

	return &models.Submission{
		Kind: models.KindComparison,
		Body: &models.CompareRequest{
			Task:      form.Task,
			Versions:  form.Versions,
			Models:    form.Models,
			TestInput: input,
		},
		Details: models.JobDetails{
			Task:       form.Task,
			Versions:   form.Versions,
			Models:     form.Models,
			Mode:       models.ModeFromRegistry,
			InputCount: 1,
		},
	}, nil
}

// Backend defaults for evolution knobs the caller left unset.
const (
	DefaultOptimizerModel = "command-a-03-2025"
	DefaultMaxIterations  = 3
	DefaultTestCaseCount  = 3
	DefaultMinDelta       = 0.25
)

// EvolveForm holds the raw values for an evolution submission.
type EvolveForm struct {
	Mode           models.PromptMode
	Task           string
	Version        string
	Model          string
	OptimizerModel string
	MaxIterations  int
	TestCaseCount  int
	MinDelta       float64
	RawInputs      string

	// Custom mode
	CustomPrompt string
	Temperature  float64
	MaxTokens    int

	PlaceholderAck bool
}

// BuildEvolve validates an evolution form and constructs its payload.
func BuildEvolve(form EvolveForm) (*models.Submission, error) {
	inputs := SplitInputs(form.RawInputs)

	v := &validator{}
	v.require(form.Model != "", "model")
	v.require(form.OptimizerModel != "", "optimizer_model")
	v.require(form.MaxIterations > 0, "max_iterations")
	v.require(len(inputs) > 0, "test_inputs")

	switch form.Mode {
	case models.ModeFromRegistry:
		v.require(form.Task != "", "task")
		v.require(form.Version != "", "version")
	case models.ModeCustom:
		v.require(strings.TrimSpace(form.CustomPrompt) != "", "custom_prompt")
		v.require(form.Temperature > 0, "temperature")
		v.require(form.MaxTokens > 0, "max_tokens")
	default:
		v.require(false, "mode")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if form.Mode == models.ModeCustom {
		if err := checkPlaceholder(form.CustomPrompt, form.PlaceholderAck); err != nil {
			return nil, err
		}
	}

	testCaseCount := form.TestCaseCount
	if testCaseCount <= 0 {
		testCaseCount = DefaultTestCaseCount
	}
	minDelta := form.MinDelta
	if minDelta <= 0 {
		minDelta = DefaultMinDelta
	}

	req := &models.EvolveRequest{
		Model:          form.Model,
		OptimizerModel: form.OptimizerModel,
		MaxIterations:  form.MaxIterations,
		TestCaseCount:  testCaseCount,
		MinDelta:       minDelta,
		TestInputs:     inputs,
	}
	if form.Mode == models.ModeFromRegistry {
		req.Task = form.Task
		req.Version = form.Version
	} else {
		req.CustomPrompt = form.CustomPrompt
		req.CustomConstraints = &models.Constraints{
			Temperature: form.Temperature,
			MaxTokens:   form.MaxTokens,
		}
	}

	return &models.Submission{
		Kind: models.KindEvolution,
		Body: req,
		Details: models.JobDetails{
			Task:           form.Task,
			Version:        form.Version,
			Model:          form.Model,
			OptimizerModel: form.OptimizerModel,
			Mode:           form.Mode,
			InputCount:     len(inputs),
		},
	}, nil
}

// GenerateForm holds the raw values for synchronous test-case generation.
// BaseInputs may be empty; the backend falls back to per-task-type defaults.
type GenerateForm struct {
	TaskType   string
	BaseInputs []string
	Count      int
}

// BuildGenerate validates a generation form and constructs its payload.
func BuildGenerate(form GenerateForm) (*models.Submission, error) {
	v := &validator{}
	v.require(form.TaskType != "", "task_type")
	v.require(form.Count > 0, "count")
	if err := v.err(); err != nil {
		return nil, err
	}

	base := form.BaseInputs
	if base == nil {
		base = []string{}
	}

	return &models.Submission{
		Kind: models.KindTestCaseGeneration,
		Body: &models.GenerateRequest{
			TaskType:   form.TaskType,
			BaseInputs: base,
			Count:      form.Count,
		},
		Details: models.JobDetails{
			Task:       form.TaskType,
			InputCount: len(base),
		},
	}, nil
}

func checkPlaceholder(prompt string, acknowledged bool) error {
	if strings.Contains(prompt, PlaceholderMarker) || acknowledged {
		return nil
	}
	return &ConfirmError{Prompt: prompt}
}
