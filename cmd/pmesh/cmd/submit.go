package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/psantana5/promptmesh/pkg/builder"
	"github.com/psantana5/promptmesh/pkg/jobs"
	"github.com/psantana5/promptmesh/pkg/models"
)

// jobFile is the YAML shape accepted by --file. Explicit flags override
// whatever the file sets.
type jobFile struct {
	Mode           string   `yaml:"mode"`
	Task           string   `yaml:"task"`
	Version        string   `yaml:"version"`
	Versions       []string `yaml:"versions"`
	Models         []string `yaml:"models"`
	Model          string   `yaml:"model"`
	OptimizerModel string   `yaml:"optimizer_model"`
	Inputs         []string `yaml:"inputs"`
	Input          string   `yaml:"input"`
	AutoGenerate   bool     `yaml:"generate_test_cases"`
	TestCaseCount  int      `yaml:"test_case_count"`
	MaxIterations  int      `yaml:"max_iterations"`
	MinDelta       float64  `yaml:"min_delta"`
	CustomPrompt   string   `yaml:"custom_prompt"`
	Temperature    float64  `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TaskType       string   `yaml:"task_type"`
	Count          int      `yaml:"count"`
}

// loadJobFile parses a YAML job file.
func loadJobFile(path string) (*jobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var jf jobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	return &jf, nil
}

// errDeclined signals that the user declined the placeholder confirmation.
// The submission is abandoned without an error message.
var errDeclined = errors.New("declined")

// confirmPlaceholder asks the user to confirm a custom prompt that lacks
// the substitution marker. assumeYes skips the prompt for scripted runs.
func confirmPlaceholder(assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	fmt.Fprintf(os.Stderr, "The custom prompt does not contain %s; every test input will run against the same literal text.\n", builder.PlaceholderMarker)
	fmt.Fprint(os.Stderr, "Continue anyway? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// buildConfirmed runs a builder, resolving the placeholder confirmation
// when required: build(false) first, ask on ConfirmError, then build(true).
func buildConfirmed(assumeYes bool, build func(ack bool) (*models.Submission, error)) (*models.Submission, error) {
	sub, err := build(false)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, builder.ErrConfirmRequired) {
		return nil, err
	}
	ok, err := confirmPlaceholder(assumeYes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errDeclined
	}
	return build(true)
}

// runSession waits the polling session out. Every failure it can report
// was already surfaced through the notifier, so the command only decides
// the exit code and never repeats the message.
func runSession(sess *jobs.Session) error {
	err := sess.Wait()
	fmt.Fprintln(os.Stderr)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jobs.ErrSuperseded):
		return nil
	case errors.Is(err, jobs.ErrEmptyResult):
		return nil
	default:
		return fmt.Errorf("job did not complete successfully")
	}
}

// submitAndWait drives one async submission end to end.
func submitAndWait(sub *models.Submission) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.submitter.Submit(sub)
	if err != nil {
		// Gateway already notified.
		return fmt.Errorf("submission failed")
	}
	return runSession(sess)
}

// joinInputs flattens repeated --input flags into the builder's raw
// multi-line form.
func joinInputs(inputs []string) string {
	return strings.Join(inputs, "\n")
}
