package mockapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/psantana5/promptmesh/pkg/models"
)

// Trigger inputs let clients exercise failure paths deterministically.
const (
	FailTrigger  = "__fail__"  // job finishes in the failed state
	EmptyTrigger = "__empty__" // job completes with an empty results list
)

// mockJob is one entry of the in-memory job table.
type mockJob struct {
	ID          string
	Kind        models.JobKind
	Status      models.JobStatus
	Progress    int
	Results     json.RawMessage
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time

	steps int // advance() calls so far
}

// jobTable holds and advances jobs. Each submitted job walks a fixed number
// of progress steps on the configured interval before completing.
type jobTable struct {
	mu       sync.Mutex
	jobs     map[string]*mockJob
	interval time.Duration
	maxSteps int

	// onFinish observes terminal jobs (metrics hook).
	onFinish func(kind models.JobKind, d time.Duration)
}

func newJobTable(interval time.Duration, maxSteps int) *jobTable {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &jobTable{
		jobs:     make(map[string]*mockJob),
		interval: interval,
		maxSteps: maxSteps,
	}
}

// create registers a job and starts its progress walker.
func (t *jobTable) create(id string, kind models.JobKind, inputs []string, finish func() json.RawMessage) *mockJob {
	job := &mockJob{
		ID:        id,
		Kind:      kind,
		Status:    models.JobStatusStarted,
		StartedAt: time.Now().UTC(),
	}
	t.mu.Lock()
	t.jobs[id] = job
	t.mu.Unlock()

	fail := hasTrigger(inputs, FailTrigger)
	empty := hasTrigger(inputs, EmptyTrigger)

	go t.walk(job, fail, empty, finish)
	return job
}

// walk advances the job until terminal.
func (t *jobTable) walk(job *mockJob, fail, empty bool, finish func() json.RawMessage) {
	for {
		time.Sleep(t.interval)
		t.mu.Lock()
		job.steps++
		if job.steps >= t.maxSteps {
			job.Progress = 100
			job.CompletedAt = time.Now().UTC()
			switch {
			case fail:
				job.Status = models.JobStatusFailed
				job.Error = fmt.Sprintf("model call failed on input %q", FailTrigger)
			case empty:
				job.Status = models.JobStatusCompleted
				job.Results = json.RawMessage("[]")
			default:
				job.Status = models.JobStatusCompleted
				job.Results = finish()
			}
			finished := t.onFinish
			t.mu.Unlock()
			if finished != nil {
				finished(job.Kind, job.CompletedAt.Sub(job.StartedAt))
			}
			return
		}
		job.Status = models.JobStatusRunning
		job.Progress = job.steps * 100 / t.maxSteps
		t.mu.Unlock()
	}
}

// snapshot returns the wire view of a job.
func (t *jobTable) snapshot(id string) (*models.JobSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	snap := &models.JobSnapshot{
		Status:   job.Status,
		Progress: job.Progress,
		Results:  job.Results,
		Error:    job.Error,
	}
	if !job.StartedAt.IsZero() {
		snap.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if !job.CompletedAt.IsZero() {
		snap.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return snap, true
}

// active counts jobs not yet terminal, for the metrics gauge.
func (t *jobTable) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, job := range t.jobs {
		if job.Status != models.JobStatusCompleted && job.Status != models.JobStatusFailed {
			n++
		}
	}
	return n
}

func hasTrigger(inputs []string, trigger string) bool {
	for _, in := range inputs {
		if strings.Contains(in, trigger) {
			return true
		}
	}
	return false
}

// Deterministic canned results. Scores derive from string lengths so the
// same request always produces the same ranking.

func pseudoScore(model, input string, iteration int) float64 {
	base := float64((len(model)*7+len(input)*3+iteration*11)%40) / 100.0
	return 0.55 + base // 0.55..0.94
}

func evaluationResults(reqModels, inputs []string) json.RawMessage {
	evals := make([]models.ModelEvaluation, 0, len(reqModels))
	for _, model := range reqModels {
		cases := make([]models.CaseResult, 0, len(inputs))
		total := 0.0
		for _, input := range inputs {
			score := pseudoScore(model, input, 0)
			total += score
			cases = append(cases, models.CaseResult{
				Input:     input,
				Output:    fmt.Sprintf("[%s] response for: %s", model, truncate(input, 48)),
				Score:     score,
				Breakdown: map[string]float64{"accuracy": score, "format": 0.9},
				Tokens:    40 + len(input)/4,
				LatencyMS: float64(200 + len(model)*10),
			})
		}
		avg := 0.0
		if len(cases) > 0 {
			avg = total / float64(len(cases))
		}
		evals = append(evals, models.ModelEvaluation{
			Model:        model,
			AverageScore: avg,
			Results:      cases,
		})
	}
	// Best model first, like the real backend.
	for i := 0; i < len(evals); i++ {
		for j := i + 1; j < len(evals); j++ {
			if evals[j].AverageScore > evals[i].AverageScore {
				evals[i], evals[j] = evals[j], evals[i]
			}
		}
	}
	data, _ := json.Marshal(evals)
	return data
}

func comparisonResults(versions, reqModels []string, input string) json.RawMessage {
	rows := make([]models.ComparisonRow, 0, len(versions)*len(reqModels))
	for _, version := range versions {
		for _, model := range reqModels {
			score := pseudoScore(model, version+input, 0)
			rows = append(rows, models.ComparisonRow{
				PromptVersion: version,
				Model:         model,
				Output:        fmt.Sprintf("[%s/%s] response for: %s", version, model, truncate(input, 48)),
				Score:         score,
				Breakdown:     map[string]float64{"accuracy": score, "format": 0.9},
			})
		}
	}
	data, _ := json.Marshal(rows)
	return data
}

func evolutionResults(model string, iterations int, inputs []string) json.RawMessage {
	if iterations < 1 {
		iterations = 1
	}
	seed := strings.Join(inputs, " ")
	history := make([]models.EvolutionStep, 0, iterations)
	var first, last float64
	for i := 1; i <= iterations; i++ {
		score := pseudoScore(model, seed, i)
		// Evolution trends upward: each iteration adds a small gain.
		score += float64(i) * 0.01
		if score > 0.99 {
			score = 0.99
		}
		if i == 1 {
			first = score
		}
		last = score
		history = append(history, models.EvolutionStep{
			Iteration: i,
			Prompt:    fmt.Sprintf("Refined prompt, iteration %d: respond precisely to {{text}}", i),
			Score:     score,
		})
	}
	outcome := models.EvolutionOutcome{
		History:      history,
		InitialScore: first,
		FinalScore:   last,
		Improvement:  last - first,
		FinalPrompt:  history[len(history)-1].Prompt,
	}
	data, _ := json.Marshal(outcome)
	return data
}

func generatedCases(taskType string, base []string, count int) []string {
	if len(base) == 0 {
		base = defaultInputsFor(taskType)
	}
	cases := make([]string, 0, count)
	for i := 0; i < count; i++ {
		src := base[i%len(base)]
		cases = append(cases, fmt.Sprintf("%s (variant %d)", src, i+1))
	}
	return cases
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
