package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/psantana5/promptmesh/pkg/api"
	"github.com/psantana5/promptmesh/pkg/jobs"
	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/notify"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	base := []Option{WithStepInterval(5 * time.Millisecond), WithSteps(2)}
	handler := NewHandler(nil, append(base, opts...)...)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// pollUntilTerminal fetches the job until it leaves the running states.
func pollUntilTerminal(t *testing.T, base, jobID string) *models.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var snap models.JobSnapshot
		if status := getJSON(t, base+"/api/jobs/"+jobID, &snap); status != http.StatusOK {
			t.Fatalf("job fetch status = %d", status)
		}
		if snap.Status == models.JobStatusCompleted || snap.Status == models.JobStatusFailed {
			return &snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal status")
	return nil
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var tasks models.TaskList
	if status := getJSON(t, srv.URL+"/api/tasks", &tasks); status != http.StatusOK {
		t.Fatalf("tasks status = %d", status)
	}
	if len(tasks.Tasks) != len(catalogTasks) {
		t.Errorf("tasks = %v", tasks.Tasks)
	}
	for i := 1; i < len(tasks.Tasks); i++ {
		if tasks.Tasks[i-1] >= tasks.Tasks[i] {
			t.Errorf("task list not sorted: %v", tasks.Tasks)
		}
	}

	var versions models.VersionList
	getJSON(t, srv.URL+"/api/tasks/sentiment/versions", &versions)
	if len(versions.Versions) != 2 || versions.Versions[0] != "v1" || versions.Versions[1] != "v2" {
		t.Errorf("sentiment versions = %v", versions.Versions)
	}

	var detail map[string]string
	if status := getJSON(t, srv.URL+"/api/tasks/nope/versions", &detail); status != http.StatusNotFound {
		t.Errorf("unknown task status = %d", status)
	}
	if detail["detail"] != "Task not found" {
		t.Errorf("detail = %q", detail["detail"])
	}

	var prompt models.PromptDetail
	getJSON(t, srv.URL+"/api/tasks/sentiment/versions/v1/prompt", &prompt)
	if !strings.Contains(prompt.Template, "{{text}}") {
		t.Errorf("template = %q", prompt.Template)
	}
	if prompt.TaskType != "classification" {
		t.Errorf("task type = %q", prompt.TaskType)
	}

	var tiers map[string][]string
	getJSON(t, srv.URL+"/api/models", &tiers)
	if len(tiers["all"]) == 0 || len(tiers["fast"]) == 0 {
		t.Errorf("model tiers = %v", tiers)
	}
}

func TestEvaluateJobLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var ack models.SubmitAck
	status := postJSON(t, srv.URL+"/api/evaluate", models.EvaluateRequest{
		Models:     []string{"command-r", "command-r-plus"},
		TestInputs: []string{"The product exceeded expectations."},
	}, &ack)
	if status != http.StatusOK {
		t.Fatalf("evaluate status = %d", status)
	}
	if ack.JobID == "" || ack.Status != "started" {
		t.Fatalf("ack = %+v", ack)
	}

	snap := pollUntilTerminal(t, srv.URL, ack.JobID)
	if snap.Status != models.JobStatusCompleted || snap.Progress != 100 {
		t.Fatalf("snapshot = %+v", snap)
	}

	var evals []models.ModelEvaluation
	if err := json.Unmarshal(snap.Results, &evals); err != nil {
		t.Fatalf("results decode: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("evaluations = %d, want 2", len(evals))
	}
	if evals[0].AverageScore < evals[1].AverageScore {
		t.Error("results not sorted best first")
	}
	if len(evals[0].Results) != 1 {
		t.Errorf("case results = %d, want 1", len(evals[0].Results))
	}
}

func TestEvaluateRejectsEmptyModels(t *testing.T) {
	srv := newTestServer(t)
	var detail map[string]string
	status := postJSON(t, srv.URL+"/api/evaluate", models.EvaluateRequest{}, &detail)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", status)
	}
	if detail["detail"] == "" {
		t.Error("missing detail message")
	}
}

func TestEvaluateGeneratesInputsWhenAsked(t *testing.T) {
	srv := newTestServer(t)

	var ack models.SubmitAck
	postJSON(t, srv.URL+"/api/evaluate", models.EvaluateRequest{
		Task:              "sentiment",
		Version:           "v1",
		Models:            []string{"command-r"},
		GenerateTestCases: true,
		TestCaseCount:     4,
	}, &ack)

	snap := pollUntilTerminal(t, srv.URL, ack.JobID)
	var evals []models.ModelEvaluation
	json.Unmarshal(snap.Results, &evals)
	if len(evals) != 1 || len(evals[0].Results) != 4 {
		t.Fatalf("generated case count = %d, want 4", len(evals[0].Results))
	}
}

func TestFailTrigger(t *testing.T) {
	srv := newTestServer(t)

	var ack models.SubmitAck
	postJSON(t, srv.URL+"/api/evaluate", models.EvaluateRequest{
		Models:     []string{"command-r"},
		TestInputs: []string{FailTrigger},
	}, &ack)

	snap := pollUntilTerminal(t, srv.URL, ack.JobID)
	if snap.Status != models.JobStatusFailed {
		t.Fatalf("status = %s, want failed", snap.Status)
	}
	if snap.Error == "" {
		t.Error("failed job carries no error message")
	}
}

func TestEmptyTrigger(t *testing.T) {
	srv := newTestServer(t)

	var ack models.SubmitAck
	postJSON(t, srv.URL+"/api/compare", models.CompareRequest{
		Task:      "sentiment",
		Versions:  []string{"v1", "v2"},
		Models:    []string{"command-r"},
		TestInput: EmptyTrigger,
	}, &ack)

	snap := pollUntilTerminal(t, srv.URL, ack.JobID)
	if snap.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s", snap.Status)
	}
	if !models.EmptyResults(snap.Results) {
		t.Errorf("results = %s, want empty", snap.Results)
	}
}

func TestEvolveJobLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var ack models.SubmitAck
	status := postJSON(t, srv.URL+"/api/evolve", models.EvolveRequest{
		Model:          "command-r",
		OptimizerModel: "command-r-plus",
		MaxIterations:  3,
		TestInputs:     []string{"Customer service was slow."},
	}, &ack)
	if status != http.StatusOK {
		t.Fatalf("evolve status = %d", status)
	}

	snap := pollUntilTerminal(t, srv.URL, ack.JobID)
	var outcome models.EvolutionOutcome
	if err := json.Unmarshal(snap.Results, &outcome); err != nil {
		t.Fatalf("results decode: %v", err)
	}
	if len(outcome.History) != 3 {
		t.Errorf("iterations = %d, want 3", len(outcome.History))
	}
	if outcome.FinalScore < outcome.InitialScore {
		t.Error("evolution did not trend upward")
	}
	if outcome.FinalPrompt == "" {
		t.Error("missing final prompt")
	}
}

func TestGenerateTestCases(t *testing.T) {
	srv := newTestServer(t)

	var result models.GenerateResult
	status := postJSON(t, srv.URL+"/api/test-cases/generate", models.GenerateRequest{
		TaskType: "classification",
		Count:    3,
	}, &result)
	if status != http.StatusOK {
		t.Fatalf("generate status = %d", status)
	}
	if !result.Success || len(result.TestCases) != 3 {
		t.Errorf("result = %+v", result)
	}

	// Count defaults to five when omitted.
	postJSON(t, srv.URL+"/api/test-cases/generate", models.GenerateRequest{
		TaskType: "summarization",
	}, &result)
	if len(result.TestCases) != 5 {
		t.Errorf("default count = %d, want 5", len(result.TestCases))
	}

	var detail map[string]string
	if status := postJSON(t, srv.URL+"/api/test-cases/generate", models.GenerateRequest{}, &detail); status != http.StatusUnprocessableEntity {
		t.Errorf("missing task_type status = %d, want 422", status)
	}
}

func TestJobNotFound(t *testing.T) {
	srv := newTestServer(t)
	var detail map[string]string
	if status := getJSON(t, srv.URL+"/api/jobs/nope", &detail); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if detail["detail"] != "Job not found" {
		t.Errorf("detail = %q", detail["detail"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Touch an instrumented route so counters exist.
	getJSON(t, srv.URL+"/api/tasks", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	text := string(body)
	if !strings.Contains(text, "promptmesh_http_requests_total") {
		t.Error("missing http request counter")
	}
	if !strings.Contains(text, "promptmesh_active_jobs") {
		t.Error("missing active jobs gauge")
	}
}

// flowRecorder collects routed results and notifications for the end-to-end
// flow below.
type flowRecorder struct {
	mu       sync.Mutex
	routed   []models.JobKind
	notified []notify.Notification
}

func (f *flowRecorder) Dispatch(kind models.JobKind, results json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routed = append(f.routed, kind)
	return nil
}

func (f *flowRecorder) Send(n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, n)
	return nil
}

// The full client path against the stub: gateway, submitter, poller, router.
func TestEndToEndEvaluationFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := &flowRecorder{}
	client := api.NewClient(srv.URL, "", rec, nil)
	poller := jobs.NewPoller(client, rec, rec, jobs.NewTracker(), nil,
		jobs.WithInterval(5*time.Millisecond))
	submitter := jobs.NewSubmitter(client, nil, poller, rec, nil)

	sess, err := submitter.Submit(&models.Submission{
		Kind: models.KindEvaluation,
		Body: &models.EvaluateRequest{
			Task:       "sentiment",
			Version:    "v1",
			Models:     []string{"command-r", "command-light"},
			TestInputs: []string{"The product exceeded expectations."},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := sess.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.routed) != 1 || rec.routed[0] != models.KindEvaluation {
		t.Errorf("routed = %v", rec.routed)
	}
	var success int
	for _, n := range rec.notified {
		if n.Type == notify.Success {
			success++
		}
	}
	if success != 1 {
		t.Errorf("success notifications = %d, want 1", success)
	}
}
