package mockapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/psantana5/promptmesh/pkg/logging"
	"github.com/psantana5/promptmesh/pkg/models"
)

// Handler is a local stub implementing the full backend contract: the
// catalog, the three async job kinds with simulated progress, synchronous
// test-case generation, and a metrics endpoint.
type Handler struct {
	jobs    *jobTable
	metrics *Metrics
	logger  *logging.Logger
}

// Option tunes the stub.
type Option func(*Handler)

// WithStepInterval sets how often simulated jobs advance.
func WithStepInterval(d time.Duration) Option {
	return func(h *Handler) { h.jobs.interval = d }
}

// WithSteps sets how many progress steps a job walks before completing.
func WithSteps(n int) Option {
	return func(h *Handler) { h.jobs.maxSteps = n }
}

// NewHandler creates a stub backend. Default pacing: jobs complete after
// four steps of one second each.
func NewHandler(logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	h := &Handler{
		jobs:   newJobTable(time.Second, 4),
		logger: logger.WithField("component", "mockapi"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.metrics = NewMetrics(h.jobs.active)
	h.jobs.onFinish = func(kind models.JobKind, d time.Duration) {
		h.metrics.duration.WithLabelValues(string(kind)).Observe(d.Seconds())
	}
	return h
}

// RegisterRoutes mounts the contract under /api plus the metrics scrape.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.metrics.Middleware)
	api.HandleFunc("/health", h.Health).Methods("GET")
	api.HandleFunc("/tasks", h.Tasks).Methods("GET")
	api.HandleFunc("/tasks/{task}/versions", h.Versions).Methods("GET")
	api.HandleFunc("/tasks/{task}/versions/{version}/prompt", h.Prompt).Methods("GET")
	api.HandleFunc("/models", h.Models).Methods("GET")
	api.HandleFunc("/evaluate", h.Evaluate).Methods("POST")
	api.HandleFunc("/compare", h.Compare).Methods("POST")
	api.HandleFunc("/evolve", h.Evolve).Methods("POST")
	api.HandleFunc("/test-cases/generate", h.GenerateTestCases).Methods("POST")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")

	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError reports failures the way the real backend does: {"detail": ...}.
func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}

// Health reports liveness plus host load, so the health command doubles as
// a quick capacity check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		body["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		body["memory_percent"] = vm.UsedPercent
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.TaskList{Tasks: taskNames()})
}

func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	task := mux.Vars(r)["task"]
	versions, ok := versionNames(task)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	h.writeJSON(w, http.StatusOK, models.VersionList{Versions: versions})
}

func (h *Handler) Prompt(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	versions, ok := catalogTasks[vars["task"]]
	if !ok {
		h.writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	version, ok := versions[vars["version"]]
	if !ok {
		h.writeError(w, http.StatusNotFound, "Version not found")
		return
	}
	h.writeJSON(w, http.StatusOK, models.PromptDetail{
		Template:       version.Template,
		Constraints:    version.Constraints,
		TaskType:       version.TaskType,
		InputVariables: version.InputVariables,
		SchemaFields:   version.SchemaFields,
	})
}

func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, catalogModels)
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Models) == 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "models must not be empty")
		return
	}

	inputs := req.TestInputs
	if len(inputs) == 0 && req.GenerateTestCases {
		count := req.TestCaseCount
		if count <= 0 {
			count = 3
		}
		taskType := "generation"
		if versions, ok := catalogTasks[req.Task]; ok {
			if version, ok := versions[req.Version]; ok {
				taskType = version.TaskType
			}
		}
		inputs = generatedCases(taskType, nil, count)
	}

	h.startJob(w, models.KindEvaluation, inputs, func() json.RawMessage {
		return evaluationResults(req.Models, inputs)
	})
}

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Task == "" || len(req.Versions) == 0 || len(req.Models) == 0 {
		h.writeError(w, http.StatusUnprocessableEntity, "task, versions and models are required")
		return
	}

	h.startJob(w, models.KindComparison, []string{req.TestInput}, func() json.RawMessage {
		return comparisonResults(req.Versions, req.Models, req.TestInput)
	})
}

func (h *Handler) Evolve(w http.ResponseWriter, r *http.Request) {
	var req models.EvolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Model == "" || req.OptimizerModel == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "model and optimizer_model are required")
		return
	}

	h.startJob(w, models.KindEvolution, req.TestInputs, func() json.RawMessage {
		return evolutionResults(req.Model, req.MaxIterations, req.TestInputs)
	})
}

// startJob registers a simulated job and acknowledges it.
func (h *Handler) startJob(w http.ResponseWriter, kind models.JobKind, inputs []string, finish func() json.RawMessage) {
	id := uuid.New().String()
	h.jobs.create(id, kind, inputs, finish)
	h.metrics.submissions.WithLabelValues(string(kind)).Inc()
	h.logger.Info("job accepted", map[string]interface{}{
		"kind":   string(kind),
		"job_id": id,
	})
	h.writeJSON(w, http.StatusOK, models.SubmitAck{JobID: id, Status: string(models.JobStatusStarted)})
}

func (h *Handler) GenerateTestCases(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TaskType == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "task_type is required")
		return
	}
	count := req.Count
	if count <= 0 {
		count = 5
	}
	h.writeJSON(w, http.StatusOK, models.GenerateResult{
		Success:   true,
		TestCases: generatedCases(req.TaskType, req.BaseInputs, count),
	})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := h.jobs.snapshot(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}
