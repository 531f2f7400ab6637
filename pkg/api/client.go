package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/psantana5/promptmesh/pkg/logging"
	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/notify"
)

// ErrAPI is the sentinel for classification via errors.Is().
var ErrAPI = errors.New("api error")

// APIError is a failed exchange with the backend: a transport failure, a
// non-2xx status, or an unparseable body.
type APIError struct {
	StatusCode int    // 0 when the request never got a response
	Endpoint   string // relative path, e.g. "/evaluate"
	Detail     string // server-provided detail or a generic message
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API error: %s", e.Detail)
}

// Unwrap returns the sentinel so errors.Is(err, ErrAPI) works.
func (e *APIError) Unwrap() error {
	return ErrAPI
}

// errorBody is how the backend reports a failure: {"detail": "..."}.
type errorBody struct {
	Detail string `json:"detail"`
}

// Client is the single choke point for every HTTP exchange with the
// backend. Every failure is normalized to an *APIError and reported to the
// notifier exactly once; callers must not re-report gateway errors.
// No request is ever retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	notifier   notify.Notifier
	logger     *logging.Logger
}

// NewClient creates a gateway client. baseURL is the server root without
// the /api prefix; trailing slashes are trimmed.
func NewClient(baseURL, apiKey string, notifier notify.Notifier, logger *logging.Logger) *Client {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if logger == nil {
		logger = logging.NewLogger(logging.WARN, false)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		notifier: notifier,
		logger:   logger.WithField("component", "gateway"),
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// do performs one exchange: build the request, attach auth, send, decode.
// endpoint is relative to /api. out may be nil when the caller discards
// the body. All error paths funnel through fail().
func (c *Client) do(method, endpoint string, body interface{}, out interface{}) error {
	url := c.baseURL + "/api" + endpoint

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return c.fail(endpoint, 0, fmt.Sprintf("failed to marshal request: %v", err), err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return c.fail(endpoint, 0, fmt.Sprintf("failed to create request: %v", err), err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("request", map[string]interface{}{"method": method, "endpoint": endpoint})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(endpoint, 0, fmt.Sprintf("failed to reach server: %v", err), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(endpoint, resp.StatusCode, fmt.Sprintf("failed to read response: %v", err), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("request failed with status %d", resp.StatusCode)
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Detail != "" {
			detail = eb.Detail
		}
		return c.fail(endpoint, resp.StatusCode, detail, nil)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return c.fail(endpoint, resp.StatusCode, fmt.Sprintf("failed to parse response: %v", err), err)
		}
	}
	return nil
}

// fail builds the APIError and notifies once. The single exit for every
// error path keeps the notify-once contract in one place.
func (c *Client) fail(endpoint string, status int, detail string, cause error) error {
	apiErr := &APIError{StatusCode: status, Endpoint: endpoint, Detail: detail, Cause: cause}
	c.logger.Error("exchange failed", map[string]interface{}{
		"endpoint": endpoint,
		"status":   status,
		"detail":   detail,
	})
	c.notifier.Send(notify.Notification{
		Type:    notify.Error,
		Title:   "Request failed",
		Message: detail,
	})
	return apiErr
}

// Health checks the backend's ok marker.
func (c *Client) Health() (*models.HealthStatus, error) {
	var out models.HealthStatus
	if err := c.do(http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tasks lists the registered task names.
func (c *Client) Tasks() (*models.TaskList, error) {
	var out models.TaskList
	if err := c.do(http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Versions lists the prompt versions stored for a task.
func (c *Client) Versions(task string) (*models.VersionList, error) {
	var out models.VersionList
	if err := c.do(http.MethodGet, "/tasks/"+task+"/versions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prompt fetches the stored template and constraints for a task version.
func (c *Client) Prompt(task, version string) (*models.PromptDetail, error) {
	var out models.PromptDetail
	endpoint := "/tasks/" + task + "/versions/" + version + "/prompt"
	if err := c.do(http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Models fetches the model catalog.
func (c *Client) Models() (*models.ModelCatalog, error) {
	var out models.ModelCatalog
	if err := c.do(http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// submitEndpoints maps async job kinds to their submission paths.
var submitEndpoints = map[models.JobKind]string{
	models.KindEvaluation: "/evaluate",
	models.KindComparison: "/compare",
	models.KindEvolution:  "/evolve",
}

// Submit posts a built payload for an async job kind and returns the
// backend's acknowledgement.
func (c *Client) Submit(kind models.JobKind, body interface{}) (*models.SubmitAck, error) {
	endpoint, ok := submitEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("no submission endpoint for kind %q", kind)
	}
	var ack models.SubmitAck
	if err := c.do(http.MethodPost, endpoint, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// GenerateTestCases runs the synchronous test-case generator. No job is
// created; the cases come back inline.
func (c *Client) GenerateTestCases(req models.GenerateRequest) (*models.GenerateResult, error) {
	var out models.GenerateResult
	if err := c.do(http.MethodPost, "/test-cases/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Job fetches one status snapshot for a submitted job.
func (c *Client) Job(id string) (*models.JobSnapshot, error) {
	var out models.JobSnapshot
	if err := c.do(http.MethodGet, "/jobs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
