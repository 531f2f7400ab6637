package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/notify"
)

// recorder captures notifications for assertions.
type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recorder) Send(n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recorder) last() notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

func TestClientDecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tasks" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.TaskList{Tasks: []string{"sentiment", "summarize"}})
	}))
	defer srv.Close()

	rec := &recorder{}
	client := NewClient(srv.URL, "", rec, nil)

	list, err := client.Tasks()
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(list.Tasks) != 2 {
		t.Errorf("tasks = %v", list.Tasks)
	}
	if rec.count() != 0 {
		t.Errorf("success must not notify, got %d", rec.count())
	}
}

func TestClientBearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(models.HealthStatus{Status: "ok"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key", nil, nil)
	if _, err := client.Health(); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClientServerDetailWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Task not found"})
	}))
	defer srv.Close()

	rec := &recorder{}
	client := NewClient(srv.URL, "", rec, nil)

	_, err := client.Versions("nope")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("error = %v, want ErrAPI", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not *APIError: %v", err)
	}
	if apiErr.Detail != "Task not found" {
		t.Errorf("detail = %q", apiErr.Detail)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestClientGenericDetailFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", nil, nil)
	_, err := client.Tasks()
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v", err)
	}
	if apiErr.Detail != "request failed with status 502" {
		t.Errorf("detail = %q", apiErr.Detail)
	}
}

func TestClientNotifiesExactlyOncePerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
	}))
	defer srv.Close()

	rec := &recorder{}
	client := NewClient(srv.URL, "", rec, nil)

	client.Tasks()
	if rec.count() != 1 {
		t.Fatalf("notifications = %d, want 1", rec.count())
	}
	if rec.last().Type != notify.Error {
		t.Errorf("type = %v, want Error", rec.last().Type)
	}

	client.Tasks()
	if rec.count() != 2 {
		t.Errorf("second failure notifications = %d, want 2", rec.count())
	}
}

func TestClientNeverRetries(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", nil, nil)
	client.Tasks()
	if requests != 1 {
		t.Errorf("requests = %d, want exactly 1", requests)
	}
}

func TestClientTransportFailureNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	rec := &recorder{}
	client := NewClient(srv.URL, "", rec, nil)

	_, err := client.Health()
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("error = %v, want ErrAPI", err)
	}
	if rec.count() != 1 {
		t.Errorf("notifications = %d, want 1", rec.count())
	}
}

func TestClientSubmitRoutesByKind(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		json.NewEncoder(w).Encode(models.SubmitAck{JobID: "j-1", Status: "started"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", nil, nil)

	tests := []struct {
		kind models.JobKind
		path string
	}{
		{models.KindEvaluation, "/api/evaluate"},
		{models.KindComparison, "/api/compare"},
		{models.KindEvolution, "/api/evolve"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			ack, err := client.Submit(tt.kind, map[string]string{})
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if gotPath != tt.path {
				t.Errorf("path = %s, want %s", gotPath, tt.path)
			}
			if ack.JobID != "j-1" {
				t.Errorf("job id = %s", ack.JobID)
			}
		})
	}

	if _, err := client.Submit(models.KindTestCaseGeneration, nil); err == nil {
		t.Error("submitting the synchronous kind must fail")
	}
}

func TestClientJobSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/j-9" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"running","progress":40}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", nil, nil)
	snap, err := client.Job("j-9")
	if err != nil {
		t.Fatalf("Job() error = %v", err)
	}
	if snap.Status != models.JobStatusRunning || snap.Progress != 40 {
		t.Errorf("snapshot = %+v", snap)
	}
}
