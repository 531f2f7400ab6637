package jobs

import (
	"fmt"

	"github.com/psantana5/promptmesh/pkg/history"
	"github.com/psantana5/promptmesh/pkg/logging"
	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/notify"
)

// Gateway is the slice of the API client the submitter drives.
type Gateway interface {
	StatusFetcher
	Submit(kind models.JobKind, body interface{}) (*models.SubmitAck, error)
	GenerateTestCases(req models.GenerateRequest) (*models.GenerateResult, error)
}

// Submitter orchestrates one submission end to end: post the validated
// payload, record the history entry, start the polling session. On any
// gateway failure nothing is recorded and no poller starts.
type Submitter struct {
	gateway  Gateway
	history  *history.Store
	poller   *Poller
	notifier notify.Notifier
	logger   *logging.Logger
}

// NewSubmitter wires a submitter. history may be nil when the caller does
// not record submissions (the watch command attaches to existing jobs).
func NewSubmitter(gateway Gateway, hist *history.Store, poller *Poller, notifier notify.Notifier, logger *logging.Logger) *Submitter {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if logger == nil {
		logger = logging.NewLogger(logging.WARN, false)
	}
	return &Submitter{
		gateway:  gateway,
		history:  hist,
		poller:   poller,
		notifier: notifier,
		logger:   logger.WithField("component", "submitter"),
	}
}

// Submit posts an async submission and returns its polling session.
func (s *Submitter) Submit(sub *models.Submission) (*Session, error) {
	if !sub.Kind.Async() {
		return nil, fmt.Errorf("kind %q is synchronous, use Generate", sub.Kind)
	}

	ack, err := s.gateway.Submit(sub.Kind, sub.Body)
	if err != nil {
		// Gateway already notified; nothing was recorded.
		return nil, err
	}

	s.logger.Info("job submitted", map[string]interface{}{
		"kind":   string(sub.Kind),
		"job_id": ack.JobID,
	})
	s.notifier.Send(notify.Notification{
		Type:    notify.Info,
		Title:   "Submitted",
		Message: fmt.Sprintf("%s job accepted", sub.Kind),
		JobID:   ack.JobID,
	})

	if s.history != nil {
		if _, err := s.history.Append(sub.Kind, ack.JobID, sub.Details); err != nil {
			// The job is already running server-side; losing the
			// history record must not abandon it.
			s.logger.Warn("failed to record history entry", map[string]interface{}{
				"job_id": ack.JobID,
				"error":  err.Error(),
			})
		}
	}

	return s.poller.Start(sub.Kind, ack.JobID), nil
}

// Generate runs the synchronous test-case generation path. No job id, no
// history entry, no polling session.
func (s *Submitter) Generate(sub *models.Submission) (*models.GenerateResult, error) {
	req, ok := sub.Body.(*models.GenerateRequest)
	if !ok {
		return nil, fmt.Errorf("kind %q is not a generation submission", sub.Kind)
	}
	result, err := s.gateway.GenerateTestCases(*req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("test cases generated", map[string]interface{}{
		"task_type": req.TaskType,
		"count":     len(result.TestCases),
	})
	return result, nil
}

// Watch attaches a polling session to an already-submitted job.
func (s *Submitter) Watch(kind models.JobKind, jobID string) *Session {
	return s.poller.Start(kind, jobID)
}
