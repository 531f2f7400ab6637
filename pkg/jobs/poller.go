package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/psantana5/promptmesh/pkg/logging"
	"github.com/psantana5/promptmesh/pkg/models"
	"github.com/psantana5/promptmesh/pkg/notify"
)

// Sentinel errors classifying how a polling session ended.
var (
	ErrJobFailed   = errors.New("job failed")
	ErrJobTimeout  = errors.New("job timed out")
	ErrEmptyResult = errors.New("job completed with no results")
	ErrPolling     = errors.New("status polling failed")
	ErrSuperseded  = errors.New("polling session superseded")
)

// UnknownErrorFallback is shown when the server reports failure without a
// message.
const UnknownErrorFallback = "Unknown error"

// Defaults: a 2-second cadence with a 60-poll ceiling bounds one session
// to roughly two minutes, generous for multi-model backend runs but never
// unbounded.
const (
	DefaultInterval = 2 * time.Second
	DefaultMaxPolls = 60
)

// StatusFetcher fetches one job snapshot. Implemented by the API gateway.
type StatusFetcher interface {
	Job(id string) (*models.JobSnapshot, error)
}

// Dispatcher routes a terminal result to its renderer.
type Dispatcher interface {
	Dispatch(kind models.JobKind, results json.RawMessage) error
}

// ProgressFunc observes each successful status fetch.
type ProgressFunc func(jobID string, status models.JobStatus, progress int)

// Poller runs bounded polling sessions against the backend. Only one
// session is active at a time; its tracker supersedes older sessions.
type Poller struct {
	fetcher    StatusFetcher
	router     Dispatcher
	notifier   notify.Notifier
	tracker    *Tracker
	interval   time.Duration
	maxPolls   int
	onProgress ProgressFunc
	logger     *logging.Logger
}

// PollerOption tunes a poller. Tests shrink the interval and the ceiling.
type PollerOption func(*Poller)

// WithInterval overrides the tick cadence.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithMaxPolls overrides the poll ceiling.
func WithMaxPolls(n int) PollerOption {
	return func(p *Poller) { p.maxPolls = n }
}

// WithProgress installs a progress observer.
func WithProgress(fn ProgressFunc) PollerOption {
	return func(p *Poller) { p.onProgress = fn }
}

// NewPoller creates a poller over the given collaborators.
func NewPoller(fetcher StatusFetcher, router Dispatcher, notifier notify.Notifier, tracker *Tracker, logger *logging.Logger, opts ...PollerOption) *Poller {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	if logger == nil {
		logger = logging.NewLogger(logging.WARN, false)
	}
	p := &Poller{
		fetcher:  fetcher,
		router:   router,
		notifier: notifier,
		tracker:  tracker,
		interval: DefaultInterval,
		maxPolls: DefaultMaxPolls,
		logger:   logger.WithField("component", "poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tracker exposes the session tracker, shared with the submitter.
func (p *Poller) Tracker() *Tracker {
	return p.tracker
}

// Session is one polling session for one submitted job. It is created in
// the Polling state and settles into exactly one terminal state, or stops
// in place when superseded by a newer session.
type Session struct {
	JobID string
	Kind  models.JobKind

	generation uint64
	done       chan struct{}

	mu    sync.Mutex
	state models.SessionState
	err   error
}

// State returns the session's current state.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the session settles and returns its classification:
// nil for a routed completion, else one of the sentinel errors.
func (s *Session) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// transition moves the session to a terminal state, validating against the
// session state table.
func (s *Session) transition(to models.SessionState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if terr := models.ValidateSessionTransition(s.state, to); terr != nil {
		// A superseded session may settle after the table says it is
		// done; keep the first outcome.
		return
	}
	s.state = to
	s.err = err
}

// supersede records that a newer session took over. The session keeps its
// Polling state: supersession is not an outcome of its own.
func (s *Session) supersede() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil && !models.IsTerminalSessionState(s.state) {
		s.err = ErrSuperseded
	}
}

// Start begins polling jobID, superseding any active session. The returned
// session settles in the background; Wait() joins it.
func (p *Poller) Start(kind models.JobKind, jobID string) *Session {
	ctx, gen := p.tracker.Begin(context.Background())
	s := &Session{
		JobID:      jobID,
		Kind:       kind,
		generation: gen,
		done:       make(chan struct{}),
		state:      models.SessionPolling,
	}
	p.logger.Debug("session started", map[string]interface{}{
		"job_id":     jobID,
		"kind":       string(kind),
		"generation": gen,
	})
	go p.run(ctx, s)
	return s
}

// run is the session loop: strictly sequential ticks, ownership checked
// both before the fetch and before acting on its outcome.
func (p *Poller) run(ctx context.Context, s *Session) {
	defer close(s.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			s.supersede()
			return
		case <-ticker.C:
		}
		if !p.tracker.Owns(s.generation) {
			s.supersede()
			return
		}

		polls++
		if polls > p.maxPolls {
			// The 61st tick never fetches.
			s.transition(models.SessionTimedOut, ErrJobTimeout)
			p.notifier.Send(notify.Notification{
				Type:    notify.Warning,
				Title:   "Timeout",
				Message: "Job timed out",
				JobID:   s.JobID,
			})
			return
		}

		snap, err := p.fetcher.Job(s.JobID)

		// The fetch is a suspension point: a new submission may have
		// taken over while it was in flight.
		if ctx.Err() != nil || !p.tracker.Owns(s.generation) {
			s.supersede()
			return
		}

		if err != nil {
			// The gateway already notified; re-reporting here would
			// double up.
			s.transition(models.SessionPollingError, fmt.Errorf("%w: %v", ErrPolling, err))
			p.logger.Error("status fetch failed", map[string]interface{}{
				"job_id": s.JobID,
				"error":  err.Error(),
			})
			return
		}

		if p.onProgress != nil {
			p.onProgress(s.JobID, snap.Status, snap.Progress)
		}

		switch snap.Status {
		case models.JobStatusCompleted:
			p.complete(s, snap)
			return
		case models.JobStatusFailed:
			msg := snap.Error
			if msg == "" {
				msg = UnknownErrorFallback
			}
			s.transition(models.SessionFailed, fmt.Errorf("%w: %s", ErrJobFailed, msg))
			p.notifier.Send(notify.Notification{
				Type:    notify.Error,
				Title:   "Job failed",
				Message: msg,
				JobID:   s.JobID,
			})
			return
		default:
			// started, running, or anything unknown: keep polling.
		}
	}
}

// complete handles a completed snapshot: guard against empty results, then
// route exactly once.
func (p *Poller) complete(s *Session, snap *models.JobSnapshot) {
	if models.EmptyResults(snap.Results) {
		s.transition(models.SessionCompleted, ErrEmptyResult)
		p.notifier.Send(notify.Notification{
			Type:    notify.Warning,
			Title:   "No results",
			Message: "Job completed but returned no results",
			JobID:   s.JobID,
		})
		return
	}

	s.transition(models.SessionCompleted, nil)
	if p.router != nil {
		if err := p.router.Dispatch(s.Kind, snap.Results); err != nil {
			// Wiring bug, not a job outcome: log it, keep the session
			// Completed.
			p.logger.Error("result dispatch failed", map[string]interface{}{
				"job_id": s.JobID,
				"kind":   string(s.Kind),
				"error":  err.Error(),
			})
		}
	}
	p.notifier.Send(notify.Notification{
		Type:    notify.Success,
		Title:   "Job completed",
		Message: fmt.Sprintf("%s finished", s.Kind),
		JobID:   s.JobID,
	})
}
