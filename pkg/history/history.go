package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/psantana5/promptmesh/pkg/logging"
	"github.com/psantana5/promptmesh/pkg/models"
)

// HistoryKey is the well-known slot every backend stores the list under.
const HistoryKey = "promptmesh.history"

// Entry is one past submission, recorded once at submission time and never
// mutated. The outcome of the job is deliberately not part of the record.
type Entry struct {
	ID        int64             `json:"id"`
	Kind      models.JobKind    `json:"kind"`
	JobID     string            `json:"job_id,omitempty"`
	Details   models.JobDetails `json:"details"`
	Timestamp time.Time         `json:"timestamp"`
}

// Store is the append-only submission log, newest first, mirrored into an
// injected KV slot on every append.
type Store struct {
	mu      sync.Mutex
	kv      KV
	entries []Entry
	lastID  int64
	logger  *logging.Logger
}

// NewStore creates a history store over kv and loads the persisted list.
// Corrupt persisted bytes yield an empty list, never a startup failure.
func NewStore(kv KV, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewLogger(logging.WARN, false)
	}
	s := &Store{
		kv:     kv,
		logger: logger.WithField("component", "history"),
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

// loadAll populates memory from the persisted slot.
func (s *Store) loadAll() error {
	data, ok, err := s.kv.Load(HistoryKey)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if !ok {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("discarding malformed history", map[string]interface{}{"error": err.Error()})
		return nil
	}
	s.entries = entries
	for _, e := range entries {
		if e.ID > s.lastID {
			s.lastID = e.ID
		}
	}
	return nil
}

// nextID issues a monotonically unique id: the current unix millisecond,
// bumped past the last issued id when submissions land in the same tick.
func (s *Store) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Append records one submission at the head of the list and persists the
// whole list. The assigned entry is returned.
func (s *Store) Append(kind models.JobKind, jobID string, details models.JobDetails) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		ID:        s.nextID(),
		Kind:      kind,
		JobID:     jobID,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	s.entries = append([]Entry{entry}, s.entries...)

	data, err := json.Marshal(s.entries)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.kv.Save(HistoryKey, data); err != nil {
		return Entry{}, fmt.Errorf("failed to persist history: %w", err)
	}

	s.logger.Debug("appended history entry", map[string]interface{}{
		"id":   entry.ID,
		"kind": string(kind),
	})
	return entry, nil
}

// Entries returns a snapshot of the list, newest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Entry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Get returns the entry with the given id.
func (s *Store) Get(id int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len reports the number of recorded submissions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
