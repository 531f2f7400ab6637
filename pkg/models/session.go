package models

import "fmt"

// SessionState tracks the client-side polling session for one submitted job.
type SessionState string

const (
	SessionIdle         SessionState = "idle"          // No job submitted yet
	SessionPolling      SessionState = "polling"       // Actively polling job status
	SessionCompleted    SessionState = "completed"     // Server reported the job completed
	SessionFailed       SessionState = "failed"        // Server reported the job failed
	SessionTimedOut     SessionState = "timed_out"     // Poll ceiling exhausted
	SessionPollingError SessionState = "polling_error" // A status fetch failed
)

// validSessionTransitions maps from-state to allowed to-states.
var validSessionTransitions = map[SessionState]map[SessionState]bool{
	SessionIdle: {
		SessionPolling: true, // Idle → Polling (submission acknowledged)
	},
	SessionPolling: {
		SessionCompleted:    true, // Polling → Completed (terminal server status)
		SessionFailed:       true, // Polling → Failed (terminal server status)
		SessionTimedOut:     true, // Polling → TimedOut (61st tick, no fetch)
		SessionPollingError: true, // Polling → PollingError (fetch failed)
	},
	// Terminal states (no transitions allowed)
	SessionCompleted:    {},
	SessionFailed:       {},
	SessionTimedOut:     {},
	SessionPollingError: {},
}

// ValidateSessionTransition checks if a session state transition is valid.
func ValidateSessionTransition(from, to SessionState) error {
	allowed, exists := validSessionTransitions[from]
	if !exists {
		return fmt.Errorf("unknown session state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid session transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminalSessionState returns true if no further transitions are allowed.
func IsTerminalSessionState(state SessionState) bool {
	return state == SessionCompleted || state == SessionFailed ||
		state == SessionTimedOut || state == SessionPollingError
}
