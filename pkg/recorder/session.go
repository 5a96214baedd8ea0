package recorder

import (
	"time"

	"github.com/invisibility-inc/devent/pkg/screencap"
)

// State enumerates the coordinator lifecycle. Idle is reachable again
// after every terminal outcome: a new session may then start.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateFinalizing State = "finalizing"
)

// Session describes one bounded recording attempt. It is created when
// a start command is accepted, mutated only by the coordinator, and
// logically closed on completion or failure; the dataset directory
// persists.
type Session struct {
	ID        string
	DatasetID string
	Dir       string
	StartedAt time.Time
	Requested time.Duration
	Monitor   screencap.Monitor
}

// Status is the read-only observation surface for the external layer.
type Status struct {
	State   State
	Session *Session
}

// Notifier receives the single terminal signal for a session attempt.
// Exactly one of the two methods is invoked per attempt, exactly once.
type Notifier interface {
	RecordingComplete(datasetPath string)
	RecordingError(code, message string)
}

// NotifierFuncs adapts plain functions to the Notifier interface.
type NotifierFuncs struct {
	Complete func(datasetPath string)
	Error    func(code, message string)
}

func (n NotifierFuncs) RecordingComplete(datasetPath string) {
	if n.Complete != nil {
		n.Complete(datasetPath)
	}
}

func (n NotifierFuncs) RecordingError(code, message string) {
	if n.Error != nil {
		n.Error(code, message)
	}
}
