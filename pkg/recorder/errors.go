package recorder

import (
	"errors"

	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/listener"
	"github.com/invisibility-inc/devent/pkg/screencap"
)

// ErrConfigInvalid indicates a start request with a bad monitor or duration.
var ErrConfigInvalid = errors.New("recording configuration invalid")

// ErrAlreadyRecording indicates a start while a session is active.
var ErrAlreadyRecording = errors.New("a recording session is already active")

// ErrNotRecording indicates a stop with no session in progress.
var ErrNotRecording = errors.New("no recording session in progress")

// ErrorCode maps a session failure onto the stable code reported in
// the recording_error signal.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, listener.ErrPermissionDenied), errors.Is(err, screencap.ErrPermissionDenied):
		return "PermissionDenied"
	case errors.Is(err, screencap.ErrLaunchTimeout):
		return "LaunchTimeout"
	case errors.Is(err, screencap.ErrCaptureCrashed):
		return "Crashed"
	case errors.Is(err, listener.ErrCaptureLost):
		return "CaptureLost"
	case errors.Is(err, dataset.ErrWriterOverloaded):
		return "WriterOverloaded"
	case errors.Is(err, dataset.ErrPersistence):
		return "PersistenceFailure"
	case errors.Is(err, ErrConfigInvalid):
		return "ConfigInvalid"
	case errors.Is(err, ErrAlreadyRecording):
		return "AlreadyRecording"
	default:
		return "Internal"
	}
}
