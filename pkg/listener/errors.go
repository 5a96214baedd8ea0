package listener

import "errors"

// ErrPermissionDenied indicates the OS refused access to the system-wide input tap.
var ErrPermissionDenied = errors.New("input tap permission denied")

// ErrCaptureLost indicates the underlying system event source terminated
// while a session was still recording.
var ErrCaptureLost = errors.New("input event source lost")

// ErrStopTimeout indicates in-flight events did not drain within the
// bounded stop window.
var ErrStopTimeout = errors.New("listener stop timed out")
