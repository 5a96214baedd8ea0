package screencap

import "errors"

// ErrAlreadyRecording indicates a start was attempted while a capture
// process is launching or running.
var ErrAlreadyRecording = errors.New("capture already recording")

// ErrPermissionDenied indicates the OS refused screen recording access.
var ErrPermissionDenied = errors.New("screen recording permission denied")

// ErrLaunchTimeout indicates the capture process never confirmed it was
// writing frames within the probe window.
var ErrLaunchTimeout = errors.New("capture process launch timed out")

// ErrCaptureCrashed indicates the capture process exited on its own
// while a session was still recording.
var ErrCaptureCrashed = errors.New("capture process crashed")

// ErrNotRunning indicates a stop was requested with no live capture process.
var ErrNotRunning = errors.New("capture not running")
