// Package timebase provides the shared monotonic time origin for a
// recording session. Every event timestamp and the session duration are
// expressed relative to a single Anchor so the video stream and the
// input event stream can be correlated after the fact.
package timebase

import "time"

// Anchor pins a session's time origin. Elapsed readings use Go's
// monotonic clock, so wall-clock adjustments during a session do not
// perturb recorded deltas.
type Anchor struct {
	origin time.Time
}

// Start anchors a new time origin at the instant it is called.
func Start() *Anchor {
	return &Anchor{origin: time.Now()}
}

// StartAt anchors an origin at the supplied instant. Readings stay
// monotonic only when the instant carries a monotonic component, which
// makes this suitable for tests that fabricate origins.
func StartAt(origin time.Time) *Anchor {
	return &Anchor{origin: origin}
}

// Now returns the elapsed time since the origin. It never decreases
// and never returns a negative duration.
func (a *Anchor) Now() time.Duration {
	elapsed := time.Since(a.origin)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Stamp returns the elapsed time since the origin in milliseconds,
// which is the timestamp unit persisted in event logs.
func (a *Anchor) Stamp() int64 {
	return a.Now().Milliseconds()
}

// Origin reports the wall-clock instant the anchor was started, used
// for dataset metadata only, never for deltas.
func (a *Anchor) Origin() time.Time {
	return a.origin
}
