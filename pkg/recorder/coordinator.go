// Package recorder coordinates one recording session at a time: it
// anchors the session clock, starts the screen capture controller and
// the input listener together, supervises them until a stop trigger or
// fatal error, and hands the resulting files to the dataset layer.
// All state transitions are serialized through a single mutex; the
// external layer only ever observes them read-only.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invisibility-inc/devent/pkg/analysis"
	"github.com/invisibility-inc/devent/pkg/config"
	"github.com/invisibility-inc/devent/pkg/dataset"
	"github.com/invisibility-inc/devent/pkg/listener"
	"github.com/invisibility-inc/devent/pkg/permissions"
	"github.com/invisibility-inc/devent/pkg/screencap"
	"github.com/invisibility-inc/devent/pkg/timebase"
)

// Options configure a session coordinator.
type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Notifier Notifier

	// Launcher and Source override the capture process and event tap,
	// for tests and alternative encoders.
	Launcher screencap.Launcher
	Source   listener.Source

	// LookupEnv overrides permission probing, for tests.
	LookupEnv permissions.LookupEnvFunc

	Clock func() time.Time
}

// StartRequest carries the per-session knobs of a start command.
type StartRequest struct {
	// DurationSeconds bounds the session; zero means record until
	// stopped (or the configured default when one is set).
	DurationSeconds int
	// Monitor overrides the configured capture target.
	Monitor string
	// OutputDir overrides the configured datasets directory.
	OutputDir string
}

// Coordinator owns the session state machine. One session may be
// active at a time; every attempt ends in exactly one terminal signal.
type Coordinator struct {
	cfg      config.Config
	logger   *slog.Logger
	notifier Notifier
	launcher screencap.Launcher
	source   listener.Source
	lookup   permissions.LookupEnvFunc
	clock    func() time.Time

	mu       sync.Mutex
	state    State
	session  *Session
	stopCh   chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
}

// New validates options, sweeps crash leftovers from the datasets
// directory, and returns an idle coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Notifier == nil {
		return nil, errors.New("notifier must be provided")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	marked, err := dataset.SweepIncomplete(opts.Config.Paths.DatasetsDir)
	if err != nil {
		return nil, fmt.Errorf("sweep datasets directory: %w", err)
	}
	for _, dir := range marked {
		logger.Warn("marked abandoned dataset", "dir", dir)
	}

	return &Coordinator{
		cfg:      opts.Config,
		logger:   logger,
		notifier: opts.Notifier,
		launcher: opts.Launcher,
		source:   opts.Source,
		lookup:   opts.LookupEnv,
		clock:    clock,
		state:    StateIdle,
	}, nil
}

// Start begins a session. Configuration and precondition errors are
// rejected synchronously and never start a session; everything after
// the session is live surfaces through the notifier instead. Start
// returns as soon as the session is accepted.
func (c *Coordinator) Start(req StartRequest) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return Session{}, ErrAlreadyRecording
	}

	if req.DurationSeconds < 0 {
		return Session{}, fmt.Errorf("%w: duration must not be negative", ErrConfigInvalid)
	}
	durationSeconds := req.DurationSeconds
	if durationSeconds == 0 {
		durationSeconds = c.cfg.Capture.DurationSeconds
	}

	monitorID := req.Monitor
	if monitorID == "" {
		monitorID = c.cfg.Capture.Monitor
	}
	var monitor screencap.Monitor
	if monitorID == "" {
		monitors := screencap.ListMonitors()
		if len(monitors) == 0 {
			return Session{}, fmt.Errorf("%w: no capturable display found", ErrConfigInvalid)
		}
		monitor = monitors[0]
	} else {
		found, ok := screencap.FindMonitor(monitorID)
		if !ok {
			return Session{}, fmt.Errorf("%w: unknown monitor %q", ErrConfigInvalid, monitorID)
		}
		monitor = found
	}

	datasetsDir := req.OutputDir
	if datasetsDir == "" {
		datasetsDir = c.cfg.Paths.DatasetsDir
	}
	if err := os.MkdirAll(datasetsDir, 0o755); err != nil {
		return Session{}, fmt.Errorf("%w: ensure datasets directory: %v", ErrConfigInvalid, err)
	}
	datasetID, err := dataset.ResolveID(datasetsDir, c.clock())
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	dir := filepath.Join(datasetsDir, datasetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Session{}, fmt.Errorf("%w: create dataset directory: %v", ErrConfigInvalid, err)
	}

	anchor := timebase.Start()
	session := &Session{
		ID:        uuid.NewString(),
		DatasetID: datasetID,
		Dir:       dir,
		StartedAt: anchor.Origin(),
		Requested: time.Duration(durationSeconds) * time.Second,
		Monitor:   monitor,
	}

	c.session = session
	c.state = StateRecording
	c.stopCh = make(chan struct{})
	c.stopOnce = &sync.Once{}
	c.done = make(chan struct{})

	c.logger.Info("recording session starting",
		"session_id", session.ID,
		"dataset", session.DatasetID,
		"monitor", monitor.ID,
		"duration_seconds", durationSeconds)

	go c.run(session, anchor)
	return *session, nil
}

// Stop requests finalize. It is valid while Recording (including the
// bring-up window) and tolerated while Finalizing; the final result
// still arrives via the notifier.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateRecording:
		c.stopOnce.Do(func() { close(c.stopCh) })
		return nil
	case StateFinalizing:
		return nil
	default:
		return ErrNotRecording
	}
}

// Status reports the current state and the active session, if any.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := Status{State: c.state}
	if c.session != nil {
		copied := *c.session
		status.Session = &copied
	}
	return status
}

// Done exposes the completion of the current attempt, for callers that
// block until the terminal signal has been emitted.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Monitors enumerates capture targets without recording side effects.
func (c *Coordinator) Monitors() []screencap.Monitor {
	return screencap.ListMonitors()
}

// Analyze computes the aggregate report for a dataset. With an empty
// path, the most recent completed dataset is used. It is independent
// of the session state machine.
func (c *Coordinator) Analyze(dir string) (analysis.Report, error) {
	if dir == "" {
		recent, err := dataset.MostRecent(c.cfg.Paths.DatasetsDir)
		if err != nil {
			return analysis.Report{}, err
		}
		dir = recent
	}
	return analysis.Analyze(dir)
}

// run drives one attempt from bring-up to its terminal signal.
func (c *Coordinator) run(session *Session, anchor *timebase.Anchor) {
	layout := dataset.NewLayout(session.Dir, c.cfg.Capture.VideoFormat)
	stopTimeout := time.Duration(c.cfg.Capture.StopTimeoutSeconds) * time.Second

	writer, err := dataset.NewWriter(layout, dataset.WriterOptions{
		QueueCapacity:  c.cfg.Capture.QueueCapacity,
		EnqueueTimeout: time.Duration(c.cfg.Capture.EnqueueTimeoutMillis) * time.Millisecond,
		CloseTimeout:   stopTimeout,
		Logger:         c.logger,
	})
	if err != nil {
		c.finish(session, nil, err)
		return
	}

	lst, err := listener.New(listener.Options{
		Anchor:    anchor,
		Sink:      writer,
		Source:    c.source,
		Logger:    c.logger,
		LookupEnv: c.lookup,
	})
	if err != nil {
		writer.Close()
		c.finish(session, nil, err)
		return
	}

	ctrl, err := screencap.NewController(screencap.Options{
		Launcher:      c.launcher,
		LaunchTimeout: time.Duration(c.cfg.Capture.LaunchTimeoutSeconds) * time.Second,
		StopTimeout:   stopTimeout,
		Logger:        c.logger,
		LookupEnv:     c.lookup,
	})
	if err != nil {
		writer.Close()
		c.finish(session, nil, err)
		return
	}

	// Both components must reach their running state before the
	// session is live; if either fails, the other is stopped and no
	// dataset is retained.
	if err := lst.Start(context.Background()); err != nil {
		writer.Close()
		c.finish(session, nil, err)
		return
	}
	if err := ctrl.Start(context.Background(), screencap.LaunchSpec{
		Monitor:    session.Monitor,
		OutputPath: layout.VideoPath,
		FrameRate:  c.cfg.Capture.FrameRate,
	}); err != nil {
		lst.Stop(stopTimeout)
		writer.Close()
		c.finish(session, nil, err)
		return
	}

	var deadlineC <-chan time.Time
	if session.Requested > 0 {
		deadline := time.NewTimer(session.Requested)
		defer deadline.Stop()
		deadlineC = deadline.C
	}

	var fatal error
	select {
	case <-c.stopCh:
		c.logger.Info("stop requested", "session_id", session.ID)
	case <-deadlineC:
		c.logger.Info("requested duration reached", "session_id", session.ID)
	case <-ctrl.Done():
		fatal = ctrl.Err()
	case <-lst.Done():
		fatal = lst.Err()
	}

	c.setState(StateFinalizing)

	// Orderly teardown with bounded waits everywhere: capture process
	// first so the container gets flushed, then the listener drains its
	// in-flight events, then the writer syncs the log.
	var stopResult screencap.StopResult
	if fatal == nil {
		result, stopErr := ctrl.Stop()
		if stopErr != nil {
			fatal = stopErr
		}
		stopResult = result
	} else {
		// The session already failed; best-effort kill of whichever
		// component is still alive.
		if _, err := ctrl.Stop(); err != nil && !errors.Is(err, screencap.ErrNotRunning) {
			c.logger.Debug("capture teardown after failure", "error", err)
		}
	}

	if err := lst.Stop(stopTimeout); err != nil {
		c.logger.Warn("listener drain timed out", "error", err)
	}
	if fatal == nil && lst.Err() != nil {
		fatal = lst.Err()
	}

	eventCount, writeErr := writer.Close()
	if fatal == nil && writeErr != nil {
		fatal = writeErr
	}

	if fatal != nil {
		c.finish(session, nil, fatal)
		return
	}

	meta := dataset.Metadata{
		SessionID:   session.ID,
		StartedAt:   session.StartedAt.UTC(),
		DurationMS:  anchor.Stamp(),
		Monitor:     session.Monitor.ID,
		FrameRate:   c.cfg.Capture.FrameRate,
		EventCount:  eventCount,
		UncleanStop: stopResult.Unclean,
	}
	if err := dataset.Finalize(layout, meta); err != nil {
		c.finish(session, nil, err)
		return
	}

	c.finish(session, &meta, nil)
}

// finish emits the terminal signal exactly once and returns the
// coordinator to Idle. Failed attempts never leave a directory that
// could be mistaken for a dataset.
func (c *Coordinator) finish(session *Session, meta *dataset.Metadata, fatal error) {
	if fatal != nil {
		c.discard(session)
		code := ErrorCode(fatal)
		c.logger.Error("recording session failed",
			"session_id", session.ID, "code", code, "error", fatal)
		c.notifier.RecordingError(code, fatal.Error())
	} else {
		c.logger.Info("recording session complete",
			"session_id", session.ID,
			"dataset", session.Dir,
			"duration_ms", meta.DurationMS,
			"events", meta.EventCount)
		c.notifier.RecordingComplete(session.Dir)
	}

	c.mu.Lock()
	c.state = StateIdle
	c.session = nil
	done := c.done
	c.mu.Unlock()
	close(done)
}

// discard removes a failed attempt's directory when it holds no video
// data, or marks it incomplete so no reader treats it as a dataset.
func (c *Coordinator) discard(session *Session) {
	layout := dataset.NewLayout(session.Dir, c.cfg.Capture.VideoFormat)
	if info, err := os.Stat(layout.VideoPath); err == nil && info.Size() > 0 {
		if err := os.Rename(session.Dir, session.Dir+dataset.IncompleteSuffix); err != nil {
			c.logger.Warn("could not mark incomplete dataset", "dir", session.Dir, "error", err)
		}
		return
	}
	if err := os.RemoveAll(session.Dir); err != nil {
		c.logger.Warn("could not remove failed session directory", "dir", session.Dir, "error", err)
	}
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
