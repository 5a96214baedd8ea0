// Package screencap supervises the external video capture process.
// The encoder runs as a child process writing the session's video
// container; the controller owns its lifecycle: launch, a liveness
// probe on the output file, graceful stop with a bounded wait, and
// crash detection.
package screencap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/invisibility-inc/devent/pkg/permissions"
)

// State enumerates the controller lifecycle.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StateStopping
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Options configure a capture controller.
type Options struct {
	Launcher      Launcher
	LaunchTimeout time.Duration
	StopTimeout   time.Duration
	Logger        *slog.Logger

	// LookupEnv overrides permission probing, for tests.
	LookupEnv permissions.LookupEnvFunc
}

// StopResult reports how the capture process ended.
type StopResult struct {
	// Unclean is set when the process had to be force-killed; the video
	// is still kept as a best-effort artifact.
	Unclean bool
}

// Controller drives exactly one capture process per session.
type Controller struct {
	launcher      Launcher
	launchTimeout time.Duration
	stopTimeout   time.Duration
	logger        *slog.Logger
	lookup        permissions.LookupEnvFunc

	mu            sync.Mutex
	state         State
	proc          Process
	exitErr       error
	stopRequested bool
	done          chan struct{}
}

// NewController validates options and constructs a controller in Idle.
func NewController(opts Options) (*Controller, error) {
	if opts.LaunchTimeout <= 0 {
		return nil, errors.New("launch timeout must be positive")
	}
	if opts.StopTimeout <= 0 {
		return nil, errors.New("stop timeout must be positive")
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = FFmpegLauncher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		launcher:      launcher,
		launchTimeout: opts.LaunchTimeout,
		stopTimeout:   opts.StopTimeout,
		logger:        logger,
		lookup:        opts.LookupEnv,
	}, nil
}

// Start spawns the capture process and blocks until the liveness probe
// confirms frames are being written, or fails. A second Start while
// launching or running fails with ErrAlreadyRecording and has no side
// effect.
func (c *Controller) Start(ctx context.Context, spec LaunchSpec) error {
	if spec.OutputPath == "" {
		return errors.New("output path must not be empty")
	}
	if spec.FrameRate <= 0 {
		return errors.New("frame rate must be positive")
	}

	c.mu.Lock()
	switch c.state {
	case StateLaunching, StateRunning, StateStopping:
		c.mu.Unlock()
		return ErrAlreadyRecording
	}

	probe := permissions.ProbeScreenRecording(c.lookup)
	if probe.Status == permissions.StatusDenied {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPermissionDenied, probe.Message)
	}

	c.state = StateLaunching
	c.stopRequested = false
	c.exitErr = nil
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	proc, err := c.launcher.Launch(ctx, spec)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		close(done)
		c.mu.Unlock()
		return fmt.Errorf("launch capture process: %w", err)
	}

	c.mu.Lock()
	c.proc = proc
	c.mu.Unlock()
	c.logger.Debug("capture process launched", "pid", proc.PID(), "output", spec.OutputPath)

	go c.monitor(proc, done)

	if err := c.awaitOutput(ctx, spec.OutputPath, done); err != nil {
		c.failLaunch(proc, done)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCrashed {
		return c.crashErrorLocked()
	}
	c.state = StateRunning
	c.logger.Info("capture running", "pid", proc.PID(), "output", spec.OutputPath)
	return nil
}

// monitor reaps the process and classifies unexpected exits.
func (c *Controller) monitor(proc Process, done chan struct{}) {
	err := proc.Wait()

	c.mu.Lock()
	c.exitErr = err
	if !c.stopRequested && (c.state == StateLaunching || c.state == StateRunning) {
		c.state = StateCrashed
		c.logger.Error("capture process exited unexpectedly", "error", err)
	}
	c.mu.Unlock()
	close(done)
}

// awaitOutput is the liveness probe: the launch is confirmed once the
// output container exists and has received its first bytes.
func (c *Controller) awaitOutput(ctx context.Context, path string, procDone <-chan struct{}) error {
	ready := func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Size() > 0
	}
	if ready() {
		return nil
	}

	var fsEvents chan fsnotify.Event
	var fsErrors chan error
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if addErr := watcher.Add(filepath.Dir(path)); addErr == nil {
			fsEvents = watcher.Events
			fsErrors = watcher.Errors
		}
	}

	deadline := time.NewTimer(c.launchTimeout)
	defer deadline.Stop()
	// Polling backstop for hosts where the watcher misses size growth.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-procDone:
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.crashErrorLocked()
		case <-deadline.C:
			return ErrLaunchTimeout
		case <-ticker.C:
			if ready() {
				return nil
			}
		case <-fsEvents:
			if ready() {
				return nil
			}
		case watchErr := <-fsErrors:
			c.logger.Warn("output watcher error", "error", watchErr)
		}
	}
}

// failLaunch tears down a process whose launch could not be confirmed.
func (c *Controller) failLaunch(proc Process, done chan struct{}) {
	c.mu.Lock()
	c.stopRequested = true
	c.mu.Unlock()

	_ = proc.Kill()
	select {
	case <-done:
	case <-time.After(c.stopTimeout):
	}

	c.mu.Lock()
	c.state = StateCrashed
	c.mu.Unlock()
}

// Stop requests a graceful shutdown and waits, bounded, for the
// process to flush and exit. If it does not, the process is killed and
// the result is flagged unclean.
func (c *Controller) Stop() (StopResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateRunning, StateLaunching:
	case StateCrashed:
		defer c.mu.Unlock()
		return StopResult{}, c.crashErrorLocked()
	default:
		c.mu.Unlock()
		return StopResult{}, ErrNotRunning
	}
	c.state = StateStopping
	c.stopRequested = true
	proc := c.proc
	done := c.done
	c.mu.Unlock()

	if err := proc.Quit(); err != nil {
		c.logger.Warn("graceful quit failed", "error", err)
	}

	var result StopResult
	select {
	case <-done:
	case <-time.After(c.stopTimeout):
		c.logger.Warn("capture process ignored quit; killing", "pid", proc.PID())
		_ = proc.Kill()
		select {
		case <-done:
		case <-time.After(c.stopTimeout):
			// The process is unkillable; report unclean and move on.
		}
		result.Unclean = true
	}

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
	c.logger.Info("capture stopped", "unclean", result.Unclean)
	return result, nil
}

// Done is closed when the capture process has exited, however that happened.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err reports the crash error when the controller is in Crashed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCrashed {
		return nil
	}
	return c.crashErrorLocked()
}

func (c *Controller) crashErrorLocked() error {
	if c.exitErr != nil {
		return fmt.Errorf("%w: %v", ErrCaptureCrashed, c.exitErr)
	}
	return ErrCaptureCrashed
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
