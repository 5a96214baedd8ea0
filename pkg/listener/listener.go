// Package listener captures system-wide input events, stamps them
// against the session clock anchor, and hands them to the dataset
// writer. The tap is a process-wide resource: it is acquired once per
// session and owned exclusively by the Listener.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/invisibility-inc/devent/pkg/devent"
	"github.com/invisibility-inc/devent/pkg/permissions"
	"github.com/invisibility-inc/devent/pkg/timebase"
)

// Appender receives stamped events for durable append. The dataset
// writer satisfies this.
type Appender interface {
	Append(devent.Event) error
}

// Options configure an input capture listener.
type Options struct {
	Anchor *timebase.Anchor
	Sink   Appender
	Source Source
	Logger *slog.Logger

	// LookupEnv overrides permission probing, for tests.
	LookupEnv permissions.LookupEnvFunc
}

// Listener subscribes to system input events for the duration of one
// session. Events are enqueued to the sink in delivery order; the
// delivery callback never touches disk directly.
type Listener struct {
	anchor *timebase.Anchor
	sink   Appender
	source Source
	logger *slog.Logger
	lookup permissions.LookupEnvFunc

	mu       sync.Mutex
	started  bool
	stopping bool
	cancel   context.CancelFunc
	err      error
	sinkErr  error
	count    int
	lastTS   int64
	lastX    float64
	lastY    float64

	done chan struct{}
}

// New validates options and constructs a listener.
func New(opts Options) (*Listener, error) {
	if opts.Anchor == nil {
		return nil, errors.New("clock anchor must be provided")
	}
	if opts.Sink == nil {
		return nil, errors.New("event sink must be provided")
	}
	source := opts.Source
	if source == nil {
		source = SyntheticSource{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		anchor: opts.Anchor,
		sink:   opts.Sink,
		source: source,
		logger: logger,
		lookup: opts.LookupEnv,
		done:   make(chan struct{}),
	}, nil
}

// Start acquires the input tap and begins asynchronous delivery.
// A denied accessibility permission fails the start; the session must
// fail loudly rather than silently record nothing.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errors.New("listener already started")
	}

	probe := permissions.ProbeAccessibility(l.lookup)
	if probe.Status == permissions.StatusDenied {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, probe.Message)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.started = true

	go l.run(streamCtx)
	return nil
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	streamErr := l.source.Stream(ctx, l.deliver)

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.sinkErr != nil:
		// Writer rejection keeps its own identity (overload, closed),
		// it is not a lost tap.
		l.err = l.sinkErr
	case l.stopping:
		// Orderly stop: cancellation is the expected outcome.
		if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
			l.err = streamErr
		}
	case streamErr != nil && !errors.Is(streamErr, context.Canceled):
		l.err = fmt.Errorf("%w: %v", ErrCaptureLost, streamErr)
	default:
		// The source returned on its own while the session was live.
		l.err = ErrCaptureLost
	}
}

// deliver stamps one raw event and enqueues it. Runs on the source's
// delivery goroutine.
func (l *Listener) deliver(raw RawEvent) error {
	stamp := l.anchor.Stamp()

	l.mu.Lock()
	// Clamp against the per-producer monotonic guarantee; the anchor
	// itself never goes backwards but a clamp keeps the invariant
	// explicit at the point of record creation.
	if stamp < l.lastTS {
		stamp = l.lastTS
	}
	l.lastTS = stamp
	if raw.Kind == devent.KindPointerMove {
		l.lastX, l.lastY = raw.X, raw.Y
	}
	x, y := l.lastX, l.lastY
	l.mu.Unlock()

	var event devent.Event
	switch raw.Kind {
	case devent.KindPointerMove:
		event = devent.PointerMove(stamp, raw.X, raw.Y)
	case devent.KindPointerClick:
		if raw.X != 0 || raw.Y != 0 {
			x, y = raw.X, raw.Y
		}
		event = devent.PointerClick(stamp, raw.Button, x, y, raw.Pressed)
	case devent.KindKey:
		event = devent.KeyEvent(stamp, raw.Key, raw.Pressed, x, y)
	case devent.KindScroll:
		event = devent.Scroll(stamp, raw.DeltaX, raw.DeltaY, x, y)
	default:
		l.logger.Warn("dropping event of unknown kind", "kind", string(raw.Kind))
		return nil
	}

	if err := l.sink.Append(event); err != nil {
		wrapped := fmt.Errorf("append input event: %w", err)
		l.mu.Lock()
		if l.sinkErr == nil {
			l.sinkErr = wrapped
		}
		l.mu.Unlock()
		return wrapped
	}

	l.mu.Lock()
	l.count++
	l.mu.Unlock()
	return nil
}

// Stop signals no-more-events-accepted and waits, bounded, for the
// in-flight delivery to finish draining to the writer.
func (l *Listener) Stop(timeout time.Duration) error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return nil
	}
	l.stopping = true
	cancel := l.cancel
	l.mu.Unlock()

	cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Done is closed once the delivery goroutine has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Err reports why delivery ended. It is nil after an orderly stop and
// non-nil when the source failed or the writer rejected an event.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Count reports how many events have been handed to the writer.
func (l *Listener) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
