package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/invisibility-inc/devent/pkg/devent"
)

// DefaultCloseTimeout bounds how long Close waits for the consumer
// loop to drain when no explicit timeout is configured.
const DefaultCloseTimeout = 5 * time.Second

// WriterOptions configure the event log writer.
type WriterOptions struct {
	// QueueCapacity bounds the append queue between producers and the
	// single consumer goroutine.
	QueueCapacity int

	// EnqueueTimeout is the backpressure ceiling: a producer blocked on
	// a full queue for longer than this fails with ErrWriterOverloaded.
	EnqueueTimeout time.Duration

	// CloseTimeout bounds Close's wait for the consumer to drain.
	CloseTimeout time.Duration

	Logger *slog.Logger

	// Sink overrides the event log file, for tests.
	Sink io.Writer
}

// Writer appends input events to a dataset's event log. Producers hand
// events to a bounded queue; one consumer goroutine performs all disk
// I/O, so the persisted order is the append order. The queue channel
// is never closed: shutdown is signalled through quit so a producer
// mid-send can never hit a closed channel.
type Writer struct {
	file         *os.File
	encoder      *json.Encoder
	queue        chan devent.Event
	timeout      time.Duration
	closeTimeout time.Duration
	logger       *slog.Logger

	quit chan struct{}
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	count    int
	writeErr error
}

// NewWriter opens the event log for appending and starts the consumer loop.
func NewWriter(layout Layout, opts WriterOptions) (*Writer, error) {
	if opts.QueueCapacity <= 0 {
		return nil, errors.New("queue capacity must be positive")
	}
	if opts.EnqueueTimeout <= 0 {
		return nil, errors.New("enqueue timeout must be positive")
	}
	closeTimeout := opts.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = DefaultCloseTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var file *os.File
	sink := opts.Sink
	if sink == nil {
		var err error
		file, err = os.OpenFile(layout.EventLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%w: open event log: %v", ErrPersistence, err)
		}
		sink = file
	}

	w := &Writer{
		file:         file,
		encoder:      devent.AppendEncoder(sink),
		queue:        make(chan devent.Event, opts.QueueCapacity),
		timeout:      opts.EnqueueTimeout,
		closeTimeout: closeTimeout,
		logger:       logger,
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go w.consume()
	return w, nil
}

// Append hands one event to the writer. It blocks briefly under
// backpressure and fails with ErrWriterOverloaded once the ceiling is
// hit. A producer still blocked when Close begins fails with
// ErrWriterClosed instead of panicking.
func (w *Writer) Append(event devent.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("reject event: %w", err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	if w.writeErr != nil {
		err := w.writeErr
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	select {
	case w.queue <- event:
		return nil
	case <-w.quit:
		return ErrWriterClosed
	default:
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case w.queue <- event:
		return nil
	case <-timer.C:
		return ErrWriterOverloaded
	case <-w.quit:
		return ErrWriterClosed
	}
}

// consume is the single writer goroutine draining the queue to disk.
// On quit it drains whatever is buffered, then exits.
func (w *Writer) consume() {
	defer close(w.done)
	for {
		select {
		case event := <-w.queue:
			w.persist(event)
		case <-w.quit:
			for {
				select {
				case event := <-w.queue:
					w.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) persist(event devent.Event) {
	if err := w.encoder.Encode(event); err != nil {
		w.mu.Lock()
		if w.writeErr == nil {
			w.writeErr = fmt.Errorf("%w: append event: %v", ErrPersistence, err)
		}
		w.mu.Unlock()
		w.logger.Error("event append failed", "error", err)
		return
	}
	w.mu.Lock()
	w.count++
	w.mu.Unlock()
}

// Close stops accepting events, waits (bounded) for the queue to drain
// to disk, syncs, and returns the number of persisted records. A
// consumer stuck on an unresponsive sink surfaces as ErrPersistence
// once the close timeout trips.
func (w *Writer) Close() (int, error) {
	w.mu.Lock()
	if w.closed {
		count, err := w.count, w.writeErr
		w.mu.Unlock()
		return count, err
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)

	timer := time.NewTimer(w.closeTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
	case <-timer.C:
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.writeErr == nil {
			w.writeErr = fmt.Errorf("%w: event log consumer did not drain within %s", ErrPersistence, w.closeTimeout)
		}
		return w.count, w.writeErr
	}

	var syncErr, closeErr error
	if w.file != nil {
		syncErr = w.file.Sync()
		closeErr = w.file.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr == nil && syncErr != nil {
		w.writeErr = fmt.Errorf("%w: sync event log: %v", ErrPersistence, syncErr)
	}
	if w.writeErr == nil && closeErr != nil {
		w.writeErr = fmt.Errorf("%w: close event log: %v", ErrPersistence, closeErr)
	}
	return w.count, w.writeErr
}

// Count reports the number of records persisted so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Err reports the first persistence failure observed by the consumer loop.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}
