package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/invisibility-inc/devent/pkg/devent"
	"github.com/invisibility-inc/devent/pkg/timebase"
)

type recordingSink struct {
	mu     sync.Mutex
	events []devent.Event
	fail   error
}

func (s *recordingSink) Append(event devent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) snapshot() []devent.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]devent.Event, len(s.events))
	copy(out, s.events)
	return out
}

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

// scriptedSource emits a fixed sequence then blocks until cancelled.
func scriptedSource(script []RawEvent) SourceFunc {
	return func(ctx context.Context, emit func(RawEvent) error) error {
		for _, raw := range script {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(raw); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

func TestListenerDeliversAllEventsInOrder(t *testing.T) {
	script := []RawEvent{
		{Kind: devent.KindPointerMove, X: 0, Y: 0},
		{Kind: devent.KindPointerMove, X: 3, Y: 4},
		{Kind: devent.KindKey, Key: "a", Pressed: true},
		{Kind: devent.KindPointerClick, Button: devent.ButtonLeft, Pressed: true},
		{Kind: devent.KindScroll, DeltaY: -2},
	}
	sink := &recordingSink{}
	lst, err := New(Options{
		Anchor: timebase.Start(),
		Sink:   sink,
		Source: scriptedSource(script),
		LookupEnv: fakeLookup{"DEVENT_ACCESSIBILITY": "granted"}.get,
	})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	if err := lst.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, func() bool { return lst.Count() == len(script) })

	if err := lst.Stop(time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := lst.Err(); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	events := sink.snapshot()
	if len(events) != len(script) {
		t.Fatalf("expected %d events, got %d", len(script), len(events))
	}
	var lastTS int64
	for i, event := range events {
		if event.TimestampMS < lastTS {
			t.Fatalf("event %d timestamp decreased", i)
		}
		lastTS = event.TimestampMS
	}
	if events[0].Kind != devent.KindPointerMove || events[2].Kind != devent.KindKey {
		t.Fatalf("delivery order not preserved: %+v", events)
	}
	// Every non-move event inherits the last known pointer position.
	if events[2].X != 3 || events[2].Y != 4 {
		t.Fatalf("key event missing pointer position: %+v", events[2])
	}
	if events[3].X != 3 || events[3].Y != 4 {
		t.Fatalf("click missing pointer position: %+v", events[3])
	}
	if events[4].X != 3 || events[4].Y != 4 {
		t.Fatalf("scroll missing pointer position: %+v", events[4])
	}
}

func TestListenerPermissionDenied(t *testing.T) {
	sink := &recordingSink{}
	lst, err := New(Options{
		Anchor:    timebase.Start(),
		Sink:      sink,
		Source:    scriptedSource(nil),
		LookupEnv: fakeLookup{"DEVENT_ACCESSIBILITY": "denied"}.get,
	})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	if err := lst.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denial, got %v", err)
	}
}

func TestListenerReportsCaptureLost(t *testing.T) {
	sink := &recordingSink{}
	source := SourceFunc(func(ctx context.Context, emit func(RawEvent) error) error {
		return nil // tap died on its own
	})
	lst, err := New(Options{Anchor: timebase.Start(), Sink: sink, Source: source,
		LookupEnv: fakeLookup{}.get})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	if err := lst.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-lst.Done():
	case <-time.After(time.Second):
		t.Fatalf("listener did not finish")
	}
	if !errors.Is(lst.Err(), ErrCaptureLost) {
		t.Fatalf("expected ErrCaptureLost, got %v", lst.Err())
	}
}

func TestListenerSurfacesSinkFailure(t *testing.T) {
	boom := errors.New("disk full")
	sink := &recordingSink{fail: boom}
	lst, err := New(Options{
		Anchor:    timebase.Start(),
		Sink:      sink,
		Source:    scriptedSource([]RawEvent{{Kind: devent.KindKey, Key: "a", Pressed: true}}),
		LookupEnv: fakeLookup{}.get,
	})
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	if err := lst.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-lst.Done():
	case <-time.After(time.Second):
		t.Fatalf("listener did not finish")
	}
	if !errors.Is(lst.Err(), boom) {
		t.Fatalf("expected sink failure to surface, got %v", lst.Err())
	}
	if errors.Is(lst.Err(), ErrCaptureLost) {
		t.Fatalf("sink failure must not masquerade as a lost tap")
	}
}

func TestSyntheticSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- SyntheticSource{Interval: time.Millisecond}.Stream(ctx, func(RawEvent) error {
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("synthetic source did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}
