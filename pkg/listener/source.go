package listener

import (
	"context"
	"time"

	"github.com/invisibility-inc/devent/pkg/devent"
)

// RawEvent is one input occurrence as delivered by the platform,
// before the listener stamps it against the session clock.
type RawEvent struct {
	Kind    devent.Kind
	X, Y    float64
	Button  devent.Button
	Key     string
	Pressed bool
	DeltaX  float64
	DeltaY  float64
}

// Source delivers raw system input events until the context is
// cancelled. Implementations must emit events in the order the
// platform delivered them.
type Source interface {
	Stream(ctx context.Context, emit func(RawEvent) error) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, emit func(RawEvent) error) error

// Stream calls the underlying function.
func (f SourceFunc) Stream(ctx context.Context, emit func(RawEvent) error) error {
	return f(ctx, emit)
}

// SyntheticSource is the default source on hosts without a native
// event tap. It cycles a deterministic pointer path with occasional
// clicks, keys, and scrolls at a fixed cadence until cancelled, which
// keeps recording sessions and automated tests working end to end.
type SyntheticSource struct {
	Interval time.Duration
}

var syntheticScript = []RawEvent{
	{Kind: devent.KindPointerMove, X: 100, Y: 100},
	{Kind: devent.KindPointerMove, X: 160, Y: 180},
	{Kind: devent.KindPointerClick, Button: devent.ButtonLeft, X: 160, Y: 180, Pressed: true},
	{Kind: devent.KindPointerClick, Button: devent.ButtonLeft, X: 160, Y: 180, Pressed: false},
	{Kind: devent.KindKey, Key: "h", Pressed: true},
	{Kind: devent.KindKey, Key: "h", Pressed: false},
	{Kind: devent.KindPointerMove, X: 240, Y: 140},
	{Kind: devent.KindScroll, DeltaX: 0, DeltaY: -3, X: 240, Y: 140},
}

// Stream emits the scripted timeline repeatedly until the context ends.
func (s SyntheticSource) Stream(ctx context.Context, emit func(RawEvent) error) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	index := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := emit(syntheticScript[index%len(syntheticScript)]); err != nil {
				return err
			}
			index++
		}
	}
}
