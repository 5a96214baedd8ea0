// Package devent defines the desktop input event model persisted in a
// dataset's event log. The kind set is closed: the writer and the
// analyzer both handle every kind exhaustively.
package devent

import (
	"errors"
	"fmt"
)

// Kind discriminates the event variants.
type Kind string

const (
	KindPointerMove  Kind = "pointer_move"
	KindPointerClick Kind = "pointer_click"
	KindKey          Kind = "key"
	KindScroll       Kind = "scroll"
)

// Kinds lists every event kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindPointerMove, KindPointerClick, KindKey, KindScroll}
}

// Known reports whether k is part of the closed kind set.
func (k Kind) Known() bool {
	switch k {
	case KindPointerMove, KindPointerClick, KindKey, KindScroll:
		return true
	}
	return false
}

// Button identifies a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
	ButtonOther  Button = "other"
)

// Event is one discrete input occurrence with a session-relative
// timestamp. Only the fields relevant to the kind are populated;
// every non-move kind also carries the last known pointer position so
// frames can be annotated without replaying moves.
type Event struct {
	TimestampMS int64   `json:"timestamp_ms"`
	Kind        Kind    `json:"kind"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Button      Button  `json:"button,omitempty"`
	Key         string  `json:"key,omitempty"`
	Pressed     bool    `json:"pressed,omitempty"`
	DeltaX      float64 `json:"delta_x,omitempty"`
	DeltaY      float64 `json:"delta_y,omitempty"`
}

// PointerMove constructs a pointer motion event.
func PointerMove(timestampMS int64, x, y float64) Event {
	return Event{TimestampMS: timestampMS, Kind: KindPointerMove, X: x, Y: y}
}

// PointerClick constructs a button press or release at the given position.
func PointerClick(timestampMS int64, button Button, x, y float64, pressed bool) Event {
	return Event{TimestampMS: timestampMS, Kind: KindPointerClick, Button: button, X: x, Y: y, Pressed: pressed}
}

// KeyEvent constructs a key press or release at the given pointer position.
func KeyEvent(timestampMS int64, key string, pressed bool, x, y float64) Event {
	return Event{TimestampMS: timestampMS, Kind: KindKey, Key: NormalizeKey(key), Pressed: pressed, X: x, Y: y}
}

// Scroll constructs a wheel event at the given pointer position.
func Scroll(timestampMS int64, dx, dy, x, y float64) Event {
	return Event{TimestampMS: timestampMS, Kind: KindScroll, DeltaX: dx, DeltaY: dy, X: x, Y: y}
}

// Validate checks the invariants every persisted record must satisfy.
func (e Event) Validate() error {
	if e.TimestampMS < 0 {
		return errors.New("timestamp must not be negative")
	}
	if !e.Kind.Known() {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	switch e.Kind {
	case KindPointerClick:
		switch e.Button {
		case ButtonLeft, ButtonRight, ButtonMiddle, ButtonOther:
		default:
			return fmt.Errorf("unknown pointer button %q", e.Button)
		}
	case KindKey:
		if e.Key == "" {
			return errors.New("key event must name a key")
		}
	}
	return nil
}

// ButtonFromIndex maps a numeric platform button index onto the closed
// button vocabulary.
func ButtonFromIndex(index int) Button {
	switch index {
	case 0:
		return ButtonLeft
	case 1:
		return ButtonRight
	case 2:
		return ButtonMiddle
	default:
		return ButtonOther
	}
}
