// Package action defines the discrete, modality-independent actions produced by
// the gesture detectors and consumed by the dispatcher.
package action

import (
	"encoding/json"
	"fmt"
)

// Kind identifies one of the fixed set of actions.
type Kind int

const (
	// None is the zero value and never dispatched.
	None Kind = iota
	// SwipeNext advances to the next item (finger swipes up).
	SwipeNext
	// SwipePrev goes back to the previous item (finger swipes down).
	SwipePrev
	// Tap is a short tap at the centre of the screen.
	Tap
	// DoubleTap is two centre taps spaced by the dispatcher's double-tap gap.
	DoubleTap
	// TapAt is a short tap at a normalized screen position.
	TapAt
	// LongPress is a long-duration tap at the centre of the screen.
	LongPress
	// VolumeDown lowers the media volume one step.
	VolumeDown
)

var kindNames = map[Kind]string{
	SwipeNext:  "swipe_next",
	SwipePrev:  "swipe_prev",
	Tap:        "tap",
	DoubleTap:  "double_tap",
	TapAt:      "tap_at",
	LongPress:  "long_press",
	VolumeDown: "volume_down",
}

var kindLabels = map[Kind]string{
	SwipeNext:  "Next",
	SwipePrev:  "Previous",
	Tap:        "Tap",
	DoubleTap:  "Like",
	TapAt:      "Tap at",
	LongPress:  "Save",
	VolumeDown: "Volume down",
}

// String returns the wire name of the kind, e.g. "swipe_next".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "none"
}

// ParseKind converts a wire name back into a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown action %q", name)
}

// Event is an immutable action value. X and Y are only meaningful for TapAt
// and are normalized to [0,1].
type Event struct {
	Kind Kind
	X    float64
	Y    float64
}

// New returns an event of the given kind with no position.
func New(k Kind) Event {
	return Event{Kind: k}
}

// At returns a TapAt event at the normalized position (x, y), clamped to [0,1].
func At(x, y float64) Event {
	return Event{Kind: TapAt, X: clamp01(x), Y: clamp01(y)}
}

// IsZero reports whether the event carries no action.
func (e Event) IsZero() bool {
	return e.Kind == None
}

// Label is a short human-readable name used for status text.
func (e Event) Label() string {
	label, ok := kindLabels[e.Kind]
	if !ok {
		return "none"
	}
	if e.Kind == TapAt {
		return fmt.Sprintf("%s (%.2f, %.2f)", label, e.X, e.Y)
	}
	return label
}

func (e Event) String() string {
	if e.Kind == TapAt {
		return fmt.Sprintf("%s(%.2f,%.2f)", e.Kind, e.X, e.Y)
	}
	return e.Kind.String()
}

// envelope is the JSON form of an Event.
type envelope struct {
	Type string   `json:"type"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
}

// MarshalJSON encodes the event as {"type": "...", "x": .., "y": ..}.
func (e Event) MarshalJSON() ([]byte, error) {
	env := envelope{Type: e.Kind.String()}
	if e.Kind == TapAt {
		x, y := e.X, e.Y
		env.X = &x
		env.Y = &y
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the envelope produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal action envelope: %w", err)
	}

	k, err := ParseKind(env.Type)
	if err != nil {
		return err
	}

	if k != TapAt {
		*e = New(k)
		return nil
	}
	if env.X == nil || env.Y == nil {
		return fmt.Errorf("tap_at requires x and y")
	}
	*e = At(*env.X, *env.Y)
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
