// Package device defines the virtual input device the pointer endpoint
// forwards decoded commands to.
package device

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupported is returned when no virtual device can be created on this platform.
var ErrUnsupported = errors.New("virtual input devices are not supported on this platform")

// EventKind is the phase of a pointer interaction.
type EventKind int

const (
	Down EventKind = iota + 1
	Move
	Up
	Cancel
)

// String ...
func (k EventKind) String() string {
	switch k {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Cancel:
		return "cancel"
	default:
		return ""
	}
}

// Tool is what the pointer is operated with.
type Tool int

const (
	Pen Tool = iota + 1
	Eraser
	Touch
	Mouse
)

// String ...
func (t Tool) String() string {
	switch t {
	case Pen:
		return "pen"
	case Eraser:
		return "eraser"
	case Touch:
		return "touch"
	case Mouse:
		return "mouse"
	default:
		return ""
	}
}

// Buttons is a bitmask of pressed buttons, using the bit layout of the
// DOM PointerEvent.buttons property.
type Buttons uint8

const (
	ButtonPrimary   Buttons = 1 << 0
	ButtonSecondary Buttons = 1 << 1
	ButtonAuxiliary Buttons = 1 << 2
)

// Event is one pointer update. X and Y are normalized to [0, 1] over the
// target screen, Pressure to [0, 1], tilts are in degrees.
type Event struct {
	Kind     EventKind
	Tool     Tool
	X, Y     float64
	Pressure float64
	TiltX    float64
	TiltY    float64
	Buttons  Buttons
}

// Validate ...
func (e Event) Validate() error {
	if e.Kind.String() == "" {
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}
	if e.Tool.String() == "" {
		return fmt.Errorf("unknown tool %d", e.Tool)
	}
	if !inRange(e.X, 0, 1) || !inRange(e.Y, 0, 1) {
		return fmt.Errorf("position (%g, %g) outside [0, 1]", e.X, e.Y)
	}
	if !inRange(e.Pressure, 0, 1) {
		return fmt.Errorf("pressure %g outside [0, 1]", e.Pressure)
	}
	if !inRange(e.TiltX, -90, 90) || !inRange(e.TiltY, -90, 90) {
		return fmt.Errorf("tilt (%g, %g) outside [-90, 90]", e.TiltX, e.TiltY)
	}
	return nil
}

func inRange(v, min, max float64) bool {
	return !math.IsNaN(v) && v >= min && v <= max
}

// Device is a virtual input device owned by a single session.
type Device interface {
	Send(ev Event) error
	Close() error
}

// Opener creates a new Device. Each call must return an independent device.
type Opener func() (Device, error)
