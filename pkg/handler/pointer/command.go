package pointer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"tabletrelay/pkg/device"

	"github.com/fxamacker/cbor/v2"
)

// Command is one pointer update as sent by a client. Text frames carry it
// as JSON, binary frames as CBOR; both use the same field names.
type Command struct {
	Type        string  `json:"type" cbor:"type"`
	Event       string  `json:"event" cbor:"event"`
	PointerType string  `json:"pointer_type" cbor:"pointer_type"`
	PointerID   int64   `json:"pointer_id" cbor:"pointer_id"`
	X           float64 `json:"x" cbor:"x"`
	Y           float64 `json:"y" cbor:"y"`
	Pressure    float64 `json:"pressure" cbor:"pressure"`
	TiltX       float64 `json:"tilt_x" cbor:"tilt_x"`
	TiltY       float64 `json:"tilt_y" cbor:"tilt_y"`
	Buttons     uint8   `json:"buttons" cbor:"buttons"`

	// Seq is echoed back in an ack when set.
	Seq *uint64 `json:"seq,omitempty" cbor:"seq,omitempty"`
}

var decMode = mustDecMode()

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 4,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// DecodeJSON parses a command from a text frame.
func DecodeJSON(data []byte) (Command, error) {
	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, fmt.Errorf("decoding json command: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Command{}, fmt.Errorf("decoding json command: trailing data")
	}
	return cmd, nil
}

// DecodeCBOR parses a command from a binary frame.
func DecodeCBOR(data []byte) (Command, error) {
	var cmd Command
	if err := decMode.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("decoding cbor command: %w", err)
	}
	return cmd, nil
}

// EncodeCBOR is the inverse of DecodeCBOR, used by clients.
func EncodeCBOR(cmd Command) ([]byte, error) {
	return cbor.Marshal(cmd)
}

var eventKinds = map[string]device.EventKind{
	"down":   device.Down,
	"move":   device.Move,
	"up":     device.Up,
	"cancel": device.Cancel,
}

var tools = map[string]device.Tool{
	"pen":    device.Pen,
	"eraser": device.Eraser,
	"touch":  device.Touch,
	"mouse":  device.Mouse,
}

// DeviceEvent converts and validates the command.
func (c Command) DeviceEvent() (device.Event, error) {
	if c.Type != "" && c.Type != "pointer" {
		return device.Event{}, fmt.Errorf("unknown command type %q", c.Type)
	}

	kind, ok := eventKinds[c.Event]
	if !ok {
		return device.Event{}, fmt.Errorf("unknown event %q", c.Event)
	}

	// browsers report "" for synthetic events
	tool := device.Pen
	if c.PointerType != "" {
		if tool, ok = tools[c.PointerType]; !ok {
			return device.Event{}, fmt.Errorf("unknown pointer type %q", c.PointerType)
		}
	}

	ev := device.Event{
		Kind:     kind,
		Tool:     tool,
		X:        c.X,
		Y:        c.Y,
		Pressure: c.Pressure,
		TiltX:    c.TiltX,
		TiltY:    c.TiltY,
		Buttons:  device.Buttons(c.Buttons),
	}
	if err := ev.Validate(); err != nil {
		return device.Event{}, err
	}
	return ev, nil
}
