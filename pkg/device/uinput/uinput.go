// Package uinput implements device.Device on top of the Linux uinput module.
//
// A GraphicTablet is a freshly created kernel input device per session. It
// reports absolute positions in [0, absMax], so the compositor maps it onto
// the whole screen like a directly attached drawing tablet.
package uinput

import (
	"bytes"
	"encoding/binary"
	"math"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/device"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnLeft       = 0x110
	btnRight      = 0x111
	btnMiddle     = 0x112
	btnToolPen    = 0x140
	btnToolRubber = 0x141
	btnToolFinger = 0x145
	btnTouch      = 0x14a
	btnStylus     = 0x14b

	absX        = 0x00
	absY        = 0x01
	absPressure = 0x18
	absTiltX    = 0x1a
	absTiltY    = 0x1b

	inputPropDirect = 0x01

	busVirtual = 0x06
)

// ioctl requests from linux/uinput.h.
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiSetPropBit = 0x4004556e
)

const (
	absMax      = 65535
	pressureMax = 65535
	tiltMax     = 90
)

// Opener returns a device.Opener creating one device per call.
func Opener(cfg config.DeviceConfig) device.Opener {
	return func() (device.Device, error) {
		return Open(cfg)
	}
}

type absAxis struct {
	code     uint16
	min, max int32
}

type capabilities struct {
	events []uint16
	keys   []uint16
	axes   []absAxis
	props  []uint16
}

func capabilitiesFor(kind config.DeviceKind) capabilities {
	if kind == config.DeviceMouse {
		return capabilities{
			events: []uint16{evSyn, evKey, evAbs},
			keys:   []uint16{btnLeft, btnRight, btnMiddle},
			axes: []absAxis{
				{absX, 0, absMax},
				{absY, 0, absMax},
			},
		}
	}

	return capabilities{
		events: []uint16{evSyn, evKey, evAbs},
		keys:   []uint16{btnToolPen, btnToolRubber, btnToolFinger, btnTouch, btnStylus},
		axes: []absAxis{
			{absX, 0, absMax},
			{absY, 0, absMax},
			{absPressure, 0, pressureMax},
			{absTiltX, -tiltMax, tiltMax},
			{absTiltY, -tiltMax, tiltMax},
		},
		props: []uint16{inputPropDirect},
	}
}

// userDev mirrors struct uinput_user_dev.
type userDev struct {
	Name         [80]byte
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FFEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

func encodeUserDev(name string, caps capabilities) []byte {
	var dev userDev
	copy(dev.Name[:len(dev.Name)-1], name)
	dev.Bustype = busVirtual
	dev.Vendor = 0x1701
	dev.Product = 0x0001
	dev.Version = 1
	for _, axis := range caps.axes {
		dev.Absmin[axis.code] = axis.min
		dev.Absmax[axis.code] = axis.max
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.NativeEndian, &dev)
	return buf.Bytes()
}

// inputEvent is struct input_event without its timestamp, which the
// kernel fills in.
type inputEvent struct {
	typ   uint16
	code  uint16
	value int32
}

// encodeEvents serializes events; timevalSize is the size of struct
// timeval on the target platform.
func encodeEvents(events []inputEvent, timevalSize int) []byte {
	buf := make([]byte, 0, len(events)*(timevalSize+8))
	for _, ev := range events {
		buf = append(buf, make([]byte, timevalSize)...)
		buf = binary.NativeEndian.AppendUint16(buf, ev.typ)
		buf = binary.NativeEndian.AppendUint16(buf, ev.code)
		buf = binary.NativeEndian.AppendUint32(buf, uint32(ev.value))
	}
	return buf
}

// translator turns pointer events into input events. It tracks which tool
// is in proximity so that switching from pen to eraser releases the pen.
type translator struct {
	kind config.DeviceKind
	tool device.Tool
}

func newTranslator(kind config.DeviceKind) *translator {
	return &translator{kind: kind}
}

func (t *translator) translate(ev device.Event) []inputEvent {
	var out []inputEvent
	if t.kind == config.DeviceMouse {
		out = t.translateMouse(ev)
	} else {
		out = t.translateTablet(ev)
	}
	return append(out, inputEvent{evSyn, synReport, 0})
}

func (t *translator) translateMouse(ev device.Event) []inputEvent {
	out := []inputEvent{
		{evAbs, absX, scale(ev.X, absMax)},
		{evAbs, absY, scale(ev.Y, absMax)},
	}

	buttons := ev.Buttons
	switch ev.Kind {
	case device.Down:
		if buttons == 0 {
			buttons = device.ButtonPrimary
		}
	case device.Up, device.Cancel:
		buttons = 0
	}

	return append(out,
		key(btnLeft, buttons&device.ButtonPrimary != 0),
		key(btnRight, buttons&device.ButtonSecondary != 0),
		key(btnMiddle, buttons&device.ButtonAuxiliary != 0),
	)
}

func (t *translator) translateTablet(ev device.Event) []inputEvent {
	var out []inputEvent

	if t.tool != 0 && t.tool != ev.Tool {
		out = append(out, t.leave()...)
	}

	if ev.Kind == device.Cancel {
		return append(out, t.leave()...)
	}

	if t.tool == 0 {
		out = append(out, key(toolKey(ev.Tool), true))
		t.tool = ev.Tool
	}

	out = append(out,
		inputEvent{evAbs, absX, scale(ev.X, absMax)},
		inputEvent{evAbs, absY, scale(ev.Y, absMax)},
	)

	switch ev.Kind {
	case device.Up:
		// fingers have no hover state
		if ev.Tool == device.Touch {
			return append(out, t.leave()...)
		}
		return append(out,
			inputEvent{evAbs, absPressure, 0},
			key(btnTouch, false),
		)
	case device.Down:
		out = append(out, key(btnTouch, true))
	default:
		out = append(out, key(btnTouch, ev.Buttons&device.ButtonPrimary != 0))
	}

	return append(out,
		inputEvent{evAbs, absPressure, scale(ev.Pressure, pressureMax)},
		inputEvent{evAbs, absTiltX, int32(math.Round(ev.TiltX))},
		inputEvent{evAbs, absTiltY, int32(math.Round(ev.TiltY))},
		key(btnStylus, ev.Buttons&device.ButtonSecondary != 0),
	)
}

// leave takes the current tool out of proximity.
func (t *translator) leave() []inputEvent {
	if t.tool == 0 {
		return nil
	}
	out := []inputEvent{
		{evAbs, absPressure, 0},
		key(btnTouch, false),
		key(toolKey(t.tool), false),
	}
	t.tool = 0
	return out
}

func toolKey(tool device.Tool) uint16 {
	switch tool {
	case device.Eraser:
		return btnToolRubber
	case device.Touch:
		return btnToolFinger
	default:
		return btnToolPen
	}
}

func key(code uint16, pressed bool) inputEvent {
	if pressed {
		return inputEvent{evKey, code, 1}
	}
	return inputEvent{evKey, code, 0}
}

func scale(v float64, max int32) int32 {
	return int32(math.Round(v * float64(max)))
}
