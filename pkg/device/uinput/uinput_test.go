package uinput

import (
	"encoding/binary"
	"reflect"
	"testing"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/device"
)

var syn = inputEvent{evSyn, synReport, 0}

func TestTranslator_PenStroke(t *testing.T) {
	t.Parallel()

	tr := newTranslator(config.DeviceTablet)

	down := tr.translate(device.Event{Kind: device.Down, Tool: device.Pen, X: 0.5, Y: 0.25, Pressure: 0.5, TiltX: 10, TiltY: -10.4, Buttons: device.ButtonPrimary})
	wantDown := []inputEvent{
		{evKey, btnToolPen, 1},
		{evAbs, absX, 32768},
		{evAbs, absY, 16384},
		{evKey, btnTouch, 1},
		{evAbs, absPressure, 32768},
		{evAbs, absTiltX, 10},
		{evAbs, absTiltY, -10},
		{evKey, btnStylus, 0},
		syn,
	}
	if !reflect.DeepEqual(down, wantDown) {
		t.Errorf("down = %v\nwant %v", down, wantDown)
	}

	hover := tr.translate(device.Event{Kind: device.Move, Tool: device.Pen, X: 1, Y: 0, Buttons: device.ButtonSecondary})
	wantHover := []inputEvent{
		{evAbs, absX, 65535},
		{evAbs, absY, 0},
		{evKey, btnTouch, 0},
		{evAbs, absPressure, 0},
		{evAbs, absTiltX, 0},
		{evAbs, absTiltY, 0},
		{evKey, btnStylus, 1},
		syn,
	}
	if !reflect.DeepEqual(hover, wantHover) {
		t.Errorf("hover = %v\nwant %v", hover, wantHover)
	}

	up := tr.translate(device.Event{Kind: device.Up, Tool: device.Pen, X: 1, Y: 0})
	wantUp := []inputEvent{
		{evAbs, absX, 65535},
		{evAbs, absY, 0},
		{evAbs, absPressure, 0},
		{evKey, btnTouch, 0},
		syn,
	}
	if !reflect.DeepEqual(up, wantUp) {
		t.Errorf("up = %v\nwant %v", up, wantUp)
	}
	if tr.tool != device.Pen {
		t.Errorf("pen should stay in proximity after up, tool = %s", tr.tool)
	}
}

func TestTranslator_ToolSwitch(t *testing.T) {
	t.Parallel()

	tr := newTranslator(config.DeviceTablet)
	tr.translate(device.Event{Kind: device.Move, Tool: device.Pen})

	got := tr.translate(device.Event{Kind: device.Move, Tool: device.Eraser})
	wantPrefix := []inputEvent{
		{evAbs, absPressure, 0},
		{evKey, btnTouch, 0},
		{evKey, btnToolPen, 0},
		{evKey, btnToolRubber, 1},
	}
	if len(got) < len(wantPrefix) || !reflect.DeepEqual(got[:len(wantPrefix)], wantPrefix) {
		t.Errorf("tool switch = %v\nwant prefix %v", got, wantPrefix)
	}
	if tr.tool != device.Eraser {
		t.Errorf("tool = %s; want eraser", tr.tool)
	}
}

func TestTranslator_Cancel(t *testing.T) {
	t.Parallel()

	tr := newTranslator(config.DeviceTablet)

	if got := tr.translate(device.Event{Kind: device.Cancel, Tool: device.Pen}); !reflect.DeepEqual(got, []inputEvent{syn}) {
		t.Errorf("cancel without tool = %v; want only SYN_REPORT", got)
	}

	tr.translate(device.Event{Kind: device.Down, Tool: device.Pen})
	got := tr.translate(device.Event{Kind: device.Cancel, Tool: device.Pen})
	want := []inputEvent{
		{evAbs, absPressure, 0},
		{evKey, btnTouch, 0},
		{evKey, btnToolPen, 0},
		syn,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cancel = %v\nwant %v", got, want)
	}
}

func TestTranslator_TouchUpLeavesProximity(t *testing.T) {
	t.Parallel()

	tr := newTranslator(config.DeviceTablet)
	tr.translate(device.Event{Kind: device.Down, Tool: device.Touch, X: 0.1, Y: 0.1})

	got := tr.translate(device.Event{Kind: device.Up, Tool: device.Touch, X: 0.1, Y: 0.1})
	last := got[len(got)-2]
	if last != (inputEvent{evKey, btnToolFinger, 0}) {
		t.Errorf("touch up should release BTN_TOOL_FINGER, got %v", got)
	}
	if tr.tool != 0 {
		t.Errorf("tool = %s; want none", tr.tool)
	}
}

func TestTranslator_Mouse(t *testing.T) {
	t.Parallel()

	tr := newTranslator(config.DeviceMouse)

	tests := []struct {
		name  string
		ev    device.Event
		left  int32
		right int32
	}{
		{"down without buttons clicks left", device.Event{Kind: device.Down, Tool: device.Mouse}, 1, 0},
		{"move with right button", device.Event{Kind: device.Move, Tool: device.Mouse, Buttons: device.ButtonSecondary}, 0, 1},
		{"up releases all", device.Event{Kind: device.Up, Tool: device.Mouse, Buttons: device.ButtonPrimary}, 0, 0},
	}

	for _, tt := range tests {
		got := tr.translate(tt.ev)
		if len(got) != 6 {
			t.Fatalf("%s: got %d events; want 6", tt.name, len(got))
		}
		if got[2] != (inputEvent{evKey, btnLeft, tt.left}) || got[3] != (inputEvent{evKey, btnRight, tt.right}) {
			t.Errorf("%s: buttons = %v, %v", tt.name, got[2], got[3])
		}
	}
}

func TestEncodeEvents(t *testing.T) {
	t.Parallel()

	buf := encodeEvents([]inputEvent{{evAbs, absTiltX, -5}, syn}, 16)
	if len(buf) != 48 {
		t.Fatalf("len = %d; want 48", len(buf))
	}

	for i := 0; i < 16; i++ {
		if buf[i] != 0 {
			t.Fatalf("timestamp byte %d = %d; want 0", i, buf[i])
		}
	}
	if typ := binary.NativeEndian.Uint16(buf[16:]); typ != evAbs {
		t.Errorf("type = %d; want %d", typ, evAbs)
	}
	if code := binary.NativeEndian.Uint16(buf[18:]); code != absTiltX {
		t.Errorf("code = %d; want %d", code, absTiltX)
	}
	if value := int32(binary.NativeEndian.Uint32(buf[20:])); value != -5 {
		t.Errorf("value = %d; want -5", value)
	}
}

func TestEncodeUserDev(t *testing.T) {
	t.Parallel()

	buf := encodeUserDev("test tablet", capabilitiesFor(config.DeviceTablet))
	if len(buf) != 1116 {
		t.Fatalf("len = %d; want 1116", len(buf))
	}
	if string(buf[:11]) != "test tablet" || buf[11] != 0 {
		t.Errorf("name = %q", buf[:12])
	}
	if bus := binary.NativeEndian.Uint16(buf[80:]); bus != busVirtual {
		t.Errorf("bustype = %#x; want %#x", bus, busVirtual)
	}

	absmax := func(code int) int32 { return int32(binary.NativeEndian.Uint32(buf[92+4*code:])) }
	absmin := func(code int) int32 { return int32(binary.NativeEndian.Uint32(buf[92+256+4*code:])) }

	if absmax(absPressure) != pressureMax {
		t.Errorf("absmax[ABS_PRESSURE] = %d", absmax(absPressure))
	}
	if absmin(absTiltY) != -tiltMax || absmax(absTiltY) != tiltMax {
		t.Errorf("ABS_TILT_Y range = [%d, %d]", absmin(absTiltY), absmax(absTiltY))
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	tablet := capabilitiesFor(config.DeviceTablet)
	if len(tablet.props) != 1 || tablet.props[0] != inputPropDirect {
		t.Errorf("tablet props = %v; want INPUT_PROP_DIRECT", tablet.props)
	}
	if len(tablet.axes) != 5 {
		t.Errorf("tablet has %d axes; want 5", len(tablet.axes))
	}

	mouse := capabilitiesFor(config.DeviceMouse)
	if len(mouse.props) != 0 || len(mouse.axes) != 2 {
		t.Errorf("mouse capabilities = %+v", mouse)
	}
}

func TestOpener_MissingDevice(t *testing.T) {
	t.Parallel()

	open := Opener(config.DeviceConfig{Kind: config.DeviceTablet, Name: "x", Path: "/nonexistent/uinput"})
	if _, err := open(); err == nil {
		t.Error("opening a missing uinput node should fail")
	}
}
