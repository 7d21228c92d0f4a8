package relay

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"tabletrelay/pkg/device"
	"tabletrelay/pkg/handler/pointer"
	"tabletrelay/pkg/stream"
	"tabletrelay/test/helpers"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestEndToEnd_PointerCommands mimics a tablet client driving
// "tabletrelay serve": JSON and CBOR commands reach the virtual device and
// are acknowledged.
func TestEndToEnd_PointerCommands(t *testing.T) {
	relay := helpers.NewRelay()
	if err := relay.Supervisor.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := relay.Dial(ctx, helpers.PointerAddr)
	if err != nil {
		t.Fatalf("Dial(pointer) error = %v", err)
	}
	defer conn.CloseNow()
	source, sink := conn.Split()

	if err := sink.Send(ctx, stream.Text(`{"type":"pointer","event":"down","pointer_type":"pen","x":0.25,"y":0.75,"pressure":0.5,"buttons":1,"seq":1}`)); err != nil {
		t.Fatalf("Send(json) error = %v", err)
	}
	expectAck(ctx, t, source, 1)

	seq := uint64(2)
	data, err := pointer.EncodeCBOR(pointer.Command{Type: "pointer", Event: "up", PointerType: "pen", X: 0.25, Y: 0.75, Seq: &seq})
	if err != nil {
		t.Fatalf("EncodeCBOR() error = %v", err)
	}
	if err := sink.Send(ctx, stream.Binary(data)); err != nil {
		t.Fatalf("Send(cbor) error = %v", err)
	}
	expectAck(ctx, t, source, 2)

	devices := relay.Devices.Devices()
	if len(devices) != 1 {
		t.Fatalf("opened %d devices; want 1", len(devices))
	}
	events := devices[0].Events()
	if len(events) != 2 || events[0].Kind != device.Down || events[1].Kind != device.Up {
		t.Fatalf("device events = %+v", events)
	}
	if events[0].X != 0.25 || events[0].Y != 0.75 || events[0].Pressure != 0.5 {
		t.Errorf("down event = %+v", events[0])
	}

	// closing the connection releases the device
	if err := conn.Close(stream.StatusNormalClosure, ""); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	waitFor(t, "device release", func() bool { return devices[0].Closed() == 1 })

	if got := testutil.ToFloat64(relay.Metrics.MessagesProcessed.WithLabelValues("pointer", "binary")); got != 1 {
		t.Errorf("binary messages processed = %v; want 1", got)
	}
}

// TestEndToEnd_ScreenFrames checks that viewers get frames while no pointer
// client is connected, each from a capture of its own.
func TestEndToEnd_ScreenFrames(t *testing.T) {
	relay := helpers.NewRelay([]byte("\xff\xd8one\xff\xd9"), []byte("\xff\xd8two\xff\xd9"))
	if err := relay.Supervisor.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		conn, err := relay.Dial(ctx, helpers.ScreenAddr)
		if err != nil {
			t.Fatalf("Dial(screen) error = %v", err)
		}
		source, sink := conn.Split()

		// a new viewer starts from its own capture's first frame
		for _, want := range []string{"\xff\xd8one\xff\xd9", "\xff\xd8two\xff\xd9"} {
			if err := sink.Send(ctx, stream.Text("frame")); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			msg, err := source.Next(ctx)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if msg.Type != stream.MessageBinary || string(msg.Data) != want {
				t.Errorf("viewer %d: got %s %q; want %q", i, msg.Type, msg.Data, want)
			}
		}
		conn.CloseNow()
	}

	waitFor(t, "capture release", func() bool {
		captures := relay.Captures.Captures()
		if len(captures) != 2 {
			return false
		}
		for _, c := range captures {
			if c.Closed() != 1 {
				return false
			}
		}
		return true
	})
	for i, c := range relay.Captures.Captures() {
		if c.Calls() != 2 {
			t.Errorf("capture %d served %d frames; want 2", i, c.Calls())
		}
	}

	if n := len(relay.Devices.Devices()); n != 0 {
		t.Errorf("opened %d devices; want 0", n)
	}
}

// TestEndToEnd_PointerPortInUse mimics starting the relay while another
// program holds the pointer port.
func TestEndToEnd_PointerPortInUse(t *testing.T) {
	relay := helpers.NewRelay()

	addr, err := net.ResolveTCPAddr("tcp", helpers.PointerAddr)
	if err != nil {
		t.Fatalf("net.ResolveTCPAddr() error = %v", err)
	}
	if _, err := relay.Network.ListenTCP("tcp", addr); err != nil {
		t.Fatalf("occupying pointer port: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- relay.Supervisor.Serve() }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "binding pointer endpoint") {
			t.Errorf("Serve() error = %v; want pointer bind failure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return")
	}

	if _, err := relay.Network.WaitForListener(helpers.ScreenAddr, 100); err == nil {
		t.Error("screen endpoint should not be bound")
	}
	if got := testutil.ToFloat64(relay.Metrics.BindFailures.WithLabelValues("pointer")); got != 1 {
		t.Errorf("bind failures = %v; want 1", got)
	}
}

func expectAck(ctx context.Context, t *testing.T, source stream.Source, seq uint64) {
	t.Helper()

	msg, err := source.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	var reply pointer.Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v", msg.Data, err)
	}
	if reply.Type != "ack" || reply.Seq == nil || *reply.Seq != seq {
		t.Fatalf("reply = %s; want ack for seq %d", msg.Data, seq)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
