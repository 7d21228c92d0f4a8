// Package pointer implements the stream.Handler of the pointer endpoint.
// It decodes pointer commands and forwards them to a virtual input device
// that belongs to the connection.
package pointer

import (
	"context"
	"encoding/json"
	"fmt"

	"tabletrelay/pkg/device"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/stream"
)

// Reply is the JSON text frame sent back to the client.
type Reply struct {
	Type    string  `json:"type"`
	Seq     *uint64 `json:"seq,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Handler owns one device for the lifetime of its session.
type Handler struct {
	dev    device.Device
	logger *log.Logger
}

// New returns a handler forwarding to dev. The handler takes ownership of dev.
func New(dev device.Device, logger *log.Logger) *Handler {
	return &Handler{dev: dev, logger: logger}
}

// Factory returns a stream.Factory opening a fresh device per connection.
func Factory(open device.Opener, logger *log.Logger) stream.Factory {
	return func() (stream.Handler, error) {
		dev, err := open()
		if err != nil {
			return nil, fmt.Errorf("opening device: %w", err)
		}
		return New(dev, logger), nil
	}
}

// Process handles one message. Text and binary frames are commands, pings
// are answered, everything else is ignored.
func (h *Handler) Process(ctx context.Context, sink stream.Sink, msg stream.Message) {
	var (
		cmd Command
		err error
	)

	switch msg.Type {
	case stream.MessageText:
		cmd, err = DecodeJSON(msg.Data)
	case stream.MessageBinary:
		cmd, err = DecodeCBOR(msg.Data)
	case stream.MessagePing:
		h.send(ctx, sink, stream.Pong(msg.Data))
		return
	default:
		return
	}
	if err != nil {
		h.reply(ctx, sink, Reply{Type: "error", Message: err.Error()})
		return
	}

	ev, err := cmd.DeviceEvent()
	if err != nil {
		h.reply(ctx, sink, Reply{Type: "error", Seq: cmd.Seq, Message: err.Error()})
		return
	}

	if err := h.dev.Send(ev); err != nil {
		h.logger.VerboseMsg("device.Send(%s %s): %s", ev.Tool, ev.Kind, err)
		h.reply(ctx, sink, Reply{Type: "error", Seq: cmd.Seq, Message: fmt.Sprintf("device: %s", err)})
		return
	}

	if cmd.Seq != nil {
		h.reply(ctx, sink, Reply{Type: "ack", Seq: cmd.Seq})
	}
}

// Close releases the device.
func (h *Handler) Close() error {
	return h.dev.Close()
}

func (h *Handler) reply(ctx context.Context, sink stream.Sink, r Reply) {
	b, err := json.Marshal(r)
	if err != nil {
		h.logger.ErrorMsg("json.Marshal(reply): %s\n", err)
		return
	}
	h.send(ctx, sink, stream.Text(string(b)))
}

func (h *Handler) send(ctx context.Context, sink stream.Sink, msg stream.Message) {
	if err := sink.Send(ctx, msg); err != nil {
		h.logger.VerboseMsg("sending %s reply: %s", msg.Type, err)
	}
}
