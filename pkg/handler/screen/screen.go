// Package screen implements the stream.Handler of the screen endpoint.
// Every text or binary message is a frame request, answered with one JPEG
// frame as a binary message.
package screen

import (
	"context"
	"encoding/json"
	"fmt"

	"tabletrelay/pkg/capture"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/stream"
)

// Handler owns one capture source for the lifetime of its session.
type Handler struct {
	src    capture.Source
	logger *log.Logger
}

// New returns a handler serving frames from src. The handler takes
// ownership of src.
func New(src capture.Source, logger *log.Logger) *Handler {
	return &Handler{src: src, logger: logger}
}

// Factory returns a stream.Factory creating a fresh capture source per
// connection.
func Factory(newSource capture.Factory, logger *log.Logger) stream.Factory {
	return func() (stream.Handler, error) {
		src, err := newSource()
		if err != nil {
			return nil, fmt.Errorf("creating capture source: %w", err)
		}
		return New(src, logger), nil
	}
}

// Process ...
func (h *Handler) Process(ctx context.Context, sink stream.Sink, msg stream.Message) {
	switch msg.Type {
	case stream.MessageText, stream.MessageBinary:
	case stream.MessagePing:
		h.send(ctx, sink, stream.Pong(msg.Data))
		return
	default:
		return
	}

	frame, err := h.src.NextFrame(ctx)
	if err != nil {
		h.logger.VerboseMsg("capture.NextFrame(): %s", err)
		b, _ := json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{"error", err.Error()})
		h.send(ctx, sink, stream.Text(string(b)))
		return
	}

	h.send(ctx, sink, stream.Binary(frame))
}

// Close releases the capture source.
func (h *Handler) Close() error {
	return h.src.Close()
}

func (h *Handler) send(ctx context.Context, sink stream.Sink, msg stream.Message) {
	if err := sink.Send(ctx, msg); err != nil {
		h.logger.VerboseMsg("sending %s message: %s", msg.Type, err)
	}
}
