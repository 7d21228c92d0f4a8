package mocks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"tabletrelay/pkg/stream"
)

// SourceStep is one scripted result of MockSource.Next.
type SourceStep struct {
	Msg stream.Message
	Err error
}

// MockSource replays a fixed script of messages and errors.
// Once the script is exhausted Next returns io.EOF.
type MockSource struct {
	mu    sync.Mutex
	steps []SourceStep
	reads int
}

// NewMockSource returns a source replaying steps in order.
func NewMockSource(steps ...SourceStep) *MockSource {
	return &MockSource{steps: steps}
}

// Next returns the next scripted step.
func (m *MockSource) Next(ctx context.Context) (stream.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stream.Message{}, err
	}

	m.reads++
	if m.reads > len(m.steps) {
		return stream.Message{}, io.EOF
	}

	step := m.steps[m.reads-1]
	return step.Msg, step.Err
}

// Reads returns how often Next has been called.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// MockSink records every message sent to it.
type MockSink struct {
	mu   sync.Mutex
	sent []stream.Message
	err  error
}

// NewMockSink returns an empty sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// FailWith makes every following Send return err.
func (m *MockSink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send records msg.
func (m *MockSink) Send(ctx context.Context, msg stream.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of all recorded messages.
func (m *MockSink) Sent() []stream.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]stream.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recently recorded message.
func (m *MockSink) Last() (stream.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return stream.Message{}, fmt.Errorf("nothing sent")
	}
	return m.sent[len(m.sent)-1], nil
}

// MockHandler records processed messages. It implements io.Closer.
type MockHandler struct {
	mu        sync.Mutex
	processed []stream.Message
	closed    int
	reply     func(stream.Message) (stream.Message, bool)
}

// NewMockHandler returns a handler that records messages. If reply is not
// nil, its result is sent to the sink whenever the second value is true.
func NewMockHandler(reply func(stream.Message) (stream.Message, bool)) *MockHandler {
	return &MockHandler{reply: reply}
}

// Process records msg and optionally replies.
func (m *MockHandler) Process(ctx context.Context, sink stream.Sink, msg stream.Message) {
	m.mu.Lock()
	m.processed = append(m.processed, msg)
	reply := m.reply
	m.mu.Unlock()

	if reply == nil {
		return
	}
	if out, ok := reply(msg); ok {
		_ = sink.Send(ctx, out)
	}
}

// Close counts how often the handler was closed.
func (m *MockHandler) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Processed returns a copy of all processed messages.
func (m *MockHandler) Processed() []stream.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]stream.Message, len(m.processed))
	copy(out, m.processed)
	return out
}

// Closed returns how often Close was called.
func (m *MockHandler) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// HandlerFactory builds MockHandlers and remembers each of them.
type HandlerFactory struct {
	mu       sync.Mutex
	handlers []*MockHandler
	reply    func(stream.Message) (stream.Message, bool)
	err      error
}

// NewHandlerFactory returns a factory whose handlers use reply.
func NewHandlerFactory(reply func(stream.Message) (stream.Message, bool)) *HandlerFactory {
	return &HandlerFactory{reply: reply}
}

// FailWith makes Factory fail with err from now on.
func (f *HandlerFactory) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Factory is a stream.Factory.
func (f *HandlerFactory) Factory() (stream.Handler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	h := NewMockHandler(f.reply)
	f.handlers = append(f.handlers, h)
	return h, nil
}

// Handlers returns every handler built so far.
func (f *HandlerFactory) Handlers() []*MockHandler {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*MockHandler, len(f.handlers))
	copy(out, f.handlers)
	return out
}

// Echo replies to text and binary messages with the same message.
func Echo(msg stream.Message) (stream.Message, bool) {
	switch msg.Type {
	case stream.MessageText, stream.MessageBinary:
		return msg, true
	default:
		return stream.Message{}, false
	}
}
