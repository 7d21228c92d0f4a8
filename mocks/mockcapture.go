package mocks

import (
	"context"
	"sync"

	"tabletrelay/pkg/capture"
)

// MockCapture returns scripted frames in order and repeats the last one.
type MockCapture struct {
	mu     sync.Mutex
	frames [][]byte
	calls  int
	closed int
	err    error
}

// NewMockCapture returns a source serving frames.
func NewMockCapture(frames ...[]byte) *MockCapture {
	return &MockCapture{frames: frames}
}

// FailWith makes every following NextFrame return err.
func (m *MockCapture) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// NextFrame returns the next scripted frame.
func (m *MockCapture) NextFrame(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		return nil, capture.ErrNoFrame
	}

	i := min(m.calls, len(m.frames)-1)
	m.calls++
	return m.frames[i], nil
}

// Close counts how often the source was closed.
func (m *MockCapture) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Calls returns how often NextFrame was called successfully.
func (m *MockCapture) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed returns how often Close was called.
func (m *MockCapture) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CaptureFactory hands out a new MockCapture serving the same frames on
// every call.
type CaptureFactory struct {
	mu       sync.Mutex
	frames   [][]byte
	captures []*MockCapture
}

// NewCaptureFactory returns a factory whose sources serve frames.
func NewCaptureFactory(frames ...[]byte) *CaptureFactory {
	return &CaptureFactory{frames: frames}
}

// New is a capture.Factory.
func (f *CaptureFactory) New() (capture.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := NewMockCapture(f.frames...)
	f.captures = append(f.captures, c)
	return c, nil
}

// Captures returns every source created so far.
func (f *CaptureFactory) Captures() []*MockCapture {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*MockCapture, len(f.captures))
	copy(out, f.captures)
	return out
}
