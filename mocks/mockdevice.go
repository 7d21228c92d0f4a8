package mocks

import (
	"sync"

	"tabletrelay/pkg/device"
)

// MockDevice records the events sent to it.
type MockDevice struct {
	mu     sync.Mutex
	events []device.Event
	closed int
	err    error
}

// NewMockDevice returns an empty device.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// FailWith makes every following Send return err.
func (m *MockDevice) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Send records ev.
func (m *MockDevice) Send(ev device.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

// Close counts how often the device was closed.
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Events returns a copy of all recorded events.
func (m *MockDevice) Events() []device.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]device.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Closed returns how often Close was called.
func (m *MockDevice) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// DeviceOpener hands out a new MockDevice on every Open.
type DeviceOpener struct {
	mu      sync.Mutex
	devices []*MockDevice
	err     error
}

// NewDeviceOpener returns an opener that succeeds until FailWith is called.
func NewDeviceOpener() *DeviceOpener {
	return &DeviceOpener{}
}

// FailWith makes Open fail with err from now on.
func (o *DeviceOpener) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// Open is a device.Opener.
func (o *DeviceOpener) Open() (device.Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return nil, o.err
	}
	d := NewMockDevice()
	o.devices = append(o.devices, d)
	return d, nil
}

// Devices returns every device opened so far.
func (o *DeviceOpener) Devices() []*MockDevice {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*MockDevice, len(o.devices))
	copy(out, o.devices)
	return out
}
