// Package helpers provides common utilities for integration and end-to-end tests.
package helpers

import (
	"context"

	"tabletrelay/mocks"
	"tabletrelay/pkg/config"
	"tabletrelay/pkg/handler/pointer"
	"tabletrelay/pkg/handler/screen"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/metrics"
	"tabletrelay/pkg/server"
	"tabletrelay/pkg/transport/ws"

	"github.com/prometheus/client_golang/prometheus"
)

// Addresses the relay listens on inside the mock network.
const (
	PointerAddr = "127.0.0.1:1701"
	ScreenAddr  = "127.0.0.1:9002"
)

// Relay is a supervisor wired to a mock network, mock devices and mock
// capture sources. Every connection gets its own device or capture.
type Relay struct {
	Network    *mocks.MockTCPNetwork
	Deps       *config.Dependencies
	Devices    *mocks.DeviceOpener
	Captures   *mocks.CaptureFactory
	Metrics    *metrics.Metrics
	Supervisor *server.Supervisor
}

// NewRelay builds a relay whose screen captures serve frames.
// Nothing is bound until Supervisor.Start or Supervisor.Serve is called.
func NewRelay(frames ...[]byte) *Relay {
	mockNet := mocks.NewMockTCPNetwork()

	r := &Relay{
		Network:  mockNet,
		Deps:     &config.Dependencies{TCPListener: mockNet.ListenTCP},
		Devices:  mocks.NewDeviceOpener(),
		Captures: mocks.NewCaptureFactory(frames...),
		Metrics:  metrics.New(prometheus.NewRegistry()),
	}

	logger := log.NewLogger(false)
	r.Supervisor = server.NewSupervisor(
		server.Endpoint{
			Name:    server.PointerEndpoint,
			Addr:    PointerAddr,
			Factory: pointer.Factory(r.Devices.Open, logger),
		},
		server.Endpoint{
			Name:    server.ScreenEndpoint,
			Addr:    ScreenAddr,
			Factory: screen.Factory(r.Captures.New, logger),
		},
		server.Options{
			Deps:    r.Deps,
			Logger:  logger,
			Metrics: r.Metrics,
		},
	)

	return r
}

// Dial connects to addr through the mock network.
func (r *Relay) Dial(ctx context.Context, addr string) (*ws.Conn, error) {
	return ws.Dial(ctx, addr, r.Network.HTTPClient())
}
