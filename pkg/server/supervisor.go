package server

import (
	"errors"
	"net"

	"tabletrelay/pkg/capture"
	"tabletrelay/pkg/config"
	"tabletrelay/pkg/device/uinput"
	"tabletrelay/pkg/handler/pointer"
	"tabletrelay/pkg/handler/screen"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Endpoint names.
const (
	PointerEndpoint = "pointer"
	ScreenEndpoint  = "screen"
)

// ErrListenerStopped is returned by Serve when a listener's accept loop
// ended without an error.
var ErrListenerStopped = errors.New("listener stopped")

// Supervisor starts the pointer and the screen listener.
type Supervisor struct {
	pointer *Listener
	screen  *Listener

	errs chan error
}

// NewSupervisor returns a supervisor for the two endpoints.
func NewSupervisor(pointerEp, screenEp Endpoint, opts Options) *Supervisor {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}

	return &Supervisor{
		pointer: NewListener(pointerEp, opts),
		screen:  NewListener(screenEp, opts),
		errs:    make(chan error, 2),
	}
}

// Start binds the pointer endpoint and then the screen endpoint, each on
// its own goroutine. If the pointer endpoint fails to bind, Start returns
// its error without starting the screen listener.
func (s *Supervisor) Start() error {
	for _, l := range []*Listener{s.pointer, s.screen} {
		results := make(chan BindResult, 1)
		go func() {
			s.errs <- l.ListenAndServe(results)
		}()

		if res := <-results; res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Serve starts both listeners and blocks until one of them stops.
func (s *Supervisor) Serve() error {
	if err := s.Start(); err != nil {
		return err
	}

	if err := <-s.errs; err != nil {
		return err
	}
	return ErrListenerStopped
}

// PointerAddr returns the bound pointer address, or nil.
func (s *Supervisor) PointerAddr() net.Addr {
	return s.pointer.Addr()
}

// ScreenAddr returns the bound screen address, or nil.
func (s *Supervisor) ScreenAddr() net.Addr {
	return s.screen.Addr()
}

// Run serves the pointer endpoint on pointerAddr and the screen endpoint on
// its fixed address with the default configuration.
func Run(pointerAddr string) error {
	cfg := config.Default()
	cfg.PointerAddr = pointerAddr

	return RunConfig(cfg, log.NewLogger(cfg.Verbose), prometheus.NewRegistry())
}

// RunConfig serves both endpoints with a uinput device per pointer
// connection and an ffmpeg capture per screen connection. Metrics are
// registered with reg.
func RunConfig(cfg *config.Config, logger *log.Logger, reg prometheus.Registerer) error {
	opts := Options{
		Deps:           cfg.Deps,
		Logger:         logger,
		Metrics:        metrics.New(reg),
		MaxMessageSize: cfg.MaxMessageSize,
	}

	if cfg.TranscriptFile != "" {
		t, err := log.NewTranscript(cfg.TranscriptFile)
		if err != nil {
			return err
		}
		defer t.Close()
		opts.Transcript = t
	}

	sup := NewSupervisor(
		Endpoint{
			Name:    PointerEndpoint,
			Addr:    cfg.PointerAddr,
			Factory: pointer.Factory(uinput.Opener(cfg.Device), logger),
		},
		Endpoint{
			Name:    ScreenEndpoint,
			Addr:    cfg.ScreenAddr,
			Factory: screen.Factory(capture.X11Factory(cfg.Capture, logger), logger),
		},
		opts,
	)

	return sup.Serve()
}
