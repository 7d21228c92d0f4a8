// Package server binds the relay endpoints and runs one session per
// accepted WebSocket connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/metrics"
	"tabletrelay/pkg/session"
	"tabletrelay/pkg/stream"
	"tabletrelay/pkg/transport/ws"

	"github.com/prometheus/client_golang/prometheus"
)

// Endpoint is a named address together with the factory building the
// handler of every connection accepted on it.
type Endpoint struct {
	Name    string
	Addr    string
	Factory stream.Factory
}

// BindState is the bind progress of a Listener.
type BindState int32

const (
	Unbound BindState = iota
	Bound
	Failed
)

// String ...
func (s BindState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// BindResult reports whether a Listener could bind. Err is nil on success,
// in which case Addr is the bound address.
type BindResult struct {
	Addr net.Addr
	Err  error
}

// Options are shared by all listeners of a process. All fields are optional.
type Options struct {
	Deps           *config.Dependencies
	Logger         *log.Logger
	Metrics        *metrics.Metrics
	Transcript     *log.Transcript
	MaxMessageSize int64
}

// Listener serves one endpoint.
type Listener struct {
	ep   Endpoint
	opts Options

	state atomic.Int32

	mu   sync.Mutex
	addr net.Addr
	wl   *ws.Listener
}

// NewListener returns an unbound listener for ep.
func NewListener(ep Endpoint, opts Options) *Listener {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}
	return &Listener{ep: ep, opts: opts}
}

// State returns the current bind state.
func (l *Listener) State() BindState {
	return BindState(l.state.Load())
}

// Addr returns the bound address, or nil before a successful bind.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

// ListenAndServe binds the endpoint and sends exactly one BindResult on
// results. If binding fails, it returns the same error. Otherwise it serves
// connections and only returns if the accept loop dies.
func (l *Listener) ListenAndServe(results chan<- BindResult) error {
	nl, err := ws.Bind(l.ep.Addr, l.opts.Deps)
	if err != nil {
		l.state.Store(int32(Failed))
		l.opts.Metrics.BindFailures.WithLabelValues(l.ep.Name).Inc()

		err = fmt.Errorf("binding %s endpoint on %s: %w", l.ep.Name, l.ep.Addr, err)
		results <- BindResult{Err: err}
		return err
	}

	wl := ws.NewListener(nl, ws.ListenerOptions{
		Logger:    l.opts.Logger,
		ReadLimit: l.opts.MaxMessageSize,
		OnAcceptError: func(error) {
			l.opts.Metrics.AcceptErrors.WithLabelValues(l.ep.Name).Inc()
		},
	})

	l.mu.Lock()
	l.addr = nl.Addr()
	l.wl = wl
	l.mu.Unlock()
	l.state.Store(int32(Bound))

	l.opts.Logger.InfoMsg("Listening for %s connections on %s\n", l.ep.Name, nl.Addr())
	results <- BindResult{Addr: nl.Addr()}

	if err := wl.Serve(l.serveConn); err != nil {
		return fmt.Errorf("serving %s endpoint: %w", l.ep.Name, err)
	}
	return nil
}

// close stops accepting. There is no drain: running sessions continue.
func (l *Listener) close() error {
	l.mu.Lock()
	wl := l.wl
	l.mu.Unlock()

	if wl == nil {
		return nil
	}
	return wl.Close()
}

// serveConn runs on the connection's own goroutine.
func (l *Listener) serveConn(ctx context.Context, conn *ws.Conn) {
	name := l.ep.Name
	m := l.opts.Metrics

	m.ConnectionsAccepted.WithLabelValues(name).Inc()
	active := m.ActiveSessions.WithLabelValues(name)
	active.Inc()
	defer active.Dec()

	source, sink := conn.Split()
	sess := session.New(source, sink, l.ep.Factory,
		session.WithLogger(l.opts.Logger),
		session.WithTranscript(l.opts.Transcript),
		session.WithMessageHook(func(msg stream.Message) {
			m.MessagesProcessed.WithLabelValues(name, msg.Type.String()).Inc()
		}),
	)

	l.opts.Logger.InfoMsg("New %s connection from %s (%s)\n", name, conn.RemoteAddr(), sess.ID)
	defer l.opts.Logger.InfoMsg("%s connection from %s closed (%s)\n", name, conn.RemoteAddr(), sess.ID)

	defer func() {
		if r := recover(); r != nil {
			m.SessionErrors.WithLabelValues(name, metrics.KindPanic).Inc()
			l.opts.Logger.ErrorMsg("Session %s: stream handler panicked: %v\n", sess.ID, r)
			_ = conn.Close(stream.StatusInternalError, "internal error")
		}
	}()

	err := sess.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrHandlerConstruction):
		m.SessionErrors.WithLabelValues(name, metrics.KindHandler).Inc()
		l.opts.Logger.ErrorMsg("Session %s: %s\n", sess.ID, err)
		_ = conn.Close(stream.StatusInternalError, "stream handler unavailable")
	default:
		m.SessionErrors.WithLabelValues(name, metrics.KindRead).Inc()
		l.opts.Logger.WarnMsg("Error reading message from websocket, closing (%s)\n", err)
		_ = conn.CloseNow()
	}
}
