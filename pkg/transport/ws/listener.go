package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/log"

	"github.com/coder/websocket"
)

// acceptRetryDelay keeps a persistently failing Accept (e.g. EMFILE) from spinning.
const acceptRetryDelay = 5 * time.Millisecond

// Handler handles one upgraded connection on the connection's own goroutine.
// The connection is not closed when Handler returns.
type Handler func(ctx context.Context, conn *Conn)

// Bind resolves addr and opens a TCP listener on it.
func Bind(addr string, deps *config.Dependencies) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %w", addr, err)
	}

	listenTCP := config.GetTCPListenerFunc(deps)
	nl, err := listenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen(tcp, %s): %w", tcpAddr.String(), err)
	}

	return nl, nil
}

// ListenerOptions configures a Listener. All fields are optional.
type ListenerOptions struct {
	Logger *log.Logger

	// ReadLimit is the maximum size of an inbound message.
	ReadLimit int64

	// OnAcceptError is called for every failed accept or handshake.
	OnAcceptError func(err error)
}

// Listener accepts WebSocket connections on a bound net.Listener.
type Listener struct {
	nl   net.Listener
	opts ListenerOptions
}

// NewListener wraps a bound listener.
func NewListener(nl net.Listener, opts ListenerOptions) *Listener {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = config.DefaultMaxMessageSize
	}
	return &Listener{nl: nl, opts: opts}
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Serve accepts connections until the underlying listener is closed.
// Each connection is upgraded and passed to handler on its own goroutine.
func (l *Listener) Serve(handler Handler) error {
	server := &http.Server{
		Handler: l.upgrade(handler),

		// Only bounds the handshake. Upgraded connections are hijacked and
		// no longer subject to server timeouts.
		ReadHeaderTimeout: 10 * time.Second,
	}

	err := server.Serve(&acceptLoop{Listener: l.nl, l: l})
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("http.Server.Serve(): %w", err)
}

// Close closes the underlying listener, which ends Serve.
func (l *Listener) Close() error {
	return l.nl.Close()
}

func (l *Listener) upgrade(handler Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			l.acceptFailed(fmt.Errorf("websocket.Accept(): %w", err))
			return
		}
		c.SetReadLimit(l.opts.ReadLimit)

		handler(r.Context(), NewConn(c, r.RemoteAddr))
	}
}

func (l *Listener) acceptFailed(err error) {
	l.opts.Logger.ErrorMsg("%s\n", err)
	if l.opts.OnAcceptError != nil {
		l.opts.OnAcceptError(err)
	}
}

// acceptLoop skips failed accepts so that a single bad connection
// attempt never stops the listener. Only a closed listener ends it.
type acceptLoop struct {
	net.Listener
	l *Listener
}

func (a *acceptLoop) Accept() (net.Conn, error) {
	for {
		conn, err := a.Listener.Accept()
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, err
		}

		a.l.acceptFailed(fmt.Errorf("Accept(): %w", err))
		time.Sleep(acceptRetryDelay)
	}
}
