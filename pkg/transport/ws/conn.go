package ws

import (
	"context"
	"errors"
	"fmt"

	"tabletrelay/pkg/stream"

	"github.com/coder/websocket"
)

// Conn wraps an upgraded WebSocket connection.
type Conn struct {
	c          *websocket.Conn
	remoteAddr string
}

// NewConn wraps c. remoteAddr is only used for logging.
func NewConn(c *websocket.Conn, remoteAddr string) *Conn {
	return &Conn{c: c, remoteAddr: remoteAddr}
}

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// Split returns the inbound and outbound halves of the connection.
// Reading and writing may happen concurrently.
func (c *Conn) Split() (stream.Source, stream.Sink) {
	return source{c}, sink{c}
}

// Next reads the next data message. Control frames are answered by the
// websocket library; a close frame from the peer is returned as a
// stream.MessageClose after the close handshake has been completed.
func (c *Conn) Next(ctx context.Context) (stream.Message, error) {
	typ, data, err := c.c.Read(ctx)
	if err != nil {
		var ce websocket.CloseError
		if errors.As(err, &ce) {
			return stream.Close(int(ce.Code), ce.Reason), nil
		}
		return stream.Message{}, err
	}

	if typ == websocket.MessageText {
		return stream.Message{Type: stream.MessageText, Data: data}, nil
	}
	return stream.Binary(data), nil
}

// Send writes msg to the peer.
//
// A ping blocks until the matching pong has been read, so it needs a
// concurrent Next. Pongs are sent by the websocket library on its own and
// are dropped here.
func (c *Conn) Send(ctx context.Context, msg stream.Message) error {
	switch msg.Type {
	case stream.MessageText:
		return c.c.Write(ctx, websocket.MessageText, msg.Data)
	case stream.MessageBinary:
		return c.c.Write(ctx, websocket.MessageBinary, msg.Data)
	case stream.MessagePing:
		return c.c.Ping(ctx)
	case stream.MessagePong:
		return nil
	case stream.MessageClose:
		return c.Close(msg.CloseCode, msg.CloseReason)
	default:
		return fmt.Errorf("unsupported message type %d", msg.Type)
	}
}

// Close performs the close handshake with the given status code.
func (c *Conn) Close(code int, reason string) error {
	return c.c.Close(websocket.StatusCode(code), reason)
}

// CloseNow drops the connection without a close handshake.
func (c *Conn) CloseNow() error {
	return c.c.CloseNow()
}

type source struct{ c *Conn }

func (s source) Next(ctx context.Context) (stream.Message, error) { return s.c.Next(ctx) }

type sink struct{ c *Conn }

func (s sink) Send(ctx context.Context, msg stream.Message) error { return s.c.Send(ctx, msg) }
