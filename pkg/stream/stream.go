// Package stream defines the contract between the connection machinery and
// the per-connection strategies that interpret messages.
//
// A listener owns a Factory. Every accepted connection gets exactly one
// Handler built from it, and the session feeds that Handler every inbound
// Message until a Close message arrives or the transport fails. Handlers
// answer through the Sink they are handed; they never see the connection.
package stream

import (
	"context"
)

// MessageType tags a Message.
type MessageType int

const (
	MessageBinary MessageType = iota + 1
	MessageText
	MessagePing
	MessagePong
	MessageClose
)

// String ...
func (t MessageType) String() string {
	switch t {
	case MessageBinary:
		return "binary"
	case MessageText:
		return "text"
	case MessagePing:
		return "ping"
	case MessagePong:
		return "pong"
	case MessageClose:
		return "close"
	default:
		return ""
	}
}

// Close status codes used by this relay (RFC 6455 section 7.4.1).
const (
	StatusNormalClosure = 1000
	StatusInternalError = 1011
)

// Message is one frame exchanged with a client.
// CloseCode and CloseReason are only set on MessageClose.
type Message struct {
	Type        MessageType
	Data        []byte
	CloseCode   int
	CloseReason string
}

// IsClose reports whether m ends the session.
func (m Message) IsClose() bool {
	return m.Type == MessageClose
}

// Text returns a text message.
func Text(s string) Message {
	return Message{Type: MessageText, Data: []byte(s)}
}

// Binary returns a binary message.
func Binary(b []byte) Message {
	return Message{Type: MessageBinary, Data: b}
}

// Ping returns a ping message.
func Ping(b []byte) Message {
	return Message{Type: MessagePing, Data: b}
}

// Pong returns a pong message answering a ping with payload b.
func Pong(b []byte) Message {
	return Message{Type: MessagePong, Data: b}
}

// Close returns a close message.
func Close(code int, reason string) Message {
	return Message{Type: MessageClose, CloseCode: code, CloseReason: reason}
}

// Source is the inbound half of a connection.
type Source interface {
	// Next blocks until the next message arrives. A peer's close frame is
	// delivered as a MessageClose, not as an error.
	Next(ctx context.Context) (Message, error)
}

// Sink is the outbound half of a connection.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Handler interprets the messages of a single connection.
// Process must accept every MessageType and must not retain sink after the
// session ends. If a Handler also implements io.Closer, Close is called
// once when its session ends.
type Handler interface {
	Process(ctx context.Context, sink Sink, msg Message)
}

// Factory builds the Handler for a newly accepted connection.
type Factory func() (Handler, error)

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, sink Sink, msg Message)

// Process calls f(ctx, sink, msg).
func (f HandlerFunc) Process(ctx context.Context, sink Sink, msg Message) {
	f(ctx, sink, msg)
}
