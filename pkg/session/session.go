// Package session runs the read loop of a single accepted connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tabletrelay/pkg/log"
	"tabletrelay/pkg/stream"

	"github.com/google/uuid"
)

// ErrHandlerConstruction is wrapped by Run when the endpoint's factory fails.
var ErrHandlerConstruction = errors.New("stream handler construction failed")

// ErrTransportRead is wrapped by Run when reading the next message fails.
var ErrTransportRead = errors.New("reading message")

// Session owns one connection and the single Handler built for it.
// A Session is single-use.
type Session struct {
	ID string

	source     stream.Source
	sink       stream.Sink
	factory    stream.Factory
	logger     *log.Logger
	transcript *log.Transcript
	onMessage  func(stream.Message)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for verbose tracing.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTranscript records every inbound and outbound message.
func WithTranscript(t *log.Transcript) Option {
	return func(s *Session) { s.transcript = t }
}

// WithMessageHook calls fn for every message before it is processed.
func WithMessageHook(fn func(stream.Message)) Option {
	return func(s *Session) { s.onMessage = fn }
}

// New creates a session over an already split connection.
func New(source stream.Source, sink stream.Sink, factory stream.Factory, opts ...Option) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		source:  source,
		sink:    sink,
		factory: factory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run builds the handler and pumps messages into it.
//
// It returns nil after a close message has been processed. If reading fails
// it returns an error wrapping ErrTransportRead without calling the handler
// for the failed read. If the factory fails it returns an error wrapping
// ErrHandlerConstruction before reading anything.
func (s *Session) Run(ctx context.Context) error {
	handler, err := s.factory()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandlerConstruction, err)
	}
	if c, ok := handler.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				s.logger.VerboseMsg("Session %s: closing stream handler: %s", s.ID, err)
			}
		}()
	}

	sink := s.sink
	if s.transcript != nil {
		sink = &recordingSink{Sink: s.sink, session: s}
	}

	for {
		msg, err := s.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransportRead, err)
		}

		s.record("in", msg)
		if s.onMessage != nil {
			s.onMessage(msg)
		}

		handler.Process(ctx, sink, msg)

		if msg.IsClose() {
			s.logger.VerboseMsg("Session %s: close received (%d %s)", s.ID, msg.CloseCode, msg.CloseReason)
			return nil
		}
	}
}

func (s *Session) record(direction string, msg stream.Message) {
	if err := s.transcript.Record(s.ID, direction, msg.Type.String(), msg.Data); err != nil {
		s.logger.VerboseMsg("Session %s: %s", s.ID, err)
	}
}

// recordingSink records outbound messages before sending them.
type recordingSink struct {
	stream.Sink
	session *Session
}

func (r *recordingSink) Send(ctx context.Context, msg stream.Message) error {
	r.session.record("out", msg)
	return r.Sink.Send(ctx, msg)
}
