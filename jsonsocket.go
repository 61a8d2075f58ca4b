// Package jsonsocket layers JSON message framing over an event-driven
// WebSocket. Each text frame carries exactly one JSON document: inbound frames
// are parsed and emitted as "message" events, and outbound values are
// serialized to text frames.
//
// A JSONSocket wraps anything implementing EventSocket. Socket implements
// EventSocket on top of a Conn, and the adapters subdirectory provides Conn
// implementations for popular WebSocket libraries.
package jsonsocket

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// EventSocket is the socket handle wrapped by a JSONSocket.
type EventSocket interface {
	// On and Once register listeners. The socket must emit "text" with the
	// frame's text, and "close" and "error" when the connection ends.
	On(event string, handler any)
	Once(event string, handler any)
	// Emit calls the listeners registered for event.
	Emit(event string, args ...any) error
	// Send writes a text frame and calls callback on completion.
	Send(text string, callback func(error))
	// End requests a graceful close once pending frames are written.
	End()
	// Close closes the connection immediately.
	Close() error
	// SetTimeout configures the idle timeout.
	SetTimeout(d time.Duration, callback func())
}

// Option configures a JSONSocket.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	faultHandler FaultHandler
	socketOpts   []SocketOption
}

// WithLogger sets the logger used to report faults when no fault handler is
// set. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFaultHandler sets the function called when an inbound frame cannot be
// processed, for example when it is not valid JSON (see InvalidJSONError).
// The socket is not closed; handler may call Destroy. When no fault handler is
// set, faults are logged at error level.
func WithFaultHandler(handler FaultHandler) Option {
	return func(o *options) {
		o.faultHandler = handler
	}
}

// WithSocketOptions sets the options used by Wrap and Server.Accept to
// create the underlying Socket. New ignores them.
func WithSocketOptions(opts ...SocketOption) Option {
	return func(o *options) {
		o.socketOpts = append(o.socketOpts, opts...)
	}
}

// JSONSocket sends and receives JSON messages over an EventSocket.
type JSONSocket struct {
	socket EventSocket
	closed atomic.Bool
	opts   options
}

// New wraps socket and starts listening to its "close", "text" and "error"
// events. socket is not validated.
func New(socket EventSocket, opts ...Option) *JSONSocket {
	s := &JSONSocket{
		socket: socket,
		opts:   options{logger: slog.Default()},
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	socket.On(EventClose, s.onClose)
	socket.On(EventText, s.onText)
	socket.On(EventError, s.onError)
	return s
}

// Wrap creates a Socket for conn, wraps it and starts reading frames.
func Wrap(conn Conn, opts ...Option) *JSONSocket {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	sock := NewSocket(conn, o.socketOpts...)
	s := New(sock, opts...)
	sock.Start()
	return s
}

// Socket returns the wrapped socket.
func (s *JSONSocket) Socket() EventSocket {
	return s.socket
}

// onText parses an inbound text frame and emits it as a "message" event
func (s *JSONSocket) onText(text string) {
	msg, err := decodeMessage(text)
	if err != nil {
		s.fault(err)
		return
	}
	if err := s.socket.Emit(EventMessage, msg); err != nil {
		s.opts.logger.Error("calling message listener", slog.Any("error", err))
	}
}

func (s *JSONSocket) fault(err error) {
	if s.opts.faultHandler != nil {
		s.opts.faultHandler(err)
		return
	}
	s.opts.logger.Error("inbound frame rejected", slog.Any("error", err))
}

func (s *JSONSocket) onClose() {
	s.closed.Store(true)
}

func (s *JSONSocket) onError() {
	s.closed.Store(true)
}

// IsClosed returns true once the underlying socket emitted "close" or "error",
// or Destroy was called.
func (s *JSONSocket) IsClosed() bool {
	return s.closed.Load()
}

// SendMessage serializes msg to JSON and sends it as a text frame. callback,
// if not nil, is called with the outcome of the send. If the socket is closed,
// callback is called synchronously with ErrClosed and nothing is sent.
func (s *JSONSocket) SendMessage(msg any, callback func(error)) {
	if s.closed.Load() {
		if callback != nil {
			callback(ErrClosed)
		}
		return
	}
	text, err := encodeMessage(msg)
	if err != nil {
		if callback != nil {
			callback(err)
		}
		return
	}
	s.socket.Send(text, callback)
}

// SendEndMessage sends msg and then ends the socket, whether or not the send
// succeeded. callback, if not nil, receives the send error.
func (s *JSONSocket) SendEndMessage(msg any, callback func(error)) {
	s.SendMessage(msg, func(err error) {
		s.socket.End()
		if callback != nil {
			callback(err)
		}
	})
}

// SendError sends the ErrorPayload for err.
func (s *JSONSocket) SendError(err error) {
	s.SendMessage(NewErrorPayload(err), nil)
}

// SendEndError sends the ErrorPayload for err and then ends the socket.
func (s *JSONSocket) SendEndError(err error) {
	s.SendEndMessage(NewErrorPayload(err), nil)
}

// Destroy marks the socket closed and closes the underlying connection.
func (s *JSONSocket) Destroy() {
	s.closed.Store(true)
	if err := s.socket.Close(); err != nil {
		s.opts.logger.Debug("closing socket", slog.Any("error", err))
	}
}

// SetTimeout sets the idle timeout of the underlying socket.
func (s *JSONSocket) SetTimeout(d time.Duration, callback func()) {
	s.socket.SetTimeout(d, callback)
}

// On adds a listener to the underlying socket. Use EventMessage to receive
// parsed messages.
func (s *JSONSocket) On(event string, handler any) *JSONSocket {
	s.socket.On(event, handler)
	return s
}

// Once adds a one-time listener to the underlying socket.
func (s *JSONSocket) Once(event string, handler any) *JSONSocket {
	s.socket.Once(event, handler)
	return s
}
