package jsonsocket

import (
	"log/slog"
	"sync"
)

// Server keeps track of accepted JSON sockets so they can be closed together.
// Rather than listening for connections itself, the Accept method takes any
// connection that implements the Conn interface. This allows the server to be
// used with any WebSocket library. Various adapter libraries are available in
// the adapters subdirectory.
//
// Listeners for EventConnection are called with each accepted *JSONSocket
// before it starts reading frames.
type Server struct {
	Emitter
	opts      []Option
	logger    *slog.Logger
	socketsMu sync.Mutex
	sockets   map[*Socket]*JSONSocket // set to nil when server is closed
}

// NewServer creates a new server. opts are applied to every accepted socket.
func NewServer(opts ...Option) *Server {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		opts:    opts,
		logger:  o.logger,
		sockets: make(map[*Socket]*JSONSocket),
	}
}

// Accept wraps conn in a JSONSocket, adds it to the server and starts reading
// frames. The socket is removed from the server when it closes.
func (s *Server) Accept(conn Conn) (*JSONSocket, error) {
	var o options
	for _, opt := range s.opts {
		opt(&o)
	}
	sock := NewSocket(conn, o.socketOpts...)
	js := New(sock, s.opts...)
	sock.On(EventClose, func() {
		s.socketsMu.Lock()
		if s.sockets != nil {
			delete(s.sockets, sock)
		}
		s.socketsMu.Unlock()
	})

	s.socketsMu.Lock()
	if s.sockets == nil {
		s.socketsMu.Unlock()
		_ = conn.CloseNow()
		return nil, ErrServerClosed
	}
	s.sockets[sock] = js
	s.socketsMu.Unlock()

	if err := s.Emit(EventConnection, js); err != nil {
		s.logger.Error("calling connection listener", slog.Any("error", err))
	}
	sock.Start()
	return js, nil
}

// Len returns the number of open sockets.
func (s *Server) Len() int {
	s.socketsMu.Lock()
	defer s.socketsMu.Unlock()
	return len(s.sockets)
}

// Close stops accepting sockets and closes all open sockets with
// StatusGoingAway. Returns the first error encountered while closing sockets.
func (s *Server) Close() error {
	s.socketsMu.Lock()
	sockets := s.sockets
	s.sockets = nil // stop accepting new connections
	s.socketsMu.Unlock()

	var closeErr error
	for sock, js := range sockets {
		js.closed.Store(true)
		if err := sock.shutdown(
			StatusGoingAway, "server is closing",
		); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}
