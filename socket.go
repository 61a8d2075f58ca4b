package jsonsocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SocketOption configures a Socket.
type SocketOption func(*Socket)

// WithSocketLogger sets the logger used by the socket. Defaults to
// slog.Default().
func WithSocketLogger(logger *slog.Logger) SocketOption {
	return func(s *Socket) {
		s.logger = logger
	}
}

// WithWriteTimeout bounds the time spent writing a single frame. Zero (the
// default) means writes are only cancelled when the socket is closed.
func WithWriteTimeout(timeout time.Duration) SocketOption {
	return func(s *Socket) {
		s.writeTimeout = timeout
	}
}

// Socket is an event-driven WebSocket. It reads frames from a Conn and emits
// them as "text" and "binary" events, and it writes frames asynchronously,
// reporting completion through callbacks.
//
// Listeners and send callbacks are never called concurrently: they all run, in
// order, on a single dispatch queue owned by the socket. Frames are emitted in
// the order they were received and written in the order Send was called.
type Socket struct {
	Emitter
	id           string
	conn         Conn
	logger       *slog.Logger
	writeTimeout time.Duration

	// ctx is cancelled when the socket is closed and stores the socket itself.
	ctx       context.Context
	ctxCancel context.CancelCauseFunc

	events serialQueue // listeners and send callbacks
	writes serialQueue // outbound frames and the close handshake

	started atomic.Bool
	closing atomic.Bool // Close was called
	ending  atomic.Bool // End was called
	closed  atomic.Bool // no further frames may be written

	idleMu    sync.Mutex
	idle      time.Duration
	idleTimer *time.Timer
	// listeners added by SetTimeout
	idleListeners []*listener
}

var _ EventSocket = (*Socket)(nil)

// NewSocket creates a socket reading from and writing to conn. No frames are
// read until Start is called, so listeners can be added first.
func NewSocket(conn Conn, opts ...SocketOption) *Socket {
	s := &Socket{
		id:     uuid.NewString(),
		conn:   conn,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("socket", s.id))

	ctx, cancel := context.WithCancelCause(context.Background())
	s.ctx = context.WithValue(ctx, socketKey, s)
	s.ctxCancel = cancel
	return s
}

// ID returns a unique identifier for the socket.
func (s *Socket) ID() string {
	return s.id
}

// Context returns a context that is cancelled when the socket is closed. The
// socket can be retrieved from it with FromContext.
func (s *Socket) Context() context.Context {
	return s.ctx
}

// Start begins reading frames from the connection. Calling Start more than
// once, or after Close, has no effect.
func (s *Socket) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.readMessages()
}

// IsClosed returns true once the socket has been closed by either side.
func (s *Socket) IsClosed() bool {
	return s.closed.Load()
}

// Send writes text as a single text frame. callback, if not nil, is called on
// the dispatch queue once the frame has been written or the write failed.
// Send never blocks.
func (s *Socket) Send(text string, callback func(error)) {
	s.write(MessageText, []byte(text), callback)
}

// SendBinary writes data as a single binary frame. See Send.
func (s *Socket) SendBinary(data []byte, callback func(error)) {
	s.write(MessageBinary, data, callback)
}

func (s *Socket) write(typ MessageType, data []byte, callback func(error)) {
	if s.closed.Load() || s.ending.Load() {
		s.complete(callback, ErrClosed)
		return
	}
	s.writes.push(func() {
		err := ErrClosed
		if !s.closed.Load() {
			err = s.writeFrame(typ, data)
		}
		s.complete(callback, err)
	})
}

func (s *Socket) writeFrame(typ MessageType, data []byte) error {
	ctx := s.ctx
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	err := s.conn.WriteMessage(ctx, typ, data)
	if err != nil {
		s.logger.Debug("write failed", slog.Any("error", err))
		return fmt.Errorf("write message: %w", err)
	}
	s.logger.Debug("frame sent", slog.Any("frame", frame{typ, data}))
	s.touch()
	return nil
}

// complete schedules callback on the dispatch queue
func (s *Socket) complete(callback func(error), err error) {
	if callback == nil {
		return
	}
	s.events.push(func() { callback(err) })
}

// End performs the closing handshake once all frames passed to Send before
// End have been written. No further frames may be sent. The "close" event is
// emitted when the handshake completes.
func (s *Socket) End() {
	if s.closed.Load() || !s.ending.CompareAndSwap(false, true) {
		return
	}
	s.writes.push(func() {
		if s.closed.Load() {
			return
		}
		err := s.conn.Close(StatusNormalClosure, "")
		if err != nil {
			s.logger.Debug("close handshake failed", slog.Any("error", err))
		}
	})
}

// shutdown performs the closing handshake with the given status without
// waiting for pending frames.
func (s *Socket) shutdown(status StatusCode, reason string) error {
	s.ending.Store(true)
	s.closed.Store(true)
	s.stopIdleTimer()
	return s.conn.Close(status, reason)
}

// Close closes the connection immediately without a closing handshake. Frames
// not yet written are discarded and their callbacks receive an error. Close is
// idempotent.
func (s *Socket) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.closed.Store(true)
	s.ctxCancel(ErrClosed)
	s.stopIdleTimer()
	err := s.conn.CloseNow()
	if s.started.CompareAndSwap(false, true) {
		// Read loop never started; it would have emitted "close"
		s.dispatch(EventClose)
	}
	return err
}

// SetTimeout emits a "timeout" event after the socket has been idle, neither
// reading nor writing a frame, for the duration d. The event does not close
// the socket. If callback is not nil, it is added as a one-time "timeout"
// listener.
//
// A duration <= 0 disables the idle timeout and removes every callback
// previously passed to SetTimeout that has not been called yet. Functions
// cannot be compared, so callback itself is ignored in that case. Listeners
// added with On or Once are kept.
func (s *Socket) SetTimeout(d time.Duration, callback func()) {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	if d > 0 {
		if callback != nil {
			s.idleListeners = append(s.idleListeners, s.once(EventTimeout, callback))
		}
	} else {
		for _, l := range s.idleListeners {
			s.remove(EventTimeout, l)
		}
		s.idleListeners = nil
	}
	s.idle = d
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if d > 0 && !s.closed.Load() {
		s.idleTimer = time.AfterFunc(d, s.onIdle)
	}
}

// touch restarts the idle timer after socket activity
func (s *Socket) touch() {
	s.idleMu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idle)
	}
	s.idleMu.Unlock()
}

func (s *Socket) stopIdleTimer() {
	s.idleMu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.idleMu.Unlock()
}

func (s *Socket) onIdle() {
	if s.closed.Load() {
		return
	}
	s.dispatch(EventTimeout)
}

// dispatch emits the event on the dispatch queue
func (s *Socket) dispatch(event string, args ...any) {
	s.events.push(func() {
		if err := s.Emit(event, args...); err != nil {
			s.logger.Error("calling listener", slog.Any("error", err))
		}
	})
}

// readMessages reads frames from the connection and emits them until the
// connection fails or is closed.
func (s *Socket) readMessages() {
	for {
		typ, data, err := s.conn.ReadMessage(s.ctx)
		if err != nil {
			s.finish(err)
			return
		}
		s.touch()
		s.logger.Debug("frame received", slog.Any("frame", frame{typ, data}))

		switch typ {
		case MessageText:
			s.dispatch(EventText, string(data))
		case MessageBinary:
			s.dispatch(EventBinary, data)
		default:
			s.logger.Debug("ignoring frame", slog.Any("type", typ))
		}
	}
}

// finish tears the socket down after the read loop stopped with err
func (s *Socket) finish(err error) {
	expected := s.closing.Load() || s.ending.Load()
	var closeErr *CloseError
	if errors.As(err, &closeErr) && closeErr.Normal() {
		expected = true
	}

	s.closed.Store(true)
	s.stopIdleTimer()
	if expected {
		s.ctxCancel(ErrClosed)
	} else {
		s.ctxCancel(err)
	}
	_ = s.conn.CloseNow()

	if !expected {
		err = fmt.Errorf("read message: %w", err)
		s.logger.Debug("connection failed", slog.Any("error", err))
		s.dispatch(EventError, err)
	}
	s.dispatch(EventClose)
}
