package jsonsocket

import (
	"context"
	"fmt"
)

// MessageType is the type of a WebSocket data frame.
type MessageType int

const (
	// MessageText is a UTF-8 text frame. Each text frame carries exactly one
	// JSON document.
	MessageText MessageType = iota + 1
	// MessageBinary is a binary frame. Binary frames are emitted as "binary"
	// events and never parsed as JSON.
	MessageBinary
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Conn represents a WebSocket connection that can read and write frames.
// ReadMessage may not be called concurrently, and one must always read from the
// connection to properly handle control frames. WriteMessage is never called
// concurrently by Socket.
type Conn interface {
	// ReadMessage reads a single data frame from the WebSocket connection. The
	// context is used to cancel the read operation. When the peer closes the
	// connection, implementations should return a *CloseError.
	ReadMessage(ctx context.Context) (MessageType, []byte, error)
	// WriteMessage writes a single data frame to the WebSocket connection. The
	// context is used to cancel the write operation.
	WriteMessage(ctx context.Context, typ MessageType, data []byte) error
	// Close closes the WebSocket connection with the given status code and
	// reason.
	Close(statusCode StatusCode, reason string) error
	// CloseNow closes the WebSocket connection immediately without waiting for
	// any pending operations to complete.
	CloseNow() error
}

// CloseError is returned by Conn.ReadMessage when the peer sent a close frame.
type CloseError struct {
	Code   StatusCode
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: status = %v and reason = %q",
		e.Code, e.Reason)
}

// Normal reports whether the peer closed the connection without an error
// condition.
func (e *CloseError) Normal() bool {
	return e.Code == StatusNormalClosure || e.Code == StatusGoingAway ||
		e.Code == StatusNoStatusRcvd
}
