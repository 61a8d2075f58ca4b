// This package enables the use of the github.com/gorilla/websocket package with
// the jsonsocket library. It provides an adapter between a Conn from the
// github.com/gorilla/websocket package and a Conn in the jsonsocket library.
package gorilla

import (
	"context"
	"errors"
	"time"

	jsonsocket "github.com/bminer/ws-json-socket-go"
	"github.com/gorilla/websocket"
)

// CloseTimeout bounds how long Close waits for the peer to answer the close
// frame before the connection is dropped.
const CloseTimeout = 5 * time.Second

// Wrap wraps a websocket.Conn from github.com/gorilla/websocket as a
// jsonsocket.Conn. gorilla connections do not accept a context, so
// cancellation is implemented with read and write deadlines.
func Wrap(c *websocket.Conn) jsonsocket.Conn {
	return conn{c}
}

// conn implements the jsonsocket.Conn interface for a websocket.Conn
type conn struct {
	*websocket.Conn
}

// ReadMessage reads a single data frame from the connection
func (c conn) ReadMessage(
	ctx context.Context,
) (jsonsocket.MessageType, []byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.Conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.Conn.SetReadDeadline(time.Now())
	})
	defer stop()

	typ, data, err := c.Conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, convertError(err)
	}
	if typ == websocket.BinaryMessage {
		return jsonsocket.MessageBinary, data, nil
	}
	return jsonsocket.MessageText, data, nil
}

// WriteMessage writes a single data frame to the connection
func (c conn) WriteMessage(
	ctx context.Context, typ jsonsocket.MessageType, data []byte,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline() // zero means no deadline
	if err := c.Conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.Conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	wsTyp := websocket.TextMessage
	if typ == jsonsocket.MessageBinary {
		wsTyp = websocket.BinaryMessage
	}
	err := c.Conn.WriteMessage(wsTyp, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

// Close sends a close frame with the given status code and reason. The
// connection is dropped once the peer answers or after CloseTimeout.
func (c conn) Close(statusCode jsonsocket.StatusCode, reason string) error {
	deadline := time.Now().Add(CloseTimeout)
	err := c.Conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(int(statusCode), reason),
		deadline,
	)
	if err != nil {
		_ = c.Conn.Close()
		return err
	}
	// The reader receives the peer's close frame or times out
	return c.Conn.SetReadDeadline(deadline)
}

// CloseNow closes the underlying network connection
func (c conn) CloseNow() error {
	return c.Conn.Close()
}

// convertError translates a close frame received from the peer
func convertError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &jsonsocket.CloseError{
			Code:   jsonsocket.StatusCode(ce.Code),
			Reason: ce.Text,
		}
	}
	return err
}
