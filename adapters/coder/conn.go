// This package enables the use of the github.com/coder/websocket package with
// the jsonsocket library. It provides an adapter between a Conn from the
// github.com/coder/websocket package and a Conn in the jsonsocket library.
package coder

import (
	"context"
	"errors"

	jsonsocket "github.com/bminer/ws-json-socket-go"
	"github.com/coder/websocket"
)

// Wrap wraps a websocket.Conn from github.com/coder/websocket as a
// jsonsocket.Conn that can be passed to jsonsocket.Wrap, jsonsocket.NewSocket
// or jsonsocket.Server.Accept.
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
	typ, data, err := c.Conn.Read(ctx)
	if err != nil {
		return 0, nil, convertError(err)
	}
	return messageType(typ), data, nil
}

// WriteMessage writes a single data frame to the connection
func (c conn) WriteMessage(
	ctx context.Context, typ jsonsocket.MessageType, data []byte,
) error {
	wsTyp := websocket.MessageText
	if typ == jsonsocket.MessageBinary {
		wsTyp = websocket.MessageBinary
	}
	return c.Conn.Write(ctx, wsTyp, data)
}

// Close performs the WebSocket close handshake with the given status code and reason
func (c conn) Close(statusCode jsonsocket.StatusCode, reason string) error {
	return c.Conn.Close(websocket.StatusCode(statusCode), reason)
}

// CloseNow closes the WebSocket connection without attempting a close handshake
func (c conn) CloseNow() error {
	return c.Conn.CloseNow()
}

func messageType(typ websocket.MessageType) jsonsocket.MessageType {
	if typ == websocket.MessageBinary {
		return jsonsocket.MessageBinary
	}
	return jsonsocket.MessageText
}

// convertError translates a close frame received from the peer
func convertError(err error) error {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return &jsonsocket.CloseError{
			Code:   jsonsocket.StatusCode(ce.Code),
			Reason: ce.Reason,
		}
	}
	return err
}
