package coder

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsonsocket "github.com/bminer/ws-json-socket-go"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Example() {
	// Create a server that echoes every JSON message back to its sender.
	server := jsonsocket.NewServer()
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		s.On(jsonsocket.EventMessage, func(msg any) {
			s.SendMessage(msg, nil)
		})
	})

	// Create HTTP handler function that upgrades the HTTP connection to a
	// WebSocket using the github.com/coder/websocket package.
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// options go here (i.e. cross-origin setting)...
		})
		if err != nil {
			// websocket.Accept already writes the HTTP response
			return
		}
		// Attach the WebSocket connection to the server and start listening
		// for inbound messages.
		server.Accept(Wrap(conn))
	})

	// Start the HTTP server
	log.Fatal(http.ListenAndServe("localhost:8080", h))
}

// newEchoServer starts a server replying to each message with
// {"echo": <message>} and to {"end": true} with an error payload before
// ending the socket.
func newEchoServer(t *testing.T) (*jsonsocket.Server, string) {
	t.Helper()
	server := jsonsocket.NewServer()
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		s.On(jsonsocket.EventMessage, func(msg any) {
			if m, ok := msg.(map[string]any); ok && m["end"] == true {
				s.SendEndError(errBye)
				return
			}
			s.SendMessage(map[string]any{"echo": msg}, nil)
		})
	})
	hs := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			_, _ = server.Accept(Wrap(conn))
		},
	))
	t.Cleanup(func() {
		server.Close()
		hs.Close()
	})
	return server, "ws" + strings.TrimPrefix(hs.URL, "http")
}

type byeError struct{}

func (byeError) Error() string { return "bye" }

var errBye = byeError{}

func TestRoundTrip(t *testing.T) {
	_, url := newEchoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer client.CloseNow()

	require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{"a":1}`)))
	typ, data, err := client.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	assert.JSONEq(t, `{"echo":{"a":1}}`, string(data))

	// Falsy values are normalized to an empty object
	require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`null`)))
	_, data, err = client.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"echo":{}}`, string(data))

	// Invalid JSON is rejected without closing the socket
	require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{oops`)))
	require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`[1]`)))
	_, data, err = client.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"echo":[1]}`, string(data))

	// Error payload followed by a normal closure
	require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{"end":true}`)))
	_, data, err = client.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"success":false,"error":"Error: bye"}`, string(data))
	_, _, err = client.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestPeerCloseClosesSocket(t *testing.T) {
	server := jsonsocket.NewServer()
	closed := make(chan *jsonsocket.JSONSocket, 1)
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		s.On(jsonsocket.EventClose, func() { closed <- s })
	})
	hs := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			_, _ = server.Accept(Wrap(conn))
		},
	))
	defer hs.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, client.Close(websocket.StatusNormalClosure, "done"))

	select {
	case s := <-closed:
		assert.True(t, s.IsClosed())
		called := false
		s.SendMessage("late", func(err error) {
			called = true
			assert.ErrorIs(t, err, jsonsocket.ErrClosed)
		})
		assert.True(t, called)
	case <-time.After(5 * time.Second):
		t.Fatal("socket was not closed")
	}
}
