package gorilla

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsonsocket "github.com/bminer/ws-json-socket-go"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func newServer(t *testing.T, server *jsonsocket.Server) string {
	t.Helper()
	hs := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
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
	return "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	return client
}

func TestRoundTrip(t *testing.T) {
	server := jsonsocket.NewServer()
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		s.On(jsonsocket.EventMessage, func(msg any) {
			if m, ok := msg.(map[string]any); ok && m["end"] == true {
				s.SendEndMessage(map[string]any{"bye": true}, nil)
				return
			}
			s.SendMessage(msg, nil)
		})
	})
	client := dial(t, newServer(t, server))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"a":[1,"b"]}`)))
	typ, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, `{"a":[1,"b"]}`, string(data))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`0`)))
	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"end":true}`)))
	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"bye":true}`, string(data))

	// The server ends the socket with a normal closure
	_, _, err = client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestServerCloseGoingAway(t *testing.T) {
	server := jsonsocket.NewServer()
	accepted := make(chan *jsonsocket.JSONSocket, 1)
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		accepted <- s
	})
	client := dial(t, newServer(t, server))

	var s *jsonsocket.JSONSocket
	select {
	case s = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("socket not accepted")
	}
	require.NoError(t, server.Close())
	assert.True(t, s.IsClosed())

	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestDestroy(t *testing.T) {
	server := jsonsocket.NewServer()
	server.On(jsonsocket.EventConnection, func(s *jsonsocket.JSONSocket) {
		s.On(jsonsocket.EventMessage, func() { s.Destroy() })
	})
	client := dial(t, newServer(t, server))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{}`)))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	// Destroy drops the connection without a close frame
	assert.False(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Eventually(t, func() bool {
		return server.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
