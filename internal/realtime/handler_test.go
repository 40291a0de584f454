package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	username string
	err      error
}

func (f *fakeVerifier) VerifyToken(token string) (string, error) {
	return f.username, f.err
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
}

func TestHandshakeMissingTokenRejected(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{username: "alice"}, []string{"*"}))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "userId=u1"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, hub.ConnectedCount())
}

func TestHandshakeInvalidTokenRejected(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{err: errors.New("expired")}, []string{"*"}))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=bad&userId=u1"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, hub.ConnectedCount())
}

func TestHandshakeValidTokenUpgrades(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{username: "alice"}, []string{"*"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=good&userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ConnectedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestConnectFrameAttachesPrincipal(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{username: "alice"}, []string{"*"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=good&userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{Command: CommandConnect}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply Frame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, CommandConnected, reply.Command)
}

func TestSubscribeBeforeConnectRejected(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{username: "alice"}, []string{"*"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=good&userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{Command: CommandSubscribe, Destination: "/topic/notifications"}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply Frame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, CommandError, reply.Command)
	assert.Equal(t, 0, hub.SubscriberCount("/topic/notifications"))
}

func TestSubscribeThenReceivePublishedEvent(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{username: "alice"}, []string{"*"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=good&userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{Command: CommandConnect}))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var connected Frame
	require.NoError(t, conn.ReadJSON(&connected))

	dest := UserTopic("u1", TopicResults)
	require.NoError(t, conn.WriteJSON(Frame{Command: CommandSubscribe, Destination: dest}))
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(dest) == 1
	}, time.Second, 10*time.Millisecond)

	NewPublisher(hub).NotifyResultReady("u1", map[string]string{"result_id": "r1"})

	var msg Frame
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, CommandMessage, msg.Command)
	assert.Equal(t, dest, msg.Destination)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	assert.Equal(t, EventNewResult, env.Event)
	assert.NotEmpty(t, env.Timestamp)
}

func TestPingEchoesBody(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, &fakeVerifier{username: "alice"}, []string{"*"}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token=good&userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Frame{Command: CommandPing, Body: json.RawMessage(`"hello"`)}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply Frame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, CommandPong, reply.Command)
	assert.JSONEq(t, `"hello"`, string(reply.Body))
}

func TestConnectWithoutHandshakeIdentityCloses(t *testing.T) {
	// A client that somehow reached frame processing without handshake
	// attributes must be dropped on CONNECT.
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register(c)

	keep := c.handleFrame(Frame{Command: CommandConnect})

	assert.False(t, keep)
	assert.Nil(t, c.principal)
}
