package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub) *Client {
	return &Client{
		hub:   hub,
		send:  make(chan []byte, sendBufferSize),
		attrs: HandshakeAttributes{UserID: "u1", Username: "alice"},
	}
}

func TestHubSubscribePublish(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	hub.register(c)
	hub.subscribe(c, "/topic/notifications")

	hub.Publish("/topic/notifications", []byte("hello"))

	select {
	case msg := <-c.send:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("expected a message on the client's send channel")
	}
}

func TestHubPublishToUnsubscribedTopicIsNoop(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	hub.register(c)

	hub.Publish("/user/u1/topic/results", []byte("x"))

	assert.Empty(t, c.send)
}

func TestHubUnregisterRemovesAllSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	hub.register(c)
	hub.subscribe(c, "/topic/a")
	hub.subscribe(c, "/topic/b")
	require.Equal(t, 1, hub.ConnectedCount())

	hub.unregister(c)

	assert.Equal(t, 0, hub.ConnectedCount())
	assert.Equal(t, 0, hub.SubscriberCount("/topic/a"))
	assert.Equal(t, 0, hub.SubscriberCount("/topic/b"))

	// The send channel is closed so writePump exits.
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubUnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	hub.register(c)
	hub.unregister(c)
	assert.NotPanics(t, func() { hub.unregister(c) })
}

func TestHubDropsMessageWhenClientBufferFull(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register(c)
	hub.subscribe(c, "/topic/x")

	hub.Publish("/topic/x", []byte("one"))
	hub.Publish("/topic/x", []byte("two")) // buffer full, dropped

	assert.Len(t, c.send, 1)
	assert.Equal(t, "one", string(<-c.send))
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient(hub)
			hub.register(c)
			hub.subscribe(c, "/topic/shared")
			hub.Publish("/topic/shared", []byte("m"))
			hub.ConnectedCount()
			hub.unregister(c)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.ConnectedCount())
}
