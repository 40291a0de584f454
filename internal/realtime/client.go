package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client is one realtime session. It is created after a successful handshake
// and holds the handshake attributes until a CONNECT frame promotes it to an
// authenticated session with a principal.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	attrs HandshakeAttributes

	// principal is nil until a CONNECT frame is accepted. Only the reader
	// goroutine touches it.
	principal *Principal
}

func newClient(hub *Hub, conn *websocket.Conn, attrs HandshakeAttributes) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		attrs: attrs,
	}
}

// readPump consumes frames from the connection until it closes, then removes
// the session from the hub. One reader goroutine per connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		slog.Info("realtime connection closed", "username", c.attrs.Username, "connected", c.hub.ConnectedCount())
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("realtime read error", "username", c.attrs.Username, "err", err)
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("malformed frame")
			continue
		}
		if !c.handleFrame(frame) {
			return
		}
	}
}

// handleFrame processes one inbound frame. Returns false when the session
// must terminate.
func (c *Client) handleFrame(frame Frame) bool {
	switch frame.Command {
	case CommandConnect:
		// The username attribute is only ever set by the handshake; its
		// absence means this connection bypassed authentication somehow.
		// Suppress the frame and drop the connection.
		if c.attrs.Username == "" {
			slog.Warn("CONNECT without handshake identity, closing", "user_id", c.attrs.UserID)
			return false
		}
		c.principal = &Principal{
			Name:      c.attrs.Username,
			UserID:    c.attrs.UserID,
			Authority: AuthorityUser,
		}
		c.sendFrame(Frame{Command: CommandConnected})
		return true

	case CommandSubscribe:
		if c.principal == nil {
			c.sendError("not connected")
			return true
		}
		if frame.Destination == "" {
			c.sendError("missing destination")
			return true
		}
		c.hub.subscribe(c, frame.Destination)
		slog.Debug("realtime subscribe", "username", c.principal.Name, "destination", frame.Destination)
		return true

	case CommandUnsubscribe:
		if c.principal == nil {
			c.sendError("not connected")
			return true
		}
		c.hub.unsubscribe(c, frame.Destination)
		return true

	case CommandSend:
		if c.principal == nil {
			c.sendError("not connected")
			return true
		}
		// Client-to-server sends are observational only; they are logged
		// and not relayed to other sessions.
		slog.Debug("realtime send", "username", c.principal.Name, "destination", frame.Destination)
		return true

	case CommandPing:
		// Connectivity check, echoes the body back.
		c.sendFrame(Frame{Command: CommandPong, Body: frame.Body})
		return true

	case CommandDisconnect:
		return false

	default:
		c.sendError("unknown command")
		return true
	}
}

func (c *Client) sendFrame(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) sendError(detail string) {
	c.sendFrame(Frame{Command: CommandError, Body: json.RawMessage(`"` + detail + `"`)})
}

// writePump flushes the send channel to the connection and keeps the
// connection alive with periodic pings. One writer goroutine per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
