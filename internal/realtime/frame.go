package realtime

import "encoding/json"

// Frame commands accepted from and sent to clients. The protocol is a small
// JSON framing over the websocket: every message is one Frame.
const (
	CommandConnect     = "CONNECT"
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandSend        = "SEND"
	CommandDisconnect  = "DISCONNECT"
	CommandPing        = "PING"
	CommandPong        = "PONG"
	CommandMessage     = "MESSAGE"
	CommandError       = "ERROR"
)

// Frame is one protocol message. Destination is set on SUBSCRIBE, UNSUBSCRIBE,
// SEND and MESSAGE frames; Body carries the application payload.
type Frame struct {
	Command     string          `json:"command"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Principal is the identity attached to a session once its CONNECT frame has
// been accepted. Every session carries the same single authority.
type Principal struct {
	Name      string
	UserID    string
	Authority string
}

// AuthorityUser is the fixed authority granted to authenticated sessions.
const AuthorityUser = "USER"

// HandshakeAttributes are captured during the pre-upgrade handshake and
// inherited by the protocol session. A zero Username means the handshake
// never ran for this connection and CONNECT must be refused.
type HandshakeAttributes struct {
	Token    string
	UserID   string
	Username string
}
