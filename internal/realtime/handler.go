package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// TokenVerifier resolves a bearer credential to a canonical username.
// Verification failures reject the handshake before the connection upgrades.
type TokenVerifier interface {
	VerifyToken(token string) (username string, err error)
}

// Handler authenticates and upgrades incoming realtime connections.
type Handler struct {
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, verifier TokenVerifier, allowedOrigins []string) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := allowedSet[r.Header.Get("Origin")]
		return ok
	}
}

// ServeHTTP runs the handshake. The credential travels as a query parameter
// because browsers cannot set custom headers on a websocket upgrade request.
// A missing or invalid token is a hard rejection: the connection never
// upgrades and no session attributes are produced.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		slog.Info("realtime handshake rejected, missing token", "remote", r.RemoteAddr)
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	username, err := h.verifier.VerifyToken(token)
	if err != nil {
		slog.Info("realtime handshake rejected, invalid token", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	attrs := HandshakeAttributes{
		Token:    token,
		UserID:   r.URL.Query().Get("userId"),
		Username: username,
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Warn("realtime upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := newClient(h.hub, conn, attrs)
	h.hub.register(client)
	slog.Info("realtime connection established", "username", username, "user_id", attrs.UserID, "connected", h.hub.ConnectedCount())

	go client.writePump()
	go client.readPump()
}
