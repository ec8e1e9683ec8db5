package chatsocket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zapdos26/client-node/internal/constants"
)

// Message types, matching RFC 6455 opcodes.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Conn is an established socket connection.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Transport opens connections to a chat endpoint.
type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// WebSocketTransport dials endpoints with gorilla/websocket.
type WebSocketTransport struct {
	Dialer *websocket.Dialer
}

// NewWebSocketTransport returns a transport using a proxy-aware dialer with
// the default handshake timeout.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: constants.DefaultHandshakeTimeout,
		},
	}
}

// Dial performs the WebSocket handshake.
func (t *WebSocketTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: %w (status %d)", url, err, resp.StatusCode)
		}

		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	return conn, nil
}
