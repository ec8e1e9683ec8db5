// Package chatsocket provides the real-time chat session created by a Mixer
// client. The socket only manages connections; framing and the chat method
// protocol are left to the caller.
package chatsocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Static errors.
var (
	ErrNoEndpoints  = errors.New("no chat endpoints configured")
	ErrNotConnected = errors.New("chat socket is not connected")
)

// Options configure a Socket.
type Options struct {
	// ClientID is sent as the Client-ID handshake header when non-nil.
	ClientID *string
	// Header holds extra handshake headers, e.g. Authorization.
	Header http.Header
	// UserAgent is sent as the User-Agent handshake header when set.
	UserAgent string
}

// Socket is a chat session bound to a transport and a list of candidate
// endpoints. It is created disconnected.
type Socket struct {
	transport Transport
	endpoints []string
	opts      Options

	mu      sync.Mutex
	next    int
	conn    Conn
	current string

	writeMu sync.Mutex
}

// New builds a socket. It performs no I/O. A nil transport selects the
// WebSocket transport.
func New(transport Transport, endpoints []string, opts Options) *Socket {
	if transport == nil {
		transport = NewWebSocketTransport()
	}

	return &Socket{
		transport: transport,
		endpoints: append([]string(nil), endpoints...),
		opts:      opts,
	}
}

// Endpoints returns the candidate endpoints.
func (s *Socket) Endpoints() []string {
	return append([]string(nil), s.endpoints...)
}

// ClientID returns the client id the socket identifies with, or nil.
func (s *Socket) ClientID() *string {
	return s.opts.ClientID
}

// Options returns the socket options.
func (s *Socket) Options() Options {
	return s.opts
}

// Endpoint returns the endpoint of the live connection, or "".
func (s *Socket) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Connect dials the endpoints round-robin, starting after the endpoint used
// last, until one succeeds. An existing connection is closed first.
func (s *Socket) Connect(ctx context.Context) error {
	if len(s.endpoints) == 0 {
		return ErrNoEndpoints
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn, s.current = nil, ""
	}

	header := s.handshakeHeader()

	var errs []error

	for range s.endpoints {
		endpoint := s.endpoints[s.next%len(s.endpoints)]
		s.next = (s.next + 1) % len(s.endpoints)

		conn, err := s.transport.Dial(ctx, endpoint, header)
		if err == nil {
			s.conn, s.current = conn, endpoint

			return nil
		}

		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("connecting chat socket: %w", errors.Join(errs...))
}

func (s *Socket) handshakeHeader() http.Header {
	header := s.opts.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	if s.opts.ClientID != nil {
		header.Set("Client-ID", *s.opts.ClientID)
	}

	if s.opts.UserAgent != "" {
		header.Set("User-Agent", s.opts.UserAgent)
	}

	return header
}

func (s *Socket) connection() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, ErrNotConnected
	}

	return s.conn, nil
}

// Send writes v as a JSON text message.
func (s *Socket) Send(v any) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding chat message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = conn.WriteMessage(TextMessage, data)
	if err != nil {
		return fmt.Errorf("writing chat message: %w", err)
	}

	return nil
}

// Receive blocks for the next message and returns its payload.
func (s *Socket) Receive() (json.RawMessage, error) {
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading chat message: %w", err)
	}

	return data, nil
}

// Close closes the live connection, if any.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn, s.current = nil, ""

	if err != nil {
		return fmt.Errorf("closing chat socket: %w", err)
	}

	return nil
}
