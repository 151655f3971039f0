package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live connection to the chat gateway
type Conn interface {
	// ReadEvent blocks until the next gateway event or a read error
	ReadEvent() (*Event, error)
	// SendText delivers one outbound message within the given timeout
	SendText(destination, text string, timeout time.Duration) error
	// Logout asks the gateway to terminate the session permanently
	Logout() error
	Close() error
}

// Transport dials the chat gateway. Tests substitute a synthetic
// implementation so the state machine runs without a live network.
type Transport interface {
	Dial(ctx context.Context, credentials []byte) (Conn, error)
}

// wire frames exchanged with the gateway
type gatewayFrame struct {
	Type   string `json:"type"`
	Data   string `json:"data,omitempty"` // base64 for credentials/challenge
	Reason string `json:"reason,omitempty"`
	To     string `json:"to,omitempty"`
	Text   string `json:"text,omitempty"`
}

// WSTransport connects to the gateway over WebSocket
type WSTransport struct {
	url            string
	token          string
	connectTimeout time.Duration
}

// NewWSTransport creates a WebSocket transport for the given gateway URL
func NewWSTransport(url, token string, connectTimeout time.Duration) *WSTransport {
	return &WSTransport{url: url, token: token, connectTimeout: connectTimeout}
}

// Dial opens a gateway connection, resuming with stored credentials when present
func (t *WSTransport) Dial(ctx context.Context, credentials []byte) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.connectTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, t.url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	wc := &wsConn{conn: conn}

	// Hand stored credentials to the gateway so it can resume the
	// session instead of starting a fresh pairing.
	if len(credentials) > 0 {
		frame := gatewayFrame{Type: "resume", Data: base64.StdEncoding.EncodeToString(credentials)}
		if err := wc.writeFrame(frame, t.connectTimeout); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to send resume frame: %w", err)
		}
	}

	return wc, nil
}

// wsConn wraps a gorilla websocket connection. Reads happen from a single
// goroutine (the session loop); writes are serialized with a mutex because
// Send and Logout race with each other.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) ReadEvent() (*Event, error) {
	var frame gatewayFrame
	if err := c.conn.ReadJSON(&frame); err != nil {
		return nil, err
	}

	switch EventType(frame.Type) {
	case EventCredentials:
		blob, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return nil, fmt.Errorf("bad credentials payload: %w", err)
		}
		return &Event{Type: EventCredentials, Credentials: blob}, nil

	case EventChallenge:
		png, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return nil, fmt.Errorf("bad challenge payload: %w", err)
		}
		return &Event{Type: EventChallenge, Challenge: png}, nil

	case EventReady:
		return &Event{Type: EventReady}, nil

	case EventClosed:
		return &Event{Type: EventClosed, CloseReason: frame.Reason}, nil

	default:
		return nil, fmt.Errorf("unknown gateway frame type %q", frame.Type)
	}
}

func (c *wsConn) SendText(destination, text string, timeout time.Duration) error {
	return c.writeFrame(gatewayFrame{Type: "send", To: destination, Text: text}, timeout)
}

func (c *wsConn) Logout() error {
	return c.writeFrame(gatewayFrame{Type: "logout"}, 10*time.Second)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) writeFrame(frame gatewayFrame, timeout time.Duration) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
