// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package charger

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxDatagram is the receive buffer size for a single charger response
const maxDatagram = 1024

// Transport carries one request and its response. Implementations must honour
// the context deadline.
type Transport interface {
	RoundTrip(ctx context.Context, request string) (string, error)
	Close() error
	String() string
}

// UDPTransport sends each request from a fresh UDP socket, the way the charger
// app does
type UDPTransport struct {
	addr string
}

// NewUDPTransport creates a transport for the charger at host:port
func NewUDPTransport(host string, port int) *UDPTransport {
	return &UDPTransport{addr: net.JoinHostPort(host, strconv.Itoa(port))}
}

// RoundTrip sends request and waits for one datagram
func (u *UDPTransport) RoundTrip(ctx context.Context, request string) (string, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", u.addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", u.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", err
		}
	}

	if _, err := conn.Write([]byte(request)); err != nil {
		return "", fmt.Errorf("send to %s: %w", u.addr, err)
	}

	buf := make([]byte, maxDatagram)
	n, err := conn.Read(buf)
	if err != nil {
		return "", wrapTimeout(err)
	}
	return string(buf[:n]), nil
}

// Close is a no-op; sockets are per request
func (u *UDPTransport) Close() error {
	return nil
}

func (u *UDPTransport) String() string {
	return "UDP: " + u.addr
}

// WebSocketTransport forwards requests through a relay that bridges text
// frames to the charger's UDP port
type WebSocketTransport struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	url    string
	closed bool
}

// DialWebSocket opens a relay connection with optional HTTP Basic auth
func DialWebSocket(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (*WebSocketTransport, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketTransport{conn: conn, url: wsURL}, nil
}

// RoundTrip writes request as a text frame and returns the next text frame
func (w *WebSocketTransport) RoundTrip(ctx context.Context, request string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return "", ErrClosed
	}

	// zero deadline means none
	deadline, _ := ctx.Deadline()
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return "", err
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(request)); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}

	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			// gorilla connections are unusable after a read error
			w.closed = true
			return "", wrapTimeout(err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return strings.TrimSpace(string(data)), nil
	}
}

// Close closes the relay connection
func (w *WebSocketTransport) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.conn.Close()
}

func (w *WebSocketTransport) String() string {
	return "WebSocket: " + w.url
}

func wrapTimeout(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
