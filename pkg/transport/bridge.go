// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// BridgePort carries a remote serial line over a websocket. Each binary
// message holds raw line bytes; text messages are ignored.
type BridgePort struct {
	conn *websocket.Conn
	url  string

	mu      sync.Mutex // guards buf and timeout
	buf     []byte
	timeout time.Duration

	msgs      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	errMu   sync.Mutex
	readErr error
}

// DialBridge connects to a websocket serial bridge. The line mode is passed
// to the bridge as query parameters so it can configure the remote port.
func (d *Dialer) DialBridge(rawURL string, mode Mode) (Port, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	q := u.Query()
	q.Set("baud", strconv.Itoa(mode.BaudRate))
	q.Set("framing", mode.Framing())
	u.RawQuery = q.Encode()

	handshake := d.HandshakeTimeout
	if handshake == 0 {
		handshake = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshake}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: d.SkipTLSVerify,
		}
	}

	headers := http.Header{}
	if d.Username != "" && d.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(d.Username + ":" + d.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handshake+5*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("bridge connection failed: %w", err)
	}

	return newBridgePort(conn, rawURL, mode.ReadTimeout), nil
}

func newBridgePort(conn *websocket.Conn, rawURL string, timeout time.Duration) *BridgePort {
	b := &BridgePort{
		conn:    conn,
		url:     rawURL,
		timeout: timeout,
		msgs:    make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// readLoop moves binary messages into msgs until the connection fails.
// A websocket read deadline cannot be used for per-read timeouts because
// gorilla marks the connection broken after the first expiry.
func (b *BridgePort) readLoop() {
	defer close(b.msgs)
	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			b.errMu.Lock()
			b.readErr = err
			b.errMu.Unlock()
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case b.msgs <- data:
		case <-b.done:
			return
		}
	}
}

func (b *BridgePort) Read(p []byte) (int, error) {
	b.mu.Lock()
	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		b.mu.Unlock()
		return n, nil
	}
	timeout := b.timeout
	b.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case data, ok := <-b.msgs:
		if !ok {
			b.errMu.Lock()
			defer b.errMu.Unlock()
			return 0, fmt.Errorf("%w: %v", ErrClosed, b.readErr)
		}
		b.mu.Lock()
		n := copy(p, data)
		b.buf = append(b.buf[:0], data[n:]...)
		b.mu.Unlock()
		return n, nil
	case <-expired:
		return 0, nil
	case <-b.done:
		return 0, ErrClosed
	}
}

func (b *BridgePort) Write(p []byte) (int, error) {
	select {
	case <-b.done:
		return 0, ErrClosed
	default:
	}
	if err := b.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ResetInputBuffer drops buffered bytes and any queued messages
func (b *BridgePort) ResetInputBuffer() error {
	b.mu.Lock()
	b.buf = b.buf[:0]
	b.mu.Unlock()
	for {
		select {
		case _, ok := <-b.msgs:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

// SetReadTimeout sets the per-Read wait; zero or negative blocks indefinitely
func (b *BridgePort) SetReadTimeout(t time.Duration) error {
	b.mu.Lock()
	b.timeout = t
	b.mu.Unlock()
	return nil
}

func (b *BridgePort) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	return err
}

func (b *BridgePort) String() string {
	return "bridge " + b.url
}
