package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	maxFrameSize     = 1 << 20
)

// Dialer opens the upstream notification feed with gorilla/websocket.
type Dialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewDialer returns a feed dialer. A non-empty token is sent as a bearer
// Authorization header during the handshake.
func NewDialer(token string) *Dialer {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &Dialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header: header,
	}
}

func (d *Dialer) Dial(ctx context.Context, url string) (domain.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxFrameSize)
	return &feedConn{conn: conn}, nil
}

type feedConn struct {
	conn *websocket.Conn
}

// ReadMessage returns the next text frame. Binary frames are skipped.
func (c *feedConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *feedConn) Close() error {
	return c.conn.Close()
}
