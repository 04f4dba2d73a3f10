package syncer

import (
	"context"

	"hardword-service/internal/realtime"
	"github.com/gorilla/websocket"
)

// WSDialer dials the service's per-event websocket channel.
type WSDialer struct {
	// URL is the full ws:// or wss:// endpoint including the eventId query.
	URL    string
	dialer *websocket.Dialer
}

func NewWSDialer(url string) *WSDialer {
	return &WSDialer{URL: url, dialer: websocket.DefaultDialer}
}

func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	wc := &wsConn{conn: conn, msgs: make(chan realtime.Message, 16)}
	go wc.readLoop()
	return wc, nil
}

type wsConn struct {
	conn *websocket.Conn
	msgs chan realtime.Message
}

func (c *wsConn) Messages() <-chan realtime.Message {
	return c.msgs
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// readLoop decodes pushed notifications until the connection drops, then
// closes Messages so the syncer falls back.
func (c *wsConn) readLoop() {
	defer close(c.msgs)
	for {
		var msg realtime.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.msgs <- msg
	}
}
