// Package wshub adapts websocket connections to the broadcast
// registry's send interface and runs the inbound keep-alive loop.
package wshub

import (
	"context"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Client is a single subscriber connection.
type Client struct {
	ID   string
	conn *websocket.Conn
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		conn: conn,
	}
}

func (c *Client) SendText(ctx context.Context, data string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(data))
}

// Listen blocks reading from the connection until it closes or errors.
// The only inbound message the protocol recognizes is the keep-alive
// token "ping" (case-insensitive), answered with a literal "pong";
// everything else is ignored.
func (c *Client) Listen(ctx context.Context) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(data)), "ping") {
			if err := c.SendText(ctx, "pong"); err != nil {
				return err
			}
		}
	}
}
