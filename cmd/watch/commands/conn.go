package commands

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// dial opens a websocket to the hub. The connection is closed when ctx ends.
func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	context.AfterFunc(ctx, func() { _ = conn.Close() })
	return conn, nil
}

// readLoop hands every message read from conn to fn until fn returns false,
// the connection fails or ctx ends.
func readLoop(ctx context.Context, conn *websocket.Conn, fn func([]byte) bool) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		if !fn(msg) {
			return nil
		}
	}
}
