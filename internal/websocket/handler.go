package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
)

// ServeWs streams status snapshots to the peer until either side goes away.
// It returns only after both pumps have stopped touching the connection.
func ServeWs(hub *Hub, c *websocket.Conn, subject string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{Hub: hub, Conn: c, Subject: subject, sub: hub.source.Subscribe(ctx)}
	hub.join(client)

	written := make(chan struct{})
	go func() {
		client.writePump()
		close(written)
	}()
	client.readPump()
	cancel()
	<-written
}
