package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"doc-assistant-be/internal/dispatcher"
)

// ServeWs handles websocket requests from the peer. Each connection gets a
// fresh session token unless the peer resumes one via the ?session query
// parameter (multi-device).
func ServeWs(hub *Hub, d *dispatcher.Dispatcher, c *websocket.Conn) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		Hub:        hub,
		Conn:       c,
		SessionID:  sessionID,
		Send:       make(chan []byte, 256),
		Dispatcher: d,
		ctx:        ctx,
		cancel:     cancel,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
