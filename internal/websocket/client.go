package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"doc-assistant-be/internal/dispatcher"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// inboundEvent is the single-field message format of the transport contract.
type inboundEvent struct {
	Message string `json:"message"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Session token bound to this connection
	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte

	// Pipeline entry point
	Dispatcher *dispatcher.Dispatcher

	// Cancelled when the connection goes away; aborts in-flight generation
	ctx    context.Context
	cancel context.CancelFunc
}

// readPump pumps messages from the websocket connection into the pipeline.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			break
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			// Plain text frames are accepted as bare messages
			event.Message = string(raw)
		}

		// Each message runs in its own goroutine; the session's busy gate
		// rejects overlap, so a slow generation never blocks the read loop
		// or other sessions.
		go c.process(event.Message)
	}
}

func (c *Client) process(text string) {
	response := c.Dispatcher.HandleMessage(c.ctx, c.SessionID, text)

	if c.ctx.Err() != nil {
		// Connection is gone; drop the response instead of emitting to a
		// closed channel
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	c.Hub.Send(c.SessionID, data)
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
