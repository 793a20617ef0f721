package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pulseplatform/pulse/internal/bus"
)

// WebSocketBufferSize is the read/write buffer size gorilla/websocket
// allocates per connection.
const WebSocketBufferSize = 1024

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  WebSocketBufferSize,
	WriteBufferSize: WebSocketBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// telemetryClient bridges one authenticated WebSocket connection to its
// tenant's Progress Bus channel. There is no
// shared broadcast fan-out here: subscribing to bus.ChannelName(tenantSlug)
// is itself the isolation boundary (Testable Property 9), so a client can
// never observe a Subscription for a channel other than its own tenant's.
type telemetryClient struct {
	conn *websocket.Conn
	sub  *bus.Subscription
	bus  *bus.Bus
}

// readPump drains (and discards) client frames: the dashboard doesn't
// send commands over this socket.
// Its sole job is detecting disconnect so writePump can be released.
func (c *telemetryClient) readPump() {
	defer func() {
		c.bus.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump relays every message delivered on the subscription to the
// WebSocket until Unsubscribe closes the channel.
func (c *telemetryClient) writePump() {
	defer c.conn.Close()

	for msg := range c.sub.Ch {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// adminClient is the same bridge for the admin_health channel.
type adminClient struct {
	conn *websocket.Conn
	sub  *bus.Subscription
	bus  *bus.AdminBus
}

func (c *adminClient) readPump() {
	defer func() {
		c.bus.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *adminClient) writePump() {
	defer c.conn.Close()

	for msg := range c.sub.Ch {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
