package ws

import (
	"encoding/json"
	"log"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection. A single connection can join any number
// of event rooms; join/leave frames are multiplexed over it.
type Client struct {
	conn *connWrapper
	send chan *WSMessage
	ID   string `json:"id"`
}

func NewClient(conn *websocket.Conn, id string) *Client {
	return &Client{
		conn: newConnWrapper(conn),
		send: make(chan *WSMessage, 64), // buffered to avoid dead-locks on slow clients
		ID:   id,
	}
}

// ReadMessage pumps join/leave frames from the connection into the hub.
// Unknown frame types are answered with an error frame and ignored.
func (c *Client) ReadMessage(core *Core) {
	defer func() {
		core.Unregister() <- c
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			break
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			_ = c.conn.WriteJSON(NewError("", "malformed frame"))
			continue
		}

		switch frame.Type {
		case JoinEvent:
			if frame.EventID == "" {
				_ = c.conn.WriteJSON(NewError("", "eventId is required"))
				continue
			}
			core.membership <- membershipChange{client: c, eventID: frame.EventID, join: true}
		case LeaveEvent:
			core.membership <- membershipChange{client: c, eventID: frame.EventID, join: false}
		default:
			_ = c.conn.WriteJSON(NewError(frame.EventID, "unknown frame type"))
		}
	}
}

// WriteMessage drains the send buffer to the connection.
func (c *Client) WriteMessage() {
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error (client %s): %v", c.ID, err)
			break
		}
	}
}
