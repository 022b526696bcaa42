package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pulsewall/pulsewall/internal/infrastructure/logging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/metrics"
)

// Core is the hub goroutine that serializes all room membership changes and
// broadcasts. Publishes for the same room are delivered in the order Publish
// was called.
type Core struct {
	registry   *Registry
	register   chan *Client
	unregister chan *Client
	membership chan membershipChange
	broadcast  chan *WSMessage
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

type membershipChange struct {
	client  *Client
	eventID string
	join    bool
}

func NewCore(logger logging.Logger) *Core {
	return &Core{
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membershipChange, 64),
		broadcast:  make(chan *WSMessage, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced at the HTTP layer
			},
		},
		logger: logger,
	}
}

func (c *Core) Run() {
	for {
		select {
		case <-c.register:
			metrics.WebsocketConnections.Inc()

		case cl := <-c.unregister:
			affected := c.registry.LeaveAll(cl)
			for eventID, count := range affected {
				c.registry.Deliver(NewUserCount(eventID, count))
			}
			close(cl.send)
			metrics.WebsocketConnections.Dec()

		case change := <-c.membership:
			c.applyMembership(change)

		case msg := <-c.broadcast:
			c.registry.Deliver(msg)

		case <-c.done:
			return
		}
	}
}

func (c *Core) applyMembership(change membershipChange) {
	if change.join {
		count := c.registry.Join(change.client, change.eventID)
		c.registry.Deliver(NewUserCount(change.eventID, count))
		c.logger.Debug(logging.Websocket, logging.RoomMembership, "client joined room", map[logging.ExtraKey]any{
			logging.EventID: change.eventID,
			"count":         count,
		})
		return
	}

	count, wasMember := c.registry.Leave(change.client, change.eventID)
	if !wasMember {
		return
	}
	c.registry.Deliver(NewUserCount(change.eventID, count))
	c.logger.Debug(logging.Websocket, logging.RoomMembership, "client left room", map[logging.ExtraKey]any{
		logging.EventID: change.eventID,
		"count":         count,
	})
}

// Publish queues a message for delivery to the room's current members.
func (c *Core) Publish(msg *WSMessage) {
	select {
	case c.broadcast <- msg:
	case <-c.done:
	}
}

func (c *Core) Register() chan<- *Client {
	return c.register
}

func (c *Core) Unregister() chan<- *Client {
	return c.unregister
}

func (c *Core) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return c.upgrader.Upgrade(w, r, nil)
}

func (c *Core) Stop() {
	close(c.done)
}
