package ws

import (
	"sync"

	"github.com/pulsewall/pulsewall/internal/infrastructure/metrics"
)

// Registry tracks which connections are joined to which event rooms. It is
// in-memory and process-local: rebuilt empty on restart, so clients re-join
// after reconnecting.
type Registry struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join adds the client to the event room and returns the new member count.
func (r *Registry) Join(cl *Client, eventID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[eventID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[eventID] = room
	}
	room[cl] = struct{}{}

	count := len(room)
	metrics.RoomMembers.WithLabelValues(eventID).Set(float64(count))
	return count
}

// Leave removes the client from the event room. The boolean reports whether
// the client was actually a member.
func (r *Registry) Leave(cl *Client, eventID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[eventID]
	if !ok {
		return 0, false
	}
	if _, member := room[cl]; !member {
		return len(room), false
	}

	delete(room, cl)
	count := len(room)
	if count == 0 {
		delete(r.rooms, eventID)
	}

	metrics.RoomMembers.WithLabelValues(eventID).Set(float64(count))
	return count, true
}

// LeaveAll removes the client from every room it joined (implicit leave on
// disconnect) and returns the new count per affected room.
func (r *Registry) LeaveAll(cl *Client) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	affected := make(map[string]int)
	for eventID, room := range r.rooms {
		if _, member := room[cl]; !member {
			continue
		}
		delete(room, cl)
		affected[eventID] = len(room)
		metrics.RoomMembers.WithLabelValues(eventID).Set(float64(len(room)))
		if len(room) == 0 {
			delete(r.rooms, eventID)
		}
	}
	return affected
}

func (r *Registry) Count(eventID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[eventID])
}

// Deliver sends the message to every current member of its room. Best-effort:
// members whose buffers are full miss the message, and members joining after
// this call never receive it.
func (r *Registry) Deliver(msg *WSMessage) {
	r.mu.RLock()
	room := r.rooms[msg.EventID]
	members := make([]*Client, 0, len(room))
	for cl := range room {
		members = append(members, cl)
	}
	r.mu.RUnlock()

	for _, cl := range members {
		select {
		case cl.send <- msg:
		default:
			// Client is too slow - drop the message
		}
	}

	metrics.BroadcastsTotal.WithLabelValues(msg.Type).Inc()
}
