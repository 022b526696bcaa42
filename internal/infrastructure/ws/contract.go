package ws

import (
	"github.com/pulsewall/pulsewall/internal/domain"
)

// WSMessage is the envelope for every frame sent to clients.
type WSMessage struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
	Data    any    `json:"data"`
}

// clientFrame is what clients send upstream: room join/leave requests.
type clientFrame struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

type UserCountPayload struct {
	Count int `json:"count"`
}

type PollRemovedPayload struct {
	PollID string `json:"pollId"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewPollCreated(poll *domain.Poll) *WSMessage {
	return &WSMessage{
		Type:    NewPoll,
		EventID: poll.EventID,
		Data:    poll,
	}
}

func NewPollUpdated(poll *domain.Poll) *WSMessage {
	return &WSMessage{
		Type:    PollUpdate,
		EventID: poll.EventID,
		Data:    poll,
	}
}

func NewPollEnded(poll *domain.Poll) *WSMessage {
	return &WSMessage{
		Type:    PollEnded,
		EventID: poll.EventID,
		Data:    poll,
	}
}

// NewPollRemoved carries the poll id only; clients drop the poll from view.
func NewPollRemoved(eventID, pollID string) *WSMessage {
	return &WSMessage{
		Type:    PollRemoved,
		EventID: eventID,
		Data:    PollRemovedPayload{PollID: pollID},
	}
}

func NewUserCount(eventID string, count int) *WSMessage {
	return &WSMessage{
		Type:    UserCount,
		EventID: eventID,
		Data:    UserCountPayload{Count: count},
	}
}

func NewMessagePosted(message *domain.Message) *WSMessage {
	return &WSMessage{
		Type:    NewMessage,
		EventID: message.EventID,
		Data:    message,
	}
}

func NewMessageRemoved(eventID, messageID string) *WSMessage {
	return &WSMessage{
		Type:    MessageDeleted,
		EventID: eventID,
		Data:    MessageDeletedPayload{MessageID: messageID},
	}
}

func NewMessageReacted(message *domain.Message) *WSMessage {
	return &WSMessage{
		Type:    MessageReaction,
		EventID: message.EventID,
		Data:    message,
	}
}

func NewError(eventID, message string) *WSMessage {
	return &WSMessage{
		Type:    ErrorEvent,
		EventID: eventID,
		Data:    ErrorPayload{Message: message},
	}
}
