package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	EventID string `json:"eventId"`
	Data    []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventPollCreated   = "poll.created"
	EventPollEnded     = "poll.ended"
	EventVoteCast      = "poll.vote_cast"
	EventMessagePosted = "message.posted"
)
