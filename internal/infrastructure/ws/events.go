package ws

// Server-to-client message types, scoped to an event room.
const (
	NewPoll     = "new poll"
	PollUpdate  = "poll update"
	PollEnded   = "poll ended"
	PollRemoved = "poll removed"
	UserCount   = "user count"

	NewMessage      = "new message"
	MessageDeleted  = "message deleted"
	MessageReaction = "message reaction"

	ErrorEvent = "error"
)

// Client-to-server message types.
const (
	JoinEvent  = "join event"
	LeaveEvent = "leave event"
)
