package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	Mongo           Category = "Mongo"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Websocket       Category = "Websocket"
	Poll            Category = "Poll"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Poll
	Lifecycle SubCategory = "Lifecycle"
	Expiry    SubCategory = "Expiry"
	Voting    SubCategory = "Voting"

	// Websocket
	RoomMembership SubCategory = "RoomMembership"
	Broadcast      SubCategory = "Broadcast"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
	EventID      ExtraKey = "EventId"
	PollID       ExtraKey = "PollId"
)
