package messaging

import "github.com/pulsewall/pulsewall/internal/domain"

const (
	AuditQueue      = "audit"
	DeadLetterQueue = "dead_letter_queue"
)

type PollEventData struct {
	Poll domain.Poll `json:"poll"`
	// Set for vote events only.
	OptionIndex *int `json:"optionIndex,omitempty"`
}

type MessageEventData struct {
	Message domain.Message `json:"message"`
}
