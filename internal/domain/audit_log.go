package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditEventType string

const (
	AuditPollCreated   AuditEventType = "poll_created"
	AuditPollEnded     AuditEventType = "poll_ended"
	AuditVoteCast      AuditEventType = "vote_cast"
	AuditMessagePosted AuditEventType = "message_posted"
)

type AuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	EventID   string         `bson:"event_id" json:"eventId"`
	Type      AuditEventType `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// AuditRepository stores the trail written by the audit consumer. Retention
// is enforced by a TTL index, not by application code.
type AuditRepository interface {
	Log(ctx context.Context, log *AuditLog) error
	GetByEvent(ctx context.Context, eventID string, limit int) ([]AuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

func NewPollCreatedLog(eventID, pollID string, duration int) *AuditLog {
	return &AuditLog{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Type:      AuditPollCreated,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"poll_id":          pollID,
			"duration_seconds": duration,
		},
	}
}

func NewPollEndedLog(eventID, pollID string, totalVotes int) *AuditLog {
	return &AuditLog{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Type:      AuditPollEnded,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"poll_id":     pollID,
			"total_votes": totalVotes,
		},
	}
}

func NewVoteCastLog(eventID, pollID string, optionIndex int) *AuditLog {
	return &AuditLog{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Type:      AuditVoteCast,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"poll_id":      pollID,
			"option_index": optionIndex,
		},
	}
}

func NewMessagePostedLog(eventID, messageID string) *AuditLog {
	return &AuditLog{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Type:      AuditMessagePosted,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"message_id": messageID,
		},
	}
}
