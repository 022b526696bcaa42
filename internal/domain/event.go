package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pulsewall/pulsewall/internal/infrastructure/validate"
)

var ErrEventNotFound = errors.New("event not found")

// Event is the parent entity a wall and its polls hang off. Room membership
// for the real-time channel is keyed by Event.ID.
type Event struct {
	ID               string    `bson:"_id" json:"id"`
	Name             string    `bson:"name" json:"name"`
	Description      string    `bson:"description,omitempty" json:"description,omitempty"`
	Date             time.Time `bson:"date" json:"date"`
	OrganizerID      string    `bson:"organizer_id" json:"organizerId"`
	RequiresApproval bool      `bson:"requires_approval" json:"requiresApproval"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt"`
}

type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	EnsureIndexes(ctx context.Context) error
}

func NewEvent(name, description string, date time.Time, organizerID string, requiresApproval bool) (*Event, error) {
	validateName := validate.Field("name",
		validate.Required(),
		validate.LengthBetween(2, 120),
	)
	if err := validateName(name); err != nil {
		return nil, err
	}

	if err := validate.Field("description", validate.MaxLength(2000))(description); err != nil {
		return nil, err
	}

	return &Event{
		ID:               uuid.NewString(),
		Name:             name,
		Description:      description,
		Date:             date,
		OrganizerID:      organizerID,
		RequiresApproval: requiresApproval,
		CreatedAt:        time.Now(),
	}, nil
}
