package events

import "time"

type createEventRequest struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	RequiresApproval bool      `json:"requiresApproval"`
}
