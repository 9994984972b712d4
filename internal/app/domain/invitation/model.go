package invitation

import "time"

// Well-known statuses. Status is free-form; these are the values the API
// itself produces or documents.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Invitation is an outbound request from a user to an email address.
// EventID is an opaque optional reference supplied by the client.
type Invitation struct {
	ID           int64     `json:"id"`
	InviterID    int64     `json:"inviter_id"`
	InviteeEmail string    `json:"invitee_email"`
	Message      *string   `json:"message"`
	EventID      *int64    `json:"event_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Input carries the client-supplied fields of an invitation.
type Input struct {
	InviterID    int64   `json:"inviter_id"`
	InviteeEmail string  `json:"invitee_email"`
	Message      *string `json:"message"`
	EventID      *int64  `json:"event_id,omitempty"`
}
