package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole defines the role of a workshop participant.
type ParticipantRole string

const (
	RoleOrganizer   ParticipantRole = "organizer"
	RoleParticipant ParticipantRole = "participant"
)

// ParticipantStatus defines the invitation status of a participant.
type ParticipantStatus string

const (
	ParticipantStatusInvited  ParticipantStatus = "invited"
	ParticipantStatusAccepted ParticipantStatus = "accepted"
	ParticipantStatusDeclined ParticipantStatus = "declined"
)

// Participant is one user's membership in one workshop. DotsRemaining is the
// voting budget for the current voting phase; it is reset whenever a new set
// of voting clusters is created.
type Participant struct {
	ID            uuid.UUID         `json:"id"`
	WorkshopID    uuid.UUID         `json:"workshop_id"`
	UserID        uuid.UUID         `json:"user_id"`
	DisplayName   string            `json:"display_name"`
	Role          ParticipantRole   `json:"role"`
	Status        ParticipantStatus `json:"status"`
	DotsRemaining int               `json:"dots_remaining"`
	JoinedAt      *time.Time        `json:"joined_at,omitempty"`
}
