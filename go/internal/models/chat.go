package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one message sent into a workshop room. A bounded window of
// recent messages is replayed to clients on (re)join.
type ChatMessage struct {
	ID          uuid.UUID `json:"id"`
	WorkshopID  uuid.UUID `json:"workshop_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}
