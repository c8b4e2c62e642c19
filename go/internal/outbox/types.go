package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one row of the workshop outbox table. Events are inserted in the
// same transaction as the state change they describe and published to the
// message bus asynchronously by the worker.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	WorkshopID  uuid.UUID       `json:"workshop_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}
