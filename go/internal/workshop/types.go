package workshop

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

// CreateWorkshopRequest represents a request to create a new workshop
type CreateWorkshopRequest struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Objective   string     `json:"objective,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	DurationMin int        `json:"duration_min,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
}

// SessionUpdate is the full set of session fields written on a lifecycle
// transition. Every transition writes all of them so a workshop row can never
// end up with a half-applied timer state.
type SessionUpdate struct {
	Status                  models.WorkshopStatus
	CurrentTaskID           *uuid.UUID
	CurrentTaskIndex        int
	TimerStartTime          *time.Time
	TimerPausedAt           *time.Time
	TimerElapsedBeforePause int
}

// CreateTaskParams carries everything needed to persist one phase task.
type CreateTaskParams struct {
	ID          uuid.UUID
	WorkshopID  uuid.UUID
	PhaseType   string
	Title       string
	Payload     json.RawMessage
	DurationSec int
	Status      models.TaskStatus
	StartedAt   *time.Time
}
