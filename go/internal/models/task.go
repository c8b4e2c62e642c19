package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus defines the status of a phase task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// Task is one activated phase of a workshop. The generated content is kept as
// an opaque JSON payload; go/internal/phase owns its typed representation.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	WorkshopID  uuid.UUID       `json:"workshop_id"`
	PhaseType   string          `json:"phase_type"`
	Title       string          `json:"title"`
	Payload     json.RawMessage `json:"payload"`
	DurationSec int             `json:"duration_sec"`
	Status      TaskStatus      `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
}
