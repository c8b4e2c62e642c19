package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names shared between the workshop apps (which insert them into
// the outbox) and the gateway (which broadcasts them into rooms). The names
// are the wire event names clients subscribe to.
const (
	TypeWorkshopStarted   = "workshop_started"
	TypeWorkshopPaused    = "workshop_paused"
	TypeWorkshopResumed   = "workshop_resumed"
	TypeWorkshopStopped   = "workshop_stopped"
	TypeWorkshopRestarted = "workshop_restarted"
	TypeTaskReady         = "task_ready"
	TypeNewIdea           = "new_idea"
	TypeVoteUpdate        = "vote_update"
	TypeReceiveMessage    = "receive_message"

	// Presence and replay events originate in the gateway itself, not in the
	// outbox, but share the same wire vocabulary.
	TypeParticipantListUpdate = "participant_list_update"
	TypeRoomSync              = "room_sync"
)

// ChatMessagePayload carries one chat message to the room.
type ChatMessagePayload struct {
	MessageID   string    `json:"message_id"`
	WorkshopID  string    `json:"workshop_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"user"`
	Body        string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkshopLifecyclePayload is the payload for started/paused/resumed/stopped/
// restarted events.
type WorkshopLifecyclePayload struct {
	WorkshopID string    `json:"workshop_id"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
	// RemainingSec is only meaningful for pause/resume, where it tells
	// clients where the frozen countdown stands.
	RemainingSec *int `json:"remaining_seconds,omitempty"`
}

// TaskReadyPayload announces a newly activated phase task. Every timed task
// event carries task_id, task_type, duration and remaining_seconds.
type TaskReadyPayload struct {
	TaskID       string          `json:"task_id"`
	WorkshopID   string          `json:"workshop_id"`
	TaskType     string          `json:"task_type"`
	Title        string          `json:"title"`
	Description  string          `json:"task_description,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	DurationSec  int             `json:"duration"`
	RemainingSec int             `json:"remaining_seconds"`
	PhaseIndex   int             `json:"phase_index"`
	StartedAt    time.Time       `json:"started_at"`
	Clusters     []ClusterInfo   `json:"clusters,omitempty"`
	Extra        map[string]any  `json:"extra,omitempty"`
	Participants map[string]int  `json:"participants_dots,omitempty"`
}

// ClusterInfo is the broadcast form of one voting cluster.
type ClusterInfo struct {
	ClusterID   string      `json:"cluster_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	IdeaIDs     []uuid.UUID `json:"idea_ids"`
}

// NewIdeaPayload announces an accepted idea submission. Clients deduplicate
// by idea_id, so at-least-once delivery is safe.
type NewIdeaPayload struct {
	IdeaID      string    `json:"idea_id"`
	TaskID      string    `json:"task_id"`
	WorkshopID  string    `json:"workshop_id"`
	DisplayName string    `json:"user"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoteUpdatePayload announces the fresh aggregate tally for one cluster plus
// the acting participant's new dot budget. Counts are re-counted snapshots,
// not increments, so replays cannot drift.
type VoteUpdatePayload struct {
	WorkshopID    string `json:"workshop_id"`
	ClusterID     string `json:"cluster_id"`
	Votes         int    `json:"votes"`
	Action        string `json:"action"` // "voted" or "unvoted"
	UserID        string `json:"user_id"`
	DotsRemaining int    `json:"dots_remaining"`
}
