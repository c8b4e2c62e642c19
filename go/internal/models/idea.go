package models

import (
	"time"

	"github.com/google/uuid"
)

// Idea is a single submission made during a brainstorming task. Content is
// immutable once created; ClusterID is assigned later when the clustering
// phase groups ideas, without transferring ownership away from the task.
type Idea struct {
	ID            uuid.UUID  `json:"id"`
	TaskID        uuid.UUID  `json:"task_id"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	Content       string     `json:"content"`
	ClusterID     *uuid.UUID `json:"cluster_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Cluster groups ideas for the voting phase. It belongs to the voting task.
type Cluster struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
}

// Vote is one participant's dot on one cluster. At most one row may exist per
// (ClusterID, ParticipantID) pair; casting again retracts instead.
type Vote struct {
	ID            uuid.UUID `json:"id"`
	ClusterID     uuid.UUID `json:"cluster_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClusterTally is the aggregate vote count for one cluster, recomputed from
// the vote rows rather than maintained incrementally.
type ClusterTally struct {
	ClusterID uuid.UUID `json:"cluster_id"`
	Votes     int       `json:"votes"`
}
