package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkshopStatus defines the lifecycle status of a workshop.
type WorkshopStatus string

const (
	WorkshopStatusScheduled  WorkshopStatus = "scheduled"
	WorkshopStatusInProgress WorkshopStatus = "inprogress"
	WorkshopStatusPaused     WorkshopStatus = "paused"
	WorkshopStatusCompleted  WorkshopStatus = "completed"
	WorkshopStatusCancelled  WorkshopStatus = "cancelled"
)

// BeforeFirstPhase is the sentinel value of CurrentTaskIndex before any phase
// has been activated.
const BeforeFirstPhase = -1

// Workshop represents a collaborative brainstorming workshop session.
//
// The timer fields together describe a pausable countdown for the current
// task: while running, TimerStartTime is set and TimerPausedAt is nil; while
// paused, TimerPausedAt is set, TimerStartTime is nil and the time consumed by
// previous runs is accumulated in TimerElapsedBeforePause.
type Workshop struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Objective   string         `json:"objective,omitempty"`
	Status      WorkshopStatus `json:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	DurationMin int            `json:"duration_min,omitempty"`

	CurrentTaskID    *uuid.UUID `json:"current_task_id,omitempty"`
	CurrentTaskIndex int        `json:"current_task_index"`

	TimerStartTime          *time.Time `json:"timer_start_time,omitempty"`
	TimerPausedAt           *time.Time `json:"timer_paused_at,omitempty"`
	TimerElapsedBeforePause int        `json:"timer_elapsed_before_pause"`

	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimerRunning reports whether the workshop currently has a ticking timer.
func (w *Workshop) TimerRunning() bool {
	return w.Status == WorkshopStatusInProgress && w.TimerStartTime != nil
}
