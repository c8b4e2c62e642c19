package workshop

import (
	"time"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

// RemainingSeconds computes how many seconds are left on the current task's
// countdown at the given instant. It is a pure function: "now" is an input and
// the result is never cached, so every sync request recomputes it.
//
// While paused the clock is frozen at the accumulated elapsed time; while
// running the current run's wall time is added on top of the accumulator.
// Any other state (no task, no running timer) reads as zero.
func RemainingSeconds(w *models.Workshop, task *models.Task, now time.Time) int {
	if task == nil || task.DurationSec <= 0 {
		return 0
	}

	var elapsed int
	switch {
	case w.Status == models.WorkshopStatusPaused:
		elapsed = w.TimerElapsedBeforePause
	case w.Status == models.WorkshopStatusInProgress && w.TimerStartTime != nil:
		elapsed = w.TimerElapsedBeforePause + int(now.Sub(*w.TimerStartTime).Seconds())
	default:
		return 0
	}

	remaining := task.DurationSec - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
