package workshop

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

func timedWorkshop(status models.WorkshopStatus) (*models.Workshop, *models.Task) {
	taskID := uuid.New()
	return &models.Workshop{
			ID:               uuid.New(),
			Status:           status,
			CurrentTaskID:    &taskID,
			CurrentTaskIndex: 0,
		}, &models.Task{
			ID:          taskID,
			DurationSec: 200,
		}
}

func TestRemainingSecondsRunning(t *testing.T) {
	w, task := timedWorkshop(models.WorkshopStatusInProgress)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w.TimerStartTime = &start

	if got := RemainingSeconds(w, task, start.Add(130*time.Second)); got != 70 {
		t.Errorf("RemainingSeconds = %d, want 70", got)
	}
}

func TestRemainingSecondsPausedIsFrozen(t *testing.T) {
	w, task := timedWorkshop(models.WorkshopStatusPaused)
	pausedAt := time.Date(2026, 3, 1, 10, 1, 40, 0, time.UTC)
	w.TimerPausedAt = &pausedAt
	w.TimerElapsedBeforePause = 100

	// Wall time keeps moving; the countdown does not.
	for _, later := range []time.Duration{0, 30 * time.Second, 1000 * time.Second} {
		if got := RemainingSeconds(w, task, pausedAt.Add(later)); got != 100 {
			t.Errorf("RemainingSeconds after %v pause = %d, want 100", later, got)
		}
	}
}

func TestRemainingSecondsAcrossPauseResume(t *testing.T) {
	w, task := timedWorkshop(models.WorkshopStatusInProgress)

	// Ran 100s before the pause, paused for 1000s, then resumed 30s ago.
	resumedAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	w.TimerStartTime = &resumedAt
	w.TimerElapsedBeforePause = 100

	if got := RemainingSeconds(w, task, resumedAt.Add(30*time.Second)); got != 70 {
		t.Errorf("RemainingSeconds = %d, want 70", got)
	}
}

func TestRemainingSecondsClampsAtZero(t *testing.T) {
	w, task := timedWorkshop(models.WorkshopStatusInProgress)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w.TimerStartTime = &start

	if got := RemainingSeconds(w, task, start.Add(500*time.Second)); got != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", got)
	}
}

func TestRemainingSecondsMonotonicWhileRunning(t *testing.T) {
	w, task := timedWorkshop(models.WorkshopStatusInProgress)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w.TimerStartTime = &start

	prev := RemainingSeconds(w, task, start)
	for s := 1; s <= 250; s += 7 {
		got := RemainingSeconds(w, task, start.Add(time.Duration(s)*time.Second))
		if got > prev {
			t.Fatalf("remaining increased from %d to %d at t+%ds", prev, got, s)
		}
		prev = got
	}
}

func TestRemainingSecondsNoTimer(t *testing.T) {
	w, task := timedWorkshop(models.WorkshopStatusInProgress)
	now := time.Now()

	// Running status but no start time recorded.
	if got := RemainingSeconds(w, task, now); got != 0 {
		t.Errorf("RemainingSeconds without start time = %d, want 0", got)
	}

	if got := RemainingSeconds(w, nil, now); got != 0 {
		t.Errorf("RemainingSeconds without task = %d, want 0", got)
	}

	w.Status = models.WorkshopStatusCompleted
	if got := RemainingSeconds(w, task, now); got != 0 {
		t.Errorf("RemainingSeconds on completed workshop = %d, want 0", got)
	}
}
