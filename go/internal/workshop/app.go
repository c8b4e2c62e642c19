package workshop

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/events"
	"github.com/brainstormlabs/brainstormx/go/internal/generator"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/outbox"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
	"github.com/brainstormlabs/brainstormx/go/internal/sqlutil"
)

// DefaultDotBudget is the number of voting dots handed to every accepted
// participant when a voting phase opens.
const DefaultDotBudget = 5

// SessionRepository defines what the app layer needs from the repository.
// *Repository satisfies it.
type SessionRepository interface {
	CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*models.Workshop, error)
	GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetCurrentTask(ctx context.Context, w *models.Workshop) (*models.Task, error)
	GetLatestTaskByType(ctx context.Context, workshopID uuid.UUID, phaseType string) (*models.Task, error)
	GetParticipant(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error)
	ListIdeasByTask(ctx context.Context, taskID uuid.UUID) ([]models.Idea, error)
}

// sessionTx is the transactional surface of TxRepository.
type sessionTx interface {
	GetWorkshopForUpdate(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	UpdateSession(ctx context.Context, id uuid.UUID, upd SessionUpdate) (*models.Workshop, error)
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)
	FinishTask(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, endedAt time.Time) error
	CreateCluster(ctx context.Context, taskID uuid.UUID, name, description string) (*models.Cluster, error)
	AssignIdeaToCluster(ctx context.Context, ideaID, clusterID uuid.UUID) error
	ResetDots(ctx context.Context, workshopID uuid.UUID, budget int) error
	ListAcceptedParticipants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error)
}

// eventInserter is the transactional surface of outbox.TxRepository.
type eventInserter interface {
	InsertEvent(ctx context.Context, workshopID uuid.UUID, eventType string, payload any) error
}

// txRepos bundles the tx-scoped repositories every lifecycle transaction
// needs: the workshop rows and the outbox.
type txRepos struct {
	workshop sessionTx
	outbox   eventInserter
}

func bindTxRepos(tx *sql.Tx) *txRepos {
	return &txRepos{
		workshop: NewTxRepository(tx),
		outbox:   outbox.NewTxRepository(tx),
	}
}

// App handles workshop session lifecycle business logic. All transitions are
// serialized per workshop by locking the workshop row inside a transaction,
// and every transition that observers care about writes an outbox event in
// the same transaction.
type App struct {
	db        *sql.DB
	repo      SessionRepository
	gen       generator.ContentGenerator
	clock     clockwork.Clock
	dotBudget int

	runTx func(ctx context.Context, fn func(r *txRepos) error) error
}

func NewApp(db *sql.DB, repo SessionRepository, gen generator.ContentGenerator, clock clockwork.Clock, dotBudget int) *App {
	if dotBudget <= 0 {
		dotBudget = DefaultDotBudget
	}
	a := &App{
		db:        db,
		repo:      repo,
		gen:       gen,
		clock:     clock,
		dotBudget: dotBudget,
	}
	a.runTx = func(ctx context.Context, fn func(r *txRepos) error) error {
		return sqlutil.Run(ctx, a.db, bindTxRepos, fn)
	}
	return a
}

// CreateWorkshop creates a new workshop in scheduled status.
func (a *App) CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*models.Workshop, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("validation failed: title is required")
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	w, err := a.repo.CreateWorkshop(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("workshopId", w.ID.String()).
		Str("title", w.Title).
		Msg("Created workshop")
	return w, nil
}

// GetWorkshop retrieves a workshop by ID.
func (a *App) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return a.repo.GetWorkshop(ctx, id)
}

// SessionState is a point-in-time snapshot of a workshop's live session.
// RemainingSec is recomputed from the timer fields on every read.
type SessionState struct {
	Workshop     *models.Workshop
	Task         *models.Task
	RemainingSec int
	IsPaused     bool
}

// GetSessionState reads the workshop plus its current task and computes the
// countdown as of now.
func (a *App) GetSessionState(ctx context.Context, id uuid.UUID) (*SessionState, error) {
	w, err := a.repo.GetWorkshop(ctx, id)
	if err != nil {
		return nil, err
	}
	task, err := a.repo.GetCurrentTask(ctx, w)
	if err != nil {
		return nil, err
	}
	return &SessionState{
		Workshop:     w,
		Task:         task,
		RemainingSec: RemainingSeconds(w, task, a.clock.Now()),
		IsPaused:     w.Status == models.WorkshopStatusPaused,
	}, nil
}

// Start moves a scheduled workshop into inprogress. The phase sequence has
// not begun yet; AdvancePhase activates the first task.
func (a *App) Start(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error) {
	return a.transition(ctx, workshopID, actorID, "start",
		func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error) {
			if w.Status != models.WorkshopStatusScheduled {
				return SessionUpdate{}, "", nil, fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, w.Status)
			}
			upd := SessionUpdate{
				Status:           models.WorkshopStatusInProgress,
				CurrentTaskIndex: models.BeforeFirstPhase,
			}
			p := &events.WorkshopLifecyclePayload{
				WorkshopID: w.ID.String(),
				Status:     string(models.WorkshopStatusInProgress),
				At:         now,
			}
			return upd, events.TypeWorkshopStarted, p, nil
		})
}

// Pause freezes a running workshop. The wall time consumed so far is folded
// into the elapsed accumulator so the countdown survives arbitrarily long
// pauses without drift.
func (a *App) Pause(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error) {
	return a.transition(ctx, workshopID, actorID, "pause",
		func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error) {
			if w.Status != models.WorkshopStatusInProgress {
				return SessionUpdate{}, "", nil, fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, w.Status)
			}
			elapsed := w.TimerElapsedBeforePause
			if w.TimerStartTime != nil {
				elapsed += int(now.Sub(*w.TimerStartTime).Seconds())
			}
			upd := SessionUpdate{
				Status:                  models.WorkshopStatusPaused,
				CurrentTaskID:           w.CurrentTaskID,
				CurrentTaskIndex:        w.CurrentTaskIndex,
				TimerPausedAt:           &now,
				TimerElapsedBeforePause: elapsed,
			}
			p := &events.WorkshopLifecyclePayload{
				WorkshopID: w.ID.String(),
				Status:     string(models.WorkshopStatusPaused),
				At:         now,
			}
			return upd, events.TypeWorkshopPaused, p, nil
		})
}

// Resume restarts the countdown of a paused workshop from where Pause froze
// it.
func (a *App) Resume(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error) {
	return a.transition(ctx, workshopID, actorID, "resume",
		func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error) {
			if w.Status != models.WorkshopStatusPaused {
				return SessionUpdate{}, "", nil, fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, w.Status)
			}
			upd := SessionUpdate{
				Status:                  models.WorkshopStatusInProgress,
				CurrentTaskID:           w.CurrentTaskID,
				CurrentTaskIndex:        w.CurrentTaskIndex,
				TimerElapsedBeforePause: w.TimerElapsedBeforePause,
			}
			// The timer only ticks again when a task is active.
			if w.CurrentTaskID != nil {
				upd.TimerStartTime = &now
			}
			p := &events.WorkshopLifecyclePayload{
				WorkshopID: w.ID.String(),
				Status:     string(models.WorkshopStatusInProgress),
				At:         now,
			}
			return upd, events.TypeWorkshopResumed, p, nil
		})
}

// Stop ends a running or paused workshop. The current task, if any, is
// completed and the timer state cleared.
func (a *App) Stop(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error) {
	return a.transition(ctx, workshopID, actorID, "stop",
		func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error) {
			if w.Status != models.WorkshopStatusInProgress && w.Status != models.WorkshopStatusPaused {
				return SessionUpdate{}, "", nil, fmt.Errorf("%w: cannot stop from %s", ErrInvalidTransition, w.Status)
			}
			upd := SessionUpdate{
				Status:           models.WorkshopStatusCompleted,
				CurrentTaskIndex: w.CurrentTaskIndex,
			}
			p := &events.WorkshopLifecyclePayload{
				WorkshopID: w.ID.String(),
				Status:     string(models.WorkshopStatusCompleted),
				At:         now,
			}
			return upd, events.TypeWorkshopStopped, p, nil
		})
}

// Cancel calls off a workshop that never started. A cancelled workshop can be
// brought back with Restart.
func (a *App) Cancel(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error) {
	return a.transition(ctx, workshopID, actorID, "cancel",
		func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error) {
			if w.Status != models.WorkshopStatusScheduled {
				return SessionUpdate{}, "", nil, fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, w.Status)
			}
			upd := SessionUpdate{
				Status:           models.WorkshopStatusCancelled,
				CurrentTaskIndex: models.BeforeFirstPhase,
			}
			p := &events.WorkshopLifecyclePayload{
				WorkshopID: w.ID.String(),
				Status:     string(models.WorkshopStatusCancelled),
				At:         now,
			}
			return upd, events.TypeWorkshopStopped, p, nil
		})
}

// Restart revives a cancelled workshop into a fresh running session. All
// session progress is reset; previously created tasks are kept as history.
func (a *App) Restart(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error) {
	return a.transition(ctx, workshopID, actorID, "restart",
		func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error) {
			if w.Status != models.WorkshopStatusCancelled {
				return SessionUpdate{}, "", nil, fmt.Errorf("%w: cannot restart from %s", ErrInvalidTransition, w.Status)
			}
			upd := SessionUpdate{
				Status:           models.WorkshopStatusInProgress,
				CurrentTaskIndex: models.BeforeFirstPhase,
			}
			p := &events.WorkshopLifecyclePayload{
				WorkshopID: w.ID.String(),
				Status:     string(models.WorkshopStatusInProgress),
				At:         now,
			}
			return upd, events.TypeWorkshopRestarted, p, nil
		})
}

// transition runs one lifecycle change: lock the row, let apply validate and
// compute the new session state, write it, and append the outbox event. The
// whole thing commits or rolls back atomically.
func (a *App) transition(
	ctx context.Context,
	workshopID, actorID uuid.UUID,
	action string,
	apply func(w *models.Workshop, now time.Time) (SessionUpdate, string, *events.WorkshopLifecyclePayload, error),
) (*models.Workshop, error) {
	if err := a.requireOrganizer(ctx, workshopID, actorID); err != nil {
		return nil, err
	}

	now := a.clock.Now().UTC()
	var updated *models.Workshop
	err := a.runTx(ctx, func(r *txRepos) error {
		w, err := r.workshop.GetWorkshopForUpdate(ctx, workshopID)
		if err != nil {
			return err
		}

		upd, eventType, payload, err := apply(w, now)
		if err != nil {
			return err
		}

		// A lifecycle stop completes the task it interrupts.
		if upd.Status == models.WorkshopStatusCompleted && w.CurrentTaskID != nil {
			if err := r.workshop.FinishTask(ctx, *w.CurrentTaskID, models.TaskStatusCompleted, now); err != nil {
				return err
			}
		}
		if eventType == events.TypeWorkshopPaused || eventType == events.TypeWorkshopResumed {
			payload.RemainingSec = a.frozenRemaining(ctx, w, upd.TimerElapsedBeforePause)
		}

		updated, err = r.workshop.UpdateSession(ctx, workshopID, upd)
		if err != nil {
			return err
		}
		return r.outbox.InsertEvent(ctx, workshopID, eventType, payload)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("workshopId", workshopID.String()).
		Str("action", action).
		Str("status", string(updated.Status)).
		Msg("Workshop transition applied")
	return updated, nil
}

// frozenRemaining computes where the countdown froze for a pause event, or
// nil when no timed task is active.
func (a *App) frozenRemaining(ctx context.Context, w *models.Workshop, elapsed int) *int {
	if w.CurrentTaskID == nil {
		return nil
	}
	task, err := a.repo.GetTask(ctx, *w.CurrentTaskID)
	if err != nil {
		log.Warn().Err(err).Str("workshopId", w.ID.String()).Msg("Failed to load task for pause payload")
		return nil
	}
	remaining := task.DurationSec - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// AdvancePhase moves the workshop to the next phase in the fixed sequence.
//
// Content generation runs before the transaction, so a generator failure
// leaves the session completely untouched. The transaction then re-locks the
// workshop and re-validates that nobody advanced it in the meantime before
// activating the new task. The new task, its clusters, the dot reset, the
// session update and the task_ready event all commit together.
func (a *App) AdvancePhase(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Task, error) {
	if err := a.requireOrganizer(ctx, workshopID, actorID); err != nil {
		return nil, err
	}

	w, err := a.repo.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WorkshopStatusInProgress {
		return nil, fmt.Errorf("%w: cannot advance from %s", ErrInvalidTransition, w.Status)
	}

	nextIndex := w.CurrentTaskIndex + 1
	nextPhase, ok := phase.At(nextIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrSequenceExhausted, nextIndex)
	}

	ideas, err := a.priorIdeas(ctx, workshopID, nextPhase)
	if err != nil {
		return nil, err
	}
	ideaTexts := make([]string, len(ideas))
	for i, idea := range ideas {
		ideaTexts[i] = idea.Content
	}

	result, err := a.gen.GenerateTask(ctx, generator.Request{
		WorkshopID: workshopID,
		Title:      w.Title,
		Objective:  w.Objective,
		Phase:      nextPhase,
		PhaseIndex: nextIndex,
		Ideas:      ideaTexts,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("workshopId", workshopID.String()).
			Str("taskType", string(nextPhase)).
			Msg("Phase content generation failed, session unchanged")
		return nil, err
	}

	now := a.clock.Now().UTC()
	var task *models.Task
	err = a.runTx(ctx, func(r *txRepos) error {
		locked, err := r.workshop.GetWorkshopForUpdate(ctx, workshopID)
		if err != nil {
			return err
		}
		// Somebody else may have advanced or stopped the workshop between the
		// generator call and this lock.
		if locked.Status != models.WorkshopStatusInProgress {
			return fmt.Errorf("%w: cannot advance from %s", ErrInvalidTransition, locked.Status)
		}
		if locked.CurrentTaskIndex != w.CurrentTaskIndex {
			return fmt.Errorf("%w: phase already advanced", ErrInvalidTransition)
		}

		if locked.CurrentTaskID != nil {
			if err := r.workshop.FinishTask(ctx, *locked.CurrentTaskID, models.TaskStatusCompleted, now); err != nil {
				return err
			}
		}

		task, err = r.workshop.CreateTask(ctx, CreateTaskParams{
			ID:          uuid.New(),
			WorkshopID:  workshopID,
			PhaseType:   string(nextPhase),
			Title:       result.Payload.Title,
			Payload:     result.Raw,
			DurationSec: result.Payload.DurationSec,
			Status:      models.TaskStatusRunning,
			StartedAt:   &now,
		})
		if err != nil {
			return err
		}

		// The roster is read inside the transaction so the dot reset and the
		// announced budgets cover the same participants.
		var clusterInfos []events.ClusterInfo
		var participants []models.Participant
		if nextPhase == phase.TypeClusteringVoting {
			clusterInfos, err = a.createClusters(ctx, r.workshop, task, result.Payload.Clustering, ideas)
			if err != nil {
				return err
			}
			if err := r.workshop.ResetDots(ctx, workshopID, a.dotBudget); err != nil {
				return err
			}
			participants, err = r.workshop.ListAcceptedParticipants(ctx, workshopID)
			if err != nil {
				return err
			}
		}

		taskID := task.ID
		if _, err := r.workshop.UpdateSession(ctx, workshopID, SessionUpdate{
			Status:           models.WorkshopStatusInProgress,
			CurrentTaskID:    &taskID,
			CurrentTaskIndex: nextIndex,
			TimerStartTime:   &now,
		}); err != nil {
			return err
		}

		payload := events.TaskReadyPayload{
			TaskID:       task.ID.String(),
			WorkshopID:   workshopID.String(),
			TaskType:     string(nextPhase),
			Title:        result.Payload.Title,
			Description:  result.Payload.Description,
			Instructions: result.Payload.Instructions,
			DurationSec:  result.Payload.DurationSec,
			RemainingSec: result.Payload.DurationSec,
			PhaseIndex:   nextIndex,
			StartedAt:    now,
			Clusters:     clusterInfos,
			Extra:        phaseExtra(result.Payload),
		}
		if nextPhase == phase.TypeClusteringVoting {
			dots := make(map[string]int, len(participants))
			for _, p := range participants {
				dots[p.UserID.String()] = a.dotBudget
			}
			payload.Participants = dots
		}
		return r.outbox.InsertEvent(ctx, workshopID, events.TypeTaskReady, payload)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("workshopId", workshopID.String()).
		Str("taskId", task.ID.String()).
		Str("taskType", task.PhaseType).
		Int("phaseIndex", nextIndex).
		Msg("Advanced workshop phase")
	return task, nil
}

// priorIdeas loads the brainstorming output for phases that build on it.
func (a *App) priorIdeas(ctx context.Context, workshopID uuid.UUID, next phase.Type) ([]models.Idea, error) {
	if next == phase.TypeBrainstorming {
		return nil, nil
	}
	brainstorm, err := a.repo.GetLatestTaskByType(ctx, workshopID, string(phase.TypeBrainstorming))
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, nil
	}
	return a.repo.ListIdeasByTask(ctx, brainstorm.ID)
}

// createClusters persists the generated clusters and files each referenced
// idea under its cluster. Out-of-range idea indices are skipped rather than
// failing the whole advance; the generator is fuzzy by nature.
func (a *App) createClusters(
	ctx context.Context,
	r sessionTx,
	task *models.Task,
	details *phase.ClusteringDetails,
	ideas []models.Idea,
) ([]events.ClusterInfo, error) {
	infos := make([]events.ClusterInfo, 0, len(details.Clusters))
	for _, spec := range details.Clusters {
		cluster, err := r.CreateCluster(ctx, task.ID, spec.Name, spec.Description)
		if err != nil {
			return nil, err
		}
		info := events.ClusterInfo{
			ClusterID:   cluster.ID.String(),
			Name:        cluster.Name,
			Description: cluster.Description,
			IdeaIDs:     []uuid.UUID{},
		}
		for _, idx := range spec.IdeaIndices {
			if idx < 0 || idx >= len(ideas) {
				log.Warn().
					Str("taskId", task.ID.String()).
					Str("cluster", spec.Name).
					Int("ideaIndex", idx).
					Msg("Generator referenced unknown idea index, skipping")
				continue
			}
			if err := r.AssignIdeaToCluster(ctx, ideas[idx].ID, cluster.ID); err != nil {
				return nil, err
			}
			info.IdeaIDs = append(info.IdeaIDs, ideas[idx].ID)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// phaseExtra surfaces the phase-specific generated content in broadcastable
// form.
func phaseExtra(p *phase.TaskPayload) map[string]any {
	switch {
	case p.Feasibility != nil:
		return map[string]any{"feasibility_report": p.Feasibility.Report}
	case p.Discussion != nil && len(p.Discussion.Points) > 0:
		return map[string]any{"discussion_points": p.Discussion.Points}
	case p.Summary != nil:
		return map[string]any{"summary_report": p.Summary.Report}
	}
	return nil
}

// requireOrganizer verifies the actor may drive the session. The creator is
// always an organizer; anyone else must hold the organizer role.
func (a *App) requireOrganizer(ctx context.Context, workshopID, actorID uuid.UUID) error {
	w, err := a.repo.GetWorkshop(ctx, workshopID)
	if err != nil {
		return err
	}
	if w.CreatedBy == actorID {
		return nil
	}
	p, err := a.repo.GetParticipant(ctx, workshopID, actorID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotOrganizer, err)
	}
	if p.Role != models.RoleOrganizer {
		return ErrNotOrganizer
	}
	return nil
}
