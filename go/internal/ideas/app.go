package ideas

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/events"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/outbox"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
	"github.com/brainstormlabs/brainstormx/go/internal/sqlutil"
	"github.com/brainstormlabs/brainstormx/go/internal/workshop"
)

// SessionReader defines what the ideas app needs to know about the session.
// *workshop.Repository satisfies it.
type SessionReader interface {
	GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetParticipant(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error)
	ListIdeasByTask(ctx context.Context, taskID uuid.UUID) ([]models.Idea, error)
}

// ideaTx is the transactional surface of TxRepository.
type ideaTx interface {
	CreateIdea(ctx context.Context, taskID, participantID uuid.UUID, content string, at time.Time) (*models.Idea, error)
}

// eventInserter is the transactional surface of outbox.TxRepository.
type eventInserter interface {
	InsertEvent(ctx context.Context, workshopID uuid.UUID, eventType string, payload any) error
}

type txRepos struct {
	ideas  ideaTx
	outbox eventInserter
}

func bindTxRepos(tx *sql.Tx) *txRepos {
	return &txRepos{
		ideas:  NewTxRepository(tx),
		outbox: outbox.NewTxRepository(tx),
	}
}

// App handles idea submission business logic.
type App struct {
	db      *sql.DB
	session SessionReader
	clock   clockwork.Clock

	runTx func(ctx context.Context, fn func(r *txRepos) error) error
}

func NewApp(db *sql.DB, session SessionReader, clock clockwork.Clock) *App {
	a := &App{db: db, session: session, clock: clock}
	a.runTx = func(ctx context.Context, fn func(r *txRepos) error) error {
		return sqlutil.Run(ctx, a.db, bindTxRepos, fn)
	}
	return a
}

// SubmitIdeaRequest identifies one idea submission. TaskID is the task the
// client believes is current; a mismatch with the server's current task means
// the submission raced a phase change and is rejected.
type SubmitIdeaRequest struct {
	WorkshopID uuid.UUID `json:"workshop_id"`
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	Content    string    `json:"content"`
}

// SubmitIdea validates and records one brainstorming idea, then announces it
// through the outbox.
//
// Submissions are accepted while the brainstorming task is current and its
// countdown has not hit zero. A paused workshop still accepts ideas; the
// countdown is frozen, not expired.
func (a *App) SubmitIdea(ctx context.Context, req SubmitIdeaRequest) (*models.Idea, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("validation failed: idea content is empty")
	}

	w, err := a.session.GetWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WorkshopStatusInProgress && w.Status != models.WorkshopStatusPaused {
		return nil, fmt.Errorf("%w: workshop is %s", ErrNotAccepting, w.Status)
	}
	if w.CurrentTaskID == nil || *w.CurrentTaskID != req.TaskID {
		return nil, ErrStaleTask
	}

	task, err := a.session.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if task.PhaseType != string(phase.TypeBrainstorming) {
		return nil, fmt.Errorf("%w: current phase is %s", ErrNotAccepting, task.PhaseType)
	}
	if w.Status == models.WorkshopStatusInProgress &&
		workshop.RemainingSeconds(w, task, a.clock.Now()) <= 0 {
		return nil, ErrTimeExpired
	}

	participant, err := a.session.GetParticipant(ctx, req.WorkshopID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("participant not found: %w", err)
	}

	now := a.clock.Now().UTC()
	var idea *models.Idea
	err = a.runTx(ctx, func(r *txRepos) error {
		idea, err = r.ideas.CreateIdea(ctx, req.TaskID, participant.ID, content, now)
		if err != nil {
			return err
		}
		payload := events.NewIdeaPayload{
			IdeaID:      idea.ID.String(),
			TaskID:      req.TaskID.String(),
			WorkshopID:  req.WorkshopID.String(),
			DisplayName: participant.DisplayName,
			Content:     idea.Content,
			CreatedAt:   now,
		}
		return r.outbox.InsertEvent(ctx, req.WorkshopID, events.TypeNewIdea, payload)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("workshopId", req.WorkshopID.String()).
		Str("ideaId", idea.ID.String()).
		Str("user", participant.DisplayName).
		Msg("Idea submitted")
	return idea, nil
}

// ListIdeas returns the ideas of one task in submission order.
func (a *App) ListIdeas(ctx context.Context, taskID uuid.UUID) ([]models.Idea, error) {
	return a.session.ListIdeasByTask(ctx, taskID)
}
