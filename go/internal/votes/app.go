package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/events"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/outbox"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
	"github.com/brainstormlabs/brainstormx/go/internal/sqlutil"
	"github.com/brainstormlabs/brainstormx/go/internal/workshop"
)

const pgUniqueViolation = "23505"

// SessionReader defines what the votes app needs to know about the session.
// *workshop.Repository satisfies it.
type SessionReader interface {
	GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// voteTx is the transactional surface of TxRepository.
type voteTx interface {
	GetParticipantForUpdate(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error)
	GetCluster(ctx context.Context, clusterID uuid.UUID) (*models.Cluster, error)
	GetVote(ctx context.Context, clusterID, participantID uuid.UUID) (*models.Vote, error)
	InsertVote(ctx context.Context, clusterID, participantID uuid.UUID, at time.Time) (*models.Vote, error)
	DeleteVote(ctx context.Context, voteID uuid.UUID) error
	UpdateDots(ctx context.Context, participantID uuid.UUID, dots int) error
	CountVotes(ctx context.Context, clusterID uuid.UUID) (int, error)
}

// eventInserter is the transactional surface of outbox.TxRepository.
type eventInserter interface {
	InsertEvent(ctx context.Context, workshopID uuid.UUID, eventType string, payload any) error
}

type txRepos struct {
	votes  voteTx
	outbox eventInserter
}

func bindTxRepos(tx *sql.Tx) *txRepos {
	return &txRepos{
		votes:  NewTxRepository(tx),
		outbox: outbox.NewTxRepository(tx),
	}
}

// App handles dot-voting business logic.
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

// VoteRequest identifies one toggle action.
type VoteRequest struct {
	WorkshopID uuid.UUID `json:"workshop_id"`
	ClusterID  uuid.UUID `json:"cluster_id"`
	UserID     uuid.UUID `json:"user_id"`
}

// VoteResult reports the outcome of a toggle.
type VoteResult struct {
	Action        string `json:"action"`
	Votes         int    `json:"votes"`
	DotsRemaining int    `json:"dots_remaining"`
}

// Toggle casts or retracts one dot on a cluster. A participant holds at most
// one vote per cluster; voting on a cluster they already voted for retracts
// it and refunds the dot.
//
// Voting is open only while the cluster's task is the workshop's current
// task, the workshop is running and the countdown has not expired.
func (a *App) Toggle(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	w, err := a.session.GetWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}
	if w.Status != models.WorkshopStatusInProgress {
		return nil, fmt.Errorf("%w: workshop is %s", ErrVotingClosed, w.Status)
	}
	if w.CurrentTaskID == nil {
		return nil, ErrVotingClosed
	}
	task, err := a.session.GetTask(ctx, *w.CurrentTaskID)
	if err != nil {
		return nil, err
	}
	if task.PhaseType != string(phase.TypeClusteringVoting) {
		return nil, fmt.Errorf("%w: current phase is %s", ErrVotingClosed, task.PhaseType)
	}
	if workshop.RemainingSeconds(w, task, a.clock.Now()) <= 0 {
		return nil, fmt.Errorf("%w: time expired", ErrVotingClosed)
	}

	now := a.clock.Now().UTC()
	var result *VoteResult
	err = a.runTx(ctx, func(r *txRepos) error {
		participant, err := r.votes.GetParticipantForUpdate(ctx, req.WorkshopID, req.UserID)
		if err != nil {
			return err
		}
		cluster, err := r.votes.GetCluster(ctx, req.ClusterID)
		if err != nil {
			return err
		}
		if cluster.TaskID != task.ID {
			return fmt.Errorf("%w: cluster belongs to an earlier task", ErrVotingClosed)
		}

		existing, err := r.votes.GetVote(ctx, req.ClusterID, participant.ID)
		if err != nil {
			return err
		}

		var action string
		var dots int
		if existing != nil {
			if err := r.votes.DeleteVote(ctx, existing.ID); err != nil {
				return err
			}
			action = "unvoted"
			dots = participant.DotsRemaining + 1
		} else {
			if participant.DotsRemaining <= 0 {
				return ErrNoDotsRemaining
			}
			if _, err := r.votes.InsertVote(ctx, req.ClusterID, participant.ID, now); err != nil {
				// The participant lock makes a duplicate almost impossible,
				// but the unique constraint is the final word.
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
					return fmt.Errorf("concurrent duplicate vote: %w", err)
				}
				return err
			}
			action = "voted"
			dots = participant.DotsRemaining - 1
		}

		if err := r.votes.UpdateDots(ctx, participant.ID, dots); err != nil {
			return err
		}
		count, err := r.votes.CountVotes(ctx, req.ClusterID)
		if err != nil {
			return err
		}

		payload := events.VoteUpdatePayload{
			WorkshopID:    req.WorkshopID.String(),
			ClusterID:     req.ClusterID.String(),
			Votes:         count,
			Action:        action,
			UserID:        req.UserID.String(),
			DotsRemaining: dots,
		}
		if err := r.outbox.InsertEvent(ctx, req.WorkshopID, events.TypeVoteUpdate, payload); err != nil {
			return err
		}
		result = &VoteResult{Action: action, Votes: count, DotsRemaining: dots}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("workshopId", req.WorkshopID.String()).
		Str("clusterId", req.ClusterID.String()).
		Str("action", result.Action).
		Int("dotsRemaining", result.DotsRemaining).
		Msg("Vote toggled")
	return result, nil
}
