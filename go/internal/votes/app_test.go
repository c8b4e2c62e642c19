package votes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

type fakeSession struct {
	workshop *models.Workshop
	task     *models.Task
}

func (f *fakeSession) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return f.workshop, nil
}

func (f *fakeSession) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return f.task, nil
}

func votingSession(clock clockwork.Clock, durationSec, elapsedSec int) *fakeSession {
	taskID := uuid.New()
	start := clock.Now().Add(-time.Duration(elapsedSec) * time.Second)
	return &fakeSession{
		workshop: &models.Workshop{
			ID:             uuid.New(),
			Status:         models.WorkshopStatusInProgress,
			CurrentTaskID:  &taskID,
			TimerStartTime: &start,
		},
		task: &models.Task{
			ID:          taskID,
			PhaseType:   string(phase.TypeClusteringVoting),
			DurationSec: durationSec,
		},
	}
}

// fakeVoteTx keeps votes and the participant's dot budget in memory.
type fakeVoteTx struct {
	participant *models.Participant
	clusters    map[uuid.UUID]*models.Cluster
	votes       map[uuid.UUID]*models.Vote // keyed by cluster ID
	events      []string
}

func (f *fakeVoteTx) GetParticipantForUpdate(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error) {
	return f.participant, nil
}

func (f *fakeVoteTx) GetCluster(ctx context.Context, clusterID uuid.UUID) (*models.Cluster, error) {
	c, ok := f.clusters[clusterID]
	if !ok {
		return nil, ErrClusterNotFound
	}
	return c, nil
}

func (f *fakeVoteTx) GetVote(ctx context.Context, clusterID, participantID uuid.UUID) (*models.Vote, error) {
	v, ok := f.votes[clusterID]
	if !ok || v.ParticipantID != participantID {
		return nil, nil
	}
	return v, nil
}

func (f *fakeVoteTx) InsertVote(ctx context.Context, clusterID, participantID uuid.UUID, at time.Time) (*models.Vote, error) {
	v := &models.Vote{ID: uuid.New(), ClusterID: clusterID, ParticipantID: participantID, CreatedAt: at}
	f.votes[clusterID] = v
	return v, nil
}

func (f *fakeVoteTx) DeleteVote(ctx context.Context, voteID uuid.UUID) error {
	for clusterID, v := range f.votes {
		if v.ID == voteID {
			delete(f.votes, clusterID)
		}
	}
	return nil
}

func (f *fakeVoteTx) UpdateDots(ctx context.Context, participantID uuid.UUID, dots int) error {
	f.participant.DotsRemaining = dots
	return nil
}

func (f *fakeVoteTx) CountVotes(ctx context.Context, clusterID uuid.UUID) (int, error) {
	if _, ok := f.votes[clusterID]; ok {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeVoteTx) InsertEvent(ctx context.Context, workshopID uuid.UUID, eventType string, payload any) error {
	f.events = append(f.events, eventType)
	return nil
}

func votingApp(session *fakeSession, tx *fakeVoteTx, clock clockwork.Clock) *App {
	app := NewApp(nil, session, clock)
	app.runTx = func(ctx context.Context, fn func(r *txRepos) error) error {
		return fn(&txRepos{votes: tx, outbox: tx})
	}
	return app
}

func votingTx(session *fakeSession, dots int, clusterIDs ...uuid.UUID) *fakeVoteTx {
	tx := &fakeVoteTx{
		participant: &models.Participant{
			ID: uuid.New(), WorkshopID: session.workshop.ID, UserID: uuid.New(),
			Status: models.ParticipantStatusAccepted, DotsRemaining: dots,
		},
		clusters: make(map[uuid.UUID]*models.Cluster),
		votes:    make(map[uuid.UUID]*models.Vote),
	}
	for _, id := range clusterIDs {
		tx.clusters[id] = &models.Cluster{ID: id, TaskID: session.task.ID, Name: "Theme"}
	}
	return tx
}

func TestToggleCastThenRetract(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	session := votingSession(clock, 180, 10)
	clusterID := uuid.New()
	tx := votingTx(session, 2, clusterID)
	app := votingApp(session, tx, clock)

	req := VoteRequest{WorkshopID: session.workshop.ID, ClusterID: clusterID, UserID: tx.participant.UserID}

	first, err := app.Toggle(context.Background(), req)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if first.Action != "voted" || first.Votes != 1 || first.DotsRemaining != 1 {
		t.Errorf("first toggle = %+v", first)
	}

	// The same participant toggling the same cluster retracts and refunds.
	second, err := app.Toggle(context.Background(), req)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.Action != "unvoted" || second.Votes != 0 || second.DotsRemaining != 2 {
		t.Errorf("second toggle = %+v", second)
	}
	if len(tx.votes) != 0 {
		t.Errorf("vote rows after retract = %d, want 0", len(tx.votes))
	}
	if len(tx.events) != 2 {
		t.Errorf("vote_update events = %d, want 2", len(tx.events))
	}
}

func TestToggleConservesDotBudget(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	session := votingSession(clock, 180, 10)
	clusterA := uuid.New()
	clusterB := uuid.New()
	tx := votingTx(session, 1, clusterA, clusterB)
	app := votingApp(session, tx, clock)

	vote := func(cluster uuid.UUID) (*VoteResult, error) {
		return app.Toggle(context.Background(), VoteRequest{
			WorkshopID: session.workshop.ID, ClusterID: cluster, UserID: tx.participant.UserID,
		})
	}

	if _, err := vote(clusterA); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if tx.participant.DotsRemaining != 0 {
		t.Fatalf("dots after first vote = %d, want 0", tx.participant.DotsRemaining)
	}

	// The budget is spent; a second cluster is out of reach.
	if _, err := vote(clusterB); !errors.Is(err, ErrNoDotsRemaining) {
		t.Fatalf("vote beyond budget = %v, want ErrNoDotsRemaining", err)
	}
	if tx.participant.DotsRemaining != 0 {
		t.Errorf("dots went negative: %d", tx.participant.DotsRemaining)
	}
	if _, ok := tx.votes[clusterB]; ok {
		t.Error("rejected vote left a row behind")
	}

	// Retracting refunds the dot, never exceeding the budget.
	res, err := vote(clusterA)
	if err != nil {
		t.Fatalf("retract: %v", err)
	}
	if res.Action != "unvoted" || res.DotsRemaining != 1 {
		t.Errorf("retract = %+v", res)
	}
}

func TestToggleRejectsClusterFromEarlierTask(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	session := votingSession(clock, 180, 10)
	staleCluster := uuid.New()
	tx := votingTx(session, 5, staleCluster)
	tx.clusters[staleCluster].TaskID = uuid.New()
	app := votingApp(session, tx, clock)

	_, err := app.Toggle(context.Background(), VoteRequest{
		WorkshopID: session.workshop.ID, ClusterID: staleCluster, UserID: tx.participant.UserID,
	})
	if !errors.Is(err, ErrVotingClosed) {
		t.Errorf("vote on earlier task's cluster = %v, want ErrVotingClosed", err)
	}
}

func TestToggleRejectsNonRunningWorkshop(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	for _, status := range []models.WorkshopStatus{
		models.WorkshopStatusScheduled,
		models.WorkshopStatusPaused,
		models.WorkshopStatusCompleted,
	} {
		session := votingSession(clock, 180, 10)
		session.workshop.Status = status
		app := NewApp(nil, session, clock)

		_, err := app.Toggle(context.Background(), VoteRequest{
			WorkshopID: session.workshop.ID,
			ClusterID:  uuid.New(),
			UserID:     uuid.New(),
		})
		if !errors.Is(err, ErrVotingClosed) {
			t.Errorf("Toggle on %s workshop = %v, want ErrVotingClosed", status, err)
		}
	}
}

func TestToggleRejectsNonVotingPhase(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	session := votingSession(clock, 180, 10)
	session.task.PhaseType = string(phase.TypeBrainstorming)
	app := NewApp(nil, session, clock)

	_, err := app.Toggle(context.Background(), VoteRequest{
		WorkshopID: session.workshop.ID,
		ClusterID:  uuid.New(),
		UserID:     uuid.New(),
	})
	if !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Toggle during brainstorming = %v, want ErrVotingClosed", err)
	}
}

func TestToggleRejectsExpiredTimer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	session := votingSession(clock, 180, 180)
	app := NewApp(nil, session, clock)

	_, err := app.Toggle(context.Background(), VoteRequest{
		WorkshopID: session.workshop.ID,
		ClusterID:  uuid.New(),
		UserID:     uuid.New(),
	})
	if !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Toggle after time expiry = %v, want ErrVotingClosed", err)
	}
}

func TestToggleRejectsWithoutCurrentTask(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	session := votingSession(clock, 180, 10)
	session.workshop.CurrentTaskID = nil
	app := NewApp(nil, session, clock)

	_, err := app.Toggle(context.Background(), VoteRequest{
		WorkshopID: session.workshop.ID,
		ClusterID:  uuid.New(),
		UserID:     uuid.New(),
	})
	if !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Toggle without current task = %v, want ErrVotingClosed", err)
	}
}
