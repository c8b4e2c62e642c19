package workshop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/brainstormlabs/brainstormx/go/internal/events"
	"github.com/brainstormlabs/brainstormx/go/internal/generator"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

type fakeRepo struct {
	workshops    map[uuid.UUID]*models.Workshop
	tasks        map[uuid.UUID]*models.Task
	participants map[uuid.UUID]*models.Participant // keyed by user ID
	ideas        []models.Idea
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		workshops:    make(map[uuid.UUID]*models.Workshop),
		tasks:        make(map[uuid.UUID]*models.Task),
		participants: make(map[uuid.UUID]*models.Participant),
	}
}

func (f *fakeRepo) CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*models.Workshop, error) {
	w := &models.Workshop{
		ID: req.ID, Title: req.Title, Status: models.WorkshopStatusScheduled,
		CurrentTaskIndex: models.BeforeFirstPhase, CreatedBy: req.CreatedBy,
	}
	f.workshops[w.ID] = w
	return w, nil
}

func (f *fakeRepo) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	w, ok := f.workshops[id]
	if !ok {
		return nil, ErrWorkshopNotFound
	}
	return w, nil
}

func (f *fakeRepo) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, errors.New("task not found")
	}
	return t, nil
}

func (f *fakeRepo) GetCurrentTask(ctx context.Context, w *models.Workshop) (*models.Task, error) {
	if w.CurrentTaskID == nil {
		return nil, nil
	}
	return f.GetTask(ctx, *w.CurrentTaskID)
}

func (f *fakeRepo) GetLatestTaskByType(ctx context.Context, workshopID uuid.UUID, phaseType string) (*models.Task, error) {
	for _, t := range f.tasks {
		if t.WorkshopID == workshopID && t.PhaseType == phaseType {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetParticipant(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error) {
	p, ok := f.participants[userID]
	if !ok {
		return nil, errors.New("participant not found")
	}
	return p, nil
}

func (f *fakeRepo) ListAcceptedParticipants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range f.participants {
		if p.Status == models.ParticipantStatusAccepted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListIdeasByTask(ctx context.Context, taskID uuid.UUID) ([]models.Idea, error) {
	var out []models.Idea
	for _, i := range f.ideas {
		if i.TaskID == taskID {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	result   *generator.Result
	err      error
	calls    int
	generate func(req generator.Request) (*generator.Result, error)
}

func (g *fakeGenerator) GenerateTask(ctx context.Context, req generator.Request) (*generator.Result, error) {
	g.calls++
	if g.generate != nil {
		return g.generate(req)
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

// fakeTx applies session mutations directly to the fakeRepo's state and
// records the events that would have gone through the outbox.
type fakeTx struct {
	repo *fakeRepo

	eventTypes    []string
	eventPayloads []any
	dotResets     []int
}

func (f *fakeTx) GetWorkshopForUpdate(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return f.repo.GetWorkshop(ctx, id)
}

func (f *fakeTx) UpdateSession(ctx context.Context, id uuid.UUID, upd SessionUpdate) (*models.Workshop, error) {
	w, ok := f.repo.workshops[id]
	if !ok {
		return nil, ErrWorkshopNotFound
	}
	w.Status = upd.Status
	w.CurrentTaskID = upd.CurrentTaskID
	w.CurrentTaskIndex = upd.CurrentTaskIndex
	w.TimerStartTime = upd.TimerStartTime
	w.TimerPausedAt = upd.TimerPausedAt
	w.TimerElapsedBeforePause = upd.TimerElapsedBeforePause
	return w, nil
}

func (f *fakeTx) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	t := &models.Task{
		ID: params.ID, WorkshopID: params.WorkshopID, PhaseType: params.PhaseType,
		Title: params.Title, DurationSec: params.DurationSec,
		Status: params.Status, StartedAt: params.StartedAt,
	}
	f.repo.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTx) FinishTask(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, endedAt time.Time) error {
	if t, ok := f.repo.tasks[taskID]; ok {
		t.Status = status
		t.EndedAt = &endedAt
	}
	return nil
}

func (f *fakeTx) CreateCluster(ctx context.Context, taskID uuid.UUID, name, description string) (*models.Cluster, error) {
	return &models.Cluster{ID: uuid.New(), TaskID: taskID, Name: name, Description: description}, nil
}

func (f *fakeTx) AssignIdeaToCluster(ctx context.Context, ideaID, clusterID uuid.UUID) error {
	return nil
}

func (f *fakeTx) ResetDots(ctx context.Context, workshopID uuid.UUID, budget int) error {
	f.dotResets = append(f.dotResets, budget)
	return nil
}

func (f *fakeTx) ListAcceptedParticipants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error) {
	return f.repo.ListAcceptedParticipants(ctx, workshopID)
}

func (f *fakeTx) InsertEvent(ctx context.Context, workshopID uuid.UUID, eventType string, payload any) error {
	f.eventTypes = append(f.eventTypes, eventType)
	f.eventPayloads = append(f.eventPayloads, payload)
	return nil
}

func testApp(repo *fakeRepo, gen *fakeGenerator) (*App, clockwork.Clock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	return NewApp(nil, repo, gen, clock, DefaultDotBudget), clock
}

func testAppWithTx(repo *fakeRepo, gen *fakeGenerator) (*App, *fakeTx, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	app := NewApp(nil, repo, gen, clock, DefaultDotBudget)
	tx := &fakeTx{repo: repo}
	app.runTx = func(ctx context.Context, fn func(r *txRepos) error) error {
		return fn(&txRepos{workshop: tx, outbox: tx})
	}
	return app, tx, clock
}

func seedWorkshop(repo *fakeRepo, status models.WorkshopStatus) (*models.Workshop, uuid.UUID) {
	organizer := uuid.New()
	w := &models.Workshop{
		ID:               uuid.New(),
		Title:            "Roadmap Session",
		Status:           status,
		CurrentTaskIndex: models.BeforeFirstPhase,
		CreatedBy:        organizer,
	}
	repo.workshops[w.ID] = w
	return w, organizer
}

func TestLifecycleRequiresOrganizer(t *testing.T) {
	repo := newFakeRepo()
	w, _ := seedWorkshop(repo, models.WorkshopStatusScheduled)
	stranger := uuid.New()
	repo.participants[stranger] = &models.Participant{
		ID: uuid.New(), WorkshopID: w.ID, UserID: stranger,
		Role: models.RoleParticipant, Status: models.ParticipantStatusAccepted,
	}
	app, _ := testApp(repo, &fakeGenerator{})

	if _, err := app.Start(context.Background(), w.ID, stranger); !errors.Is(err, ErrNotOrganizer) {
		t.Errorf("Start by participant = %v, want ErrNotOrganizer", err)
	}
	if _, err := app.AdvancePhase(context.Background(), w.ID, uuid.New()); !errors.Is(err, ErrNotOrganizer) {
		t.Errorf("AdvancePhase by stranger = %v, want ErrNotOrganizer", err)
	}
}

func TestAdvancePhaseRequiresRunningWorkshop(t *testing.T) {
	repo := newFakeRepo()
	gen := &fakeGenerator{}
	app, _ := testApp(repo, gen)

	for _, status := range []models.WorkshopStatus{
		models.WorkshopStatusScheduled,
		models.WorkshopStatusPaused,
		models.WorkshopStatusCompleted,
		models.WorkshopStatusCancelled,
	} {
		w, organizer := seedWorkshop(repo, status)
		if _, err := app.AdvancePhase(context.Background(), w.ID, organizer); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("AdvancePhase from %s = %v, want ErrInvalidTransition", status, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for rejected advances", gen.calls)
	}
}

func TestAdvancePhaseSequenceExhausted(t *testing.T) {
	repo := newFakeRepo()
	gen := &fakeGenerator{}
	app, _ := testApp(repo, gen)

	w, organizer := seedWorkshop(repo, models.WorkshopStatusInProgress)
	w.CurrentTaskIndex = phase.Count() - 1

	if _, err := app.AdvancePhase(context.Background(), w.ID, organizer); !errors.Is(err, ErrSequenceExhausted) {
		t.Errorf("AdvancePhase past end = %v, want ErrSequenceExhausted", err)
	}
	if gen.calls != 0 {
		t.Error("generator should not run past the end of the sequence")
	}
}

func TestAdvancePhaseGenerationFailureLeavesSessionUntouched(t *testing.T) {
	repo := newFakeRepo()
	gen := &fakeGenerator{err: generator.ErrGenerationFailed}
	app, _ := testApp(repo, gen)

	w, organizer := seedWorkshop(repo, models.WorkshopStatusInProgress)

	_, err := app.AdvancePhase(context.Background(), w.ID, organizer)
	if !errors.Is(err, generator.ErrGenerationFailed) {
		t.Fatalf("AdvancePhase = %v, want ErrGenerationFailed", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if w.CurrentTaskIndex != models.BeforeFirstPhase || w.CurrentTaskID != nil {
		t.Error("session state changed despite generation failure")
	}
	if w.Status != models.WorkshopStatusInProgress {
		t.Errorf("status changed to %s", w.Status)
	}
}

func TestGetSessionStateComputesRemaining(t *testing.T) {
	repo := newFakeRepo()
	app, clock := testApp(repo, &fakeGenerator{})

	w, _ := seedWorkshop(repo, models.WorkshopStatusInProgress)
	task := &models.Task{ID: uuid.New(), WorkshopID: w.ID, PhaseType: string(phase.TypeBrainstorming), DurationSec: 300}
	repo.tasks[task.ID] = task
	start := clock.Now().Add(-130 * time.Second)
	w.CurrentTaskID = &task.ID
	w.CurrentTaskIndex = 0
	w.TimerStartTime = &start

	state, err := app.GetSessionState(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("GetSessionState: %v", err)
	}
	if state.RemainingSec != 170 {
		t.Errorf("RemainingSec = %d, want 170", state.RemainingSec)
	}
	if state.IsPaused {
		t.Error("IsPaused = true for running workshop")
	}
}

func TestPauseResumeFoldsElapsedTime(t *testing.T) {
	repo := newFakeRepo()
	app, tx, clock := testAppWithTx(repo, &fakeGenerator{})

	w, organizer := seedWorkshop(repo, models.WorkshopStatusInProgress)
	task := &models.Task{ID: uuid.New(), WorkshopID: w.ID, PhaseType: string(phase.TypeBrainstorming), DurationSec: 100}
	repo.tasks[task.ID] = task
	start := clock.Now()
	w.CurrentTaskID = &task.ID
	w.CurrentTaskIndex = 0
	w.TimerStartTime = &start

	// 30s of the 100s countdown pass before the pause.
	clock.Advance(30 * time.Second)
	if _, err := app.Pause(context.Background(), w.ID, organizer); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if w.Status != models.WorkshopStatusPaused {
		t.Fatalf("status = %s, want paused", w.Status)
	}
	if w.TimerElapsedBeforePause != 30 {
		t.Errorf("elapsed accumulator = %d, want 30", w.TimerElapsedBeforePause)
	}
	if w.TimerStartTime != nil {
		t.Error("timer start time not cleared by pause")
	}

	pausePayload, ok := tx.eventPayloads[0].(*events.WorkshopLifecyclePayload)
	if !ok {
		t.Fatalf("pause payload = %T", tx.eventPayloads[0])
	}
	if pausePayload.RemainingSec == nil || *pausePayload.RemainingSec != 70 {
		t.Errorf("pause payload remaining = %v, want 70", pausePayload.RemainingSec)
	}

	// The countdown stays frozen no matter how long the pause lasts.
	clock.Advance(1000 * time.Second)
	if got := RemainingSeconds(w, task, clock.Now()); got != 70 {
		t.Errorf("remaining while paused = %d, want 70", got)
	}

	if _, err := app.Resume(context.Background(), w.ID, organizer); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if w.Status != models.WorkshopStatusInProgress {
		t.Fatalf("status = %s, want inprogress", w.Status)
	}
	if w.TimerElapsedBeforePause != 30 {
		t.Errorf("elapsed accumulator after resume = %d, want 30", w.TimerElapsedBeforePause)
	}
	if w.TimerStartTime == nil || !w.TimerStartTime.Equal(clock.Now()) {
		t.Errorf("timer start time after resume = %v, want %v", w.TimerStartTime, clock.Now())
	}
	if got := RemainingSeconds(w, task, clock.Now()); got != 70 {
		t.Errorf("remaining after resume = %d, want 70", got)
	}
	clock.Advance(30 * time.Second)
	if got := RemainingSeconds(w, task, clock.Now()); got != 40 {
		t.Errorf("remaining 30s after resume = %d, want 40", got)
	}

	if len(tx.eventTypes) != 2 ||
		tx.eventTypes[0] != events.TypeWorkshopPaused ||
		tx.eventTypes[1] != events.TypeWorkshopResumed {
		t.Errorf("event types = %v", tx.eventTypes)
	}
}

func TestAdvanceThroughFullSequence(t *testing.T) {
	repo := newFakeRepo()
	gen := &fakeGenerator{
		generate: func(req generator.Request) (*generator.Result, error) {
			p := &phase.TaskPayload{Title: "Generated", Type: req.Phase, Description: "d", DurationSec: 60}
			if req.Phase == phase.TypeClusteringVoting {
				p.Clustering = &phase.ClusteringDetails{
					Clusters: []phase.ClusterSpec{{Name: "Theme A"}},
				}
			}
			return &generator.Result{Payload: p}, nil
		},
	}
	app, tx, _ := testAppWithTx(repo, gen)

	w, organizer := seedWorkshop(repo, models.WorkshopStatusInProgress)
	voter := uuid.New()
	repo.participants[voter] = &models.Participant{
		ID: uuid.New(), WorkshopID: w.ID, UserID: voter,
		Role: models.RoleParticipant, Status: models.ParticipantStatusAccepted,
	}

	for i := 0; i < phase.Count(); i++ {
		want, _ := phase.At(i)
		task, err := app.AdvancePhase(context.Background(), w.ID, organizer)
		if err != nil {
			t.Fatalf("AdvancePhase %d: %v", i, err)
		}
		if task.PhaseType != string(want) {
			t.Errorf("phase %d = %s, want %s", i, task.PhaseType, want)
		}
		if w.CurrentTaskIndex != i {
			t.Errorf("index after advance %d = %d", i, w.CurrentTaskIndex)
		}
	}

	if _, err := app.AdvancePhase(context.Background(), w.ID, organizer); !errors.Is(err, ErrSequenceExhausted) {
		t.Errorf("advance past final phase = %v, want ErrSequenceExhausted", err)
	}

	if len(tx.dotResets) != 1 || tx.dotResets[0] != DefaultDotBudget {
		t.Errorf("dot resets = %v, want one reset to %d", tx.dotResets, DefaultDotBudget)
	}

	var ready []events.TaskReadyPayload
	for _, p := range tx.eventPayloads {
		if tr, ok := p.(events.TaskReadyPayload); ok {
			ready = append(ready, tr)
		}
	}
	if len(ready) != phase.Count() {
		t.Fatalf("task_ready events = %d, want %d", len(ready), phase.Count())
	}
	for _, tr := range ready {
		if tr.TaskType != string(phase.TypeClusteringVoting) {
			continue
		}
		if tr.Participants[voter.String()] != DefaultDotBudget {
			t.Errorf("voting announcement dots = %v", tr.Participants)
		}
	}
}

func TestCreateWorkshopValidation(t *testing.T) {
	repo := newFakeRepo()
	app, _ := testApp(repo, &fakeGenerator{})

	if _, err := app.CreateWorkshop(context.Background(), CreateWorkshopRequest{CreatedBy: uuid.New()}); err == nil {
		t.Error("CreateWorkshop without title should fail")
	}

	w, err := app.CreateWorkshop(context.Background(), CreateWorkshopRequest{Title: "Sprint Retro", CreatedBy: uuid.New()})
	if err != nil {
		t.Fatalf("CreateWorkshop: %v", err)
	}
	if w.Status != models.WorkshopStatusScheduled {
		t.Errorf("new workshop status = %s, want scheduled", w.Status)
	}
	if w.CurrentTaskIndex != models.BeforeFirstPhase {
		t.Errorf("new workshop index = %d, want %d", w.CurrentTaskIndex, models.BeforeFirstPhase)
	}
}
