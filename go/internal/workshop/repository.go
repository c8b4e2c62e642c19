package workshop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/sqlutil"
)

const workshopColumns = `id, title, objective, status, scheduled_at, duration_min,
	current_task_id, current_task_index,
	timer_start_time, timer_paused_at, timer_elapsed_before_pause,
	created_by, created_at, updated_at`

const taskColumns = `id, workshop_id, phase_type, title, payload, duration_sec,
	status, started_at, ended_at`

// Repository provides non-transactional reads and simple writes on workshops.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*models.Workshop, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO workshops (id, title, objective, status, scheduled_at, duration_min,
			current_task_index, timer_elapsed_before_pause, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, now(), now())
		RETURNING `+workshopColumns,
		req.ID, req.Title, req.Objective, models.WorkshopStatusScheduled,
		sqlutil.ToSqlTime(req.ScheduledAt), req.DurationMin, models.BeforeFirstPhase, req.CreatedBy)

	w, err := scanWorkshop(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create workshop: %w", err)
	}
	return w, nil
}

func (r *Repository) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id)
	w, err := scanWorkshop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkshopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workshop: %w", err)
	}
	return w, nil
}

func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM workshop_tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// GetCurrentTask returns the workshop's active task, or nil when none is set.
func (r *Repository) GetCurrentTask(ctx context.Context, w *models.Workshop) (*models.Task, error) {
	if w.CurrentTaskID == nil {
		return nil, nil
	}
	return r.GetTask(ctx, *w.CurrentTaskID)
}

// GetLatestTaskByType returns the most recently started task of one phase
// type, or nil when that phase has not run.
func (r *Repository) GetLatestTaskByType(ctx context.Context, workshopID uuid.UUID, phaseType string) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM workshop_tasks
		WHERE workshop_id = $1 AND phase_type = $2
		ORDER BY started_at DESC NULLS LAST
		LIMIT 1`, workshopID, phaseType)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task by type: %w", err)
	}
	return t, nil
}

func (r *Repository) GetParticipant(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workshop_id, user_id, display_name, role, status, dots_remaining, joined_at
		FROM workshop_participants
		WHERE workshop_id = $1 AND user_id = $2`, workshopID, userID)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (r *Repository) ListAcceptedParticipants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workshop_id, user_id, display_name, role, status, dots_remaining, joined_at
		FROM workshop_participants
		WHERE workshop_id = $1 AND status = $2
		ORDER BY joined_at NULLS LAST`, workshopID, models.ParticipantStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListIdeasByTask returns the ideas submitted to one task in submission order.
func (r *Repository) ListIdeasByTask(ctx context.Context, taskID uuid.UUID) ([]models.Idea, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, participant_id, content, cluster_id, created_at
		FROM brainstorm_ideas
		WHERE task_id = $1
		ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	defer rows.Close()

	var out []models.Idea
	for rows.Next() {
		var i models.Idea
		var clusterID uuid.NullUUID
		if err := rows.Scan(&i.ID, &i.TaskID, &i.ParticipantID, &i.Content, &clusterID, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		i.ClusterID = sqlutil.FromNullUUID(clusterID)
		out = append(out, i)
	}
	return out, rows.Err()
}

// ListClustersByTask returns the voting clusters created for one task.
func (r *Repository) ListClustersByTask(ctx context.Context, taskID uuid.UUID) ([]models.Cluster, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, name, COALESCE(description, '')
		FROM idea_clusters
		WHERE task_id = $1
		ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	defer rows.Close()

	var out []models.Cluster
	for rows.Next() {
		var c models.Cluster
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TxRepository performs the transactional session mutations. Every lifecycle
// operation starts by locking the workshop row, which is the per-workshop
// serialization point.
type TxRepository struct {
	tx *sql.Tx
}

func NewTxRepository(tx *sql.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

// GetWorkshopForUpdate loads the workshop row under FOR UPDATE.
func (r *TxRepository) GetWorkshopForUpdate(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = $1 FOR UPDATE`, id)
	w, err := scanWorkshop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkshopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock workshop: %w", err)
	}
	return w, nil
}

// UpdateSession writes the full session state of a workshop.
func (r *TxRepository) UpdateSession(ctx context.Context, id uuid.UUID, upd SessionUpdate) (*models.Workshop, error) {
	row := r.tx.QueryRowContext(ctx, `
		UPDATE workshops
		SET status = $2,
			current_task_id = $3,
			current_task_index = $4,
			timer_start_time = $5,
			timer_paused_at = $6,
			timer_elapsed_before_pause = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING `+workshopColumns,
		id, upd.Status, sqlutil.ToNullUUID(upd.CurrentTaskID), upd.CurrentTaskIndex,
		sqlutil.ToSqlTime(upd.TimerStartTime), sqlutil.ToSqlTime(upd.TimerPausedAt),
		upd.TimerElapsedBeforePause)

	w, err := scanWorkshop(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update workshop session: %w", err)
	}
	return w, nil
}

func (r *TxRepository) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	row := r.tx.QueryRowContext(ctx, `
		INSERT INTO workshop_tasks (id, workshop_id, phase_type, title, payload, duration_sec, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		params.ID, params.WorkshopID, params.PhaseType, params.Title,
		[]byte(params.Payload), params.DurationSec, params.Status,
		sqlutil.ToSqlTime(params.StartedAt))

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// FinishTask marks a task's terminal status and end time.
func (r *TxRepository) FinishTask(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, endedAt time.Time) error {
	if _, err := r.tx.ExecContext(ctx, `
		UPDATE workshop_tasks SET status = $2, ended_at = $3 WHERE id = $1`,
		taskID, status, endedAt); err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}
	return nil
}

func (r *TxRepository) CreateCluster(ctx context.Context, taskID uuid.UUID, name, description string) (*models.Cluster, error) {
	c := models.Cluster{ID: uuid.New(), TaskID: taskID, Name: name, Description: description}
	if _, err := r.tx.ExecContext(ctx, `
		INSERT INTO idea_clusters (id, task_id, name, description)
		VALUES ($1, $2, $3, $4)`,
		c.ID, c.TaskID, c.Name, sqlutil.ToSqlString(nonEmpty(description))); err != nil {
		return nil, fmt.Errorf("failed to create cluster: %w", err)
	}
	return &c, nil
}

// AssignIdeaToCluster records the clustering reclassification; the idea keeps
// belonging to its originating brainstorming task.
func (r *TxRepository) AssignIdeaToCluster(ctx context.Context, ideaID, clusterID uuid.UUID) error {
	if _, err := r.tx.ExecContext(ctx, `
		UPDATE brainstorm_ideas SET cluster_id = $2 WHERE id = $1`, ideaID, clusterID); err != nil {
		return fmt.Errorf("failed to assign idea to cluster: %w", err)
	}
	return nil
}

// ListAcceptedParticipants reads the accepted participants inside the
// transaction, so a dot reset and the roster it announces agree.
func (r *TxRepository) ListAcceptedParticipants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, workshop_id, user_id, display_name, role, status, dots_remaining, joined_at
		FROM workshop_participants
		WHERE workshop_id = $1 AND status = $2
		ORDER BY joined_at NULLS LAST`, workshopID, models.ParticipantStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ResetDots gives every accepted participant a fresh voting budget.
func (r *TxRepository) ResetDots(ctx context.Context, workshopID uuid.UUID, budget int) error {
	if _, err := r.tx.ExecContext(ctx, `
		UPDATE workshop_participants SET dots_remaining = $2
		WHERE workshop_id = $1 AND status = $3`,
		workshopID, budget, models.ParticipantStatusAccepted); err != nil {
		return fmt.Errorf("failed to reset dots: %w", err)
	}
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkshop(row rowScanner) (*models.Workshop, error) {
	var w models.Workshop
	var scheduledAt, timerStart, timerPaused sql.NullTime
	var currentTaskID uuid.NullUUID
	if err := row.Scan(
		&w.ID, &w.Title, &w.Objective, &w.Status, &scheduledAt, &w.DurationMin,
		&currentTaskID, &w.CurrentTaskIndex,
		&timerStart, &timerPaused, &w.TimerElapsedBeforePause,
		&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	w.ScheduledAt = sqlutil.FromSqlTime(scheduledAt)
	w.CurrentTaskID = sqlutil.FromNullUUID(currentTaskID)
	w.TimerStartTime = sqlutil.FromSqlTime(timerStart)
	w.TimerPausedAt = sqlutil.FromSqlTime(timerPaused)
	return &w, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var payload pqtype.NullRawMessage
	var startedAt, endedAt sql.NullTime
	if err := row.Scan(
		&t.ID, &t.WorkshopID, &t.PhaseType, &t.Title, &payload,
		&t.DurationSec, &t.Status, &startedAt, &endedAt,
	); err != nil {
		return nil, err
	}
	if payload.Valid {
		t.Payload = payload.RawMessage
	}
	t.StartedAt = sqlutil.FromSqlTime(startedAt)
	t.EndedAt = sqlutil.FromSqlTime(endedAt)
	return &t, nil
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var p models.Participant
	var joinedAt sql.NullTime
	if err := row.Scan(
		&p.ID, &p.WorkshopID, &p.UserID, &p.DisplayName, &p.Role, &p.Status,
		&p.DotsRemaining, &joinedAt,
	); err != nil {
		return nil, err
	}
	p.JoinedAt = sqlutil.FromSqlTime(joinedAt)
	return &p, nil
}
