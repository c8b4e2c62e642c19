package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

// Repository provides non-transactional vote reads.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// TallyByTask returns the vote count per cluster for one task, including
// clusters with zero votes.
func (r *Repository) TallyByTask(ctx context.Context, taskID uuid.UUID) ([]models.ClusterTally, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, COUNT(v.id)
		FROM idea_clusters c
		LEFT JOIN cluster_votes v ON v.cluster_id = c.id
		WHERE c.task_id = $1
		GROUP BY c.id
		ORDER BY c.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	defer rows.Close()

	var out []models.ClusterTally
	for rows.Next() {
		var t models.ClusterTally
		if err := rows.Scan(&t.ClusterID, &t.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TxRepository performs the transactional vote toggle. The participant row
// lock is the serialization point for one participant's dot budget.
type TxRepository struct {
	tx *sql.Tx
}

func NewTxRepository(tx *sql.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

// GetParticipantForUpdate locks one participant row for the toggle.
func (r *TxRepository) GetParticipantForUpdate(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, workshop_id, user_id, display_name, role, status, dots_remaining
		FROM workshop_participants
		WHERE workshop_id = $1 AND user_id = $2
		FOR UPDATE`, workshopID, userID)

	var p models.Participant
	if err := row.Scan(&p.ID, &p.WorkshopID, &p.UserID, &p.DisplayName, &p.Role, &p.Status, &p.DotsRemaining); err != nil {
		return nil, fmt.Errorf("failed to lock participant: %w", err)
	}
	return &p, nil
}

func (r *TxRepository) GetCluster(ctx context.Context, clusterID uuid.UUID) (*models.Cluster, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, task_id, name, COALESCE(description, '')
		FROM idea_clusters WHERE id = $1`, clusterID)

	var c models.Cluster
	if err := row.Scan(&c.ID, &c.TaskID, &c.Name, &c.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClusterNotFound
		}
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return &c, nil
}

// GetVote returns this participant's vote on the cluster, or nil.
func (r *TxRepository) GetVote(ctx context.Context, clusterID, participantID uuid.UUID) (*models.Vote, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, cluster_id, participant_id, created_at
		FROM cluster_votes
		WHERE cluster_id = $1 AND participant_id = $2`, clusterID, participantID)

	var v models.Vote
	err := row.Scan(&v.ID, &v.ClusterID, &v.ParticipantID, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &v, nil
}

func (r *TxRepository) InsertVote(ctx context.Context, clusterID, participantID uuid.UUID, at time.Time) (*models.Vote, error) {
	v := models.Vote{ID: uuid.New(), ClusterID: clusterID, ParticipantID: participantID, CreatedAt: at}
	if _, err := r.tx.ExecContext(ctx, `
		INSERT INTO cluster_votes (id, cluster_id, participant_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		v.ID, v.ClusterID, v.ParticipantID, v.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}
	return &v, nil
}

func (r *TxRepository) DeleteVote(ctx context.Context, voteID uuid.UUID) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM cluster_votes WHERE id = $1`, voteID); err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

func (r *TxRepository) UpdateDots(ctx context.Context, participantID uuid.UUID, dots int) error {
	if _, err := r.tx.ExecContext(ctx, `
		UPDATE workshop_participants SET dots_remaining = $2 WHERE id = $1`,
		participantID, dots); err != nil {
		return fmt.Errorf("failed to update dots: %w", err)
	}
	return nil
}

// CountVotes re-counts a cluster's votes inside the transaction, so the
// broadcast tally is a consistent snapshot rather than an increment.
func (r *TxRepository) CountVotes(ctx context.Context, clusterID uuid.UUID) (int, error) {
	var n int
	if err := r.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cluster_votes WHERE cluster_id = $1`, clusterID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
