package ideas

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

// TxRepository writes ideas inside a domain transaction.
type TxRepository struct {
	tx *sql.Tx
}

func NewTxRepository(tx *sql.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

func (r *TxRepository) CreateIdea(ctx context.Context, taskID, participantID uuid.UUID, content string, at time.Time) (*models.Idea, error) {
	idea := models.Idea{
		ID:            uuid.New(),
		TaskID:        taskID,
		ParticipantID: participantID,
		Content:       content,
		CreatedAt:     at,
	}
	if _, err := r.tx.ExecContext(ctx, `
		INSERT INTO brainstorm_ideas (id, task_id, participant_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		idea.ID, idea.TaskID, idea.ParticipantID, idea.Content, idea.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}
	return &idea, nil
}
