package chat

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

// Repository stores and reads workshop chat messages.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListRecent returns the newest limit messages in chronological order.
func (r *Repository) ListRecent(ctx context.Context, workshopID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workshop_id, user_id, display_name, body, created_at FROM (
			SELECT id, workshop_id, user_id, display_name, body, created_at
			FROM chat_messages
			WHERE workshop_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id`, workshopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.WorkshopID, &m.UserID, &m.DisplayName, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TxRepository writes chat messages inside a domain transaction.
type TxRepository struct {
	tx *sql.Tx
}

func NewTxRepository(tx *sql.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

func (r *TxRepository) CreateMessage(ctx context.Context, m models.ChatMessage) error {
	if _, err := r.tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, workshop_id, user_id, display_name, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.WorkshopID, m.UserID, m.DisplayName, m.Body, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}
