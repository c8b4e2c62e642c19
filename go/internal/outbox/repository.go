package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/sqlutil"
)

// Repository reads and updates outbox rows outside of domain transactions.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchUnpublished returns up to limit unpublished events in insertion order.
// Rows are locked with SKIP LOCKED so concurrent workers never double-claim.
func (r *Repository) FetchUnpublished(ctx context.Context, tx *sql.Tx, limit int32) ([]Event, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, workshop_id, event_type, payload, created_at, published_at
		FROM workshop_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var publishedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.WorkshopID, &e.EventType, &e.Payload, &e.CreatedAt, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.PublishedAt = sqlutil.FromSqlTime(publishedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkPublished stamps one event as delivered to the bus.
func (r *Repository) MarkPublished(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE workshop_outbox SET published_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	return nil
}

// Begin opens a transaction on the underlying database for the worker's
// claim-publish-mark cycle.
func (r *Repository) Begin(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

// TxRepository inserts outbox events inside a domain transaction, so that the
// event commits or rolls back together with the state change it describes.
type TxRepository struct {
	tx *sql.Tx
}

func NewTxRepository(tx *sql.Tx) *TxRepository {
	return &TxRepository{tx: tx}
}

// InsertEvent appends one event and raises the NOTIFY that wakes the worker.
func (r *TxRepository) InsertEvent(ctx context.Context, workshopID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	if _, err := r.tx.ExecContext(ctx, `
		INSERT INTO workshop_outbox (id, workshop_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), workshopID, eventType, body); err != nil {
		return fmt.Errorf("failed to insert outbox event %s: %w", eventType, err)
	}

	if _, err := r.tx.ExecContext(ctx, `SELECT pg_notify('workshop_outbox_events', $1)`, workshopID.String()); err != nil {
		return fmt.Errorf("failed to notify outbox channel: %w", err)
	}
	return nil
}
