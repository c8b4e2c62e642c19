package chat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/brainstormlabs/brainstormx/go/internal/events"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/outbox"
	"github.com/brainstormlabs/brainstormx/go/internal/sqlutil"
)

// ReplayWindow is how many recent messages a joining client receives.
const ReplayWindow = 50

type txRepos struct {
	chat   *TxRepository
	outbox *outbox.TxRepository
}

func bindTxRepos(tx *sql.Tx) *txRepos {
	return &txRepos{
		chat:   NewTxRepository(tx),
		outbox: outbox.NewTxRepository(tx),
	}
}

// App handles workshop chat. Messages persist so late joiners can replay the
// recent window, and fan out through the outbox like every other room event.
type App struct {
	db    *sql.DB
	repo  *Repository
	clock clockwork.Clock
}

func NewApp(db *sql.DB, repo *Repository, clock clockwork.Clock) *App {
	return &App{db: db, repo: repo, clock: clock}
}

// Append stores one message and queues its broadcast.
func (a *App) Append(ctx context.Context, workshopID, userID uuid.UUID, displayName, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("validation failed: message body is empty")
	}

	m := models.ChatMessage{
		ID:          uuid.New(),
		WorkshopID:  workshopID,
		UserID:      userID,
		DisplayName: displayName,
		Body:        body,
		CreatedAt:   a.clock.Now().UTC(),
	}

	err := sqlutil.Run(ctx, a.db, bindTxRepos, func(r *txRepos) error {
		if err := r.chat.CreateMessage(ctx, m); err != nil {
			return err
		}
		return r.outbox.InsertEvent(ctx, workshopID, events.TypeReceiveMessage, events.ChatMessagePayload{
			MessageID:   m.ID.String(),
			WorkshopID:  workshopID.String(),
			UserID:      userID.String(),
			DisplayName: displayName,
			Body:        body,
			CreatedAt:   m.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Recent returns the replay window for a joining client.
func (a *App) Recent(ctx context.Context, workshopID uuid.UUID) ([]models.ChatMessage, error) {
	return a.repo.ListRecent(ctx, workshopID, ReplayWindow)
}
