package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/events"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/workshop"
)

// StateProvider supplies the session snapshot for a room.
type StateProvider interface {
	GetSessionState(ctx context.Context, id uuid.UUID) (*workshop.SessionState, error)
}

// RoomDataReader supplies the per-room detail the join replay needs.
type RoomDataReader interface {
	ListClustersByTask(ctx context.Context, taskID uuid.UUID) ([]models.Cluster, error)
	ListAcceptedParticipants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error)
}

// TallyReader supplies vote counts per cluster.
type TallyReader interface {
	TallyByTask(ctx context.Context, taskID uuid.UUID) ([]models.ClusterTally, error)
}

// ChatService accepts upstream chat and serves the replay window.
type ChatService interface {
	Append(ctx context.Context, workshopID, userID uuid.UUID, displayName, body string) (*models.ChatMessage, error)
	Recent(ctx context.Context, workshopID uuid.UUID) ([]models.ChatMessage, error)
}

// Hub wires room membership to the domain: it replays full state to joining
// clients, keeps presence lists current and routes upstream chat.
type Hub struct {
	manager *ConnectionManager
	state   StateProvider
	rooms   RoomDataReader
	tallies TallyReader
	chat    ChatService
	clock   clockwork.Clock
}

func NewHub(manager *ConnectionManager, state StateProvider, rooms RoomDataReader, tallies TallyReader, chat ChatService, clock clockwork.Clock) *Hub {
	h := &Hub{
		manager: manager,
		state:   state,
		rooms:   rooms,
		tallies: tallies,
		chat:    chat,
		clock:   clock,
	}
	manager.SetListener(h)
	return h
}

// TaskSnapshot is the replayed form of the current task.
type TaskSnapshot struct {
	TaskID      string          `json:"task_id"`
	TaskType    string          `json:"task_type"`
	Title       string          `json:"title"`
	Payload     json.RawMessage `json:"payload"`
	DurationSec int             `json:"duration"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
}

// RoomSyncPayload is the full state replay a joining client receives. It is
// built fresh per join; remaining_seconds is computed at send time so a
// client joining mid-countdown lands on the live value.
type RoomSyncPayload struct {
	WorkshopID   string                `json:"workshop_id"`
	Status       string                `json:"status"`
	PhaseIndex   int                   `json:"phase_index"`
	Task         *TaskSnapshot         `json:"task,omitempty"`
	RemainingSec int                   `json:"remaining_seconds"`
	IsPaused     bool                  `json:"is_paused"`
	Clusters     []events.ClusterInfo  `json:"clusters,omitempty"`
	Tallies      map[string]int        `json:"tallies,omitempty"`
	Dots         map[string]int        `json:"participants_dots,omitempty"`
	Online       []PresenceInfo        `json:"online"`
	Chat         []models.ChatMessage  `json:"chat"`
}

// OnJoin replays the room state to the new connection and refreshes the
// presence list for everyone.
func (h *Hub) OnJoin(ctx context.Context, conn *Connection) {
	sync, err := h.buildRoomSync(ctx, conn.WorkshopID)
	if err != nil {
		log.Error().
			Err(err).
			Str("workshop_id", conn.WorkshopID.String()).
			Msg("failed to build room sync")
	} else {
		event, err := NewRoomEvent(uuid.New().String(), conn.WorkshopID.String(), events.TypeRoomSync, h.clock.Now(), sync)
		if err != nil {
			log.Error().Err(err).Msg("failed to build room sync event")
		} else {
			h.manager.SendToConnection(conn, event)
		}
	}

	h.broadcastPresence(conn.WorkshopID)
}

// OnLeave refreshes the presence list.
func (h *Hub) OnLeave(ctx context.Context, conn *Connection) {
	h.broadcastPresence(conn.WorkshopID)
}

// OnClientMessage routes upstream messages. Chat goes through the chat app,
// which persists it and emits the broadcast through the outbox; nothing is
// echoed directly so every gateway instance sees the same stream.
func (h *Hub) OnClientMessage(ctx context.Context, conn *Connection, msg ClientMessage) {
	switch msg.Type {
	case ClientMessageChat:
		userID, err := uuid.Parse(conn.UserID)
		if err != nil {
			log.Warn().Str("user_id", conn.UserID).Msg("chat from connection with invalid user id")
			return
		}
		if _, err := h.chat.Append(ctx, conn.WorkshopID, userID, conn.DisplayName, msg.Message); err != nil {
			log.Error().
				Err(err).
				Str("workshop_id", conn.WorkshopID.String()).
				Str("user_id", conn.UserID).
				Msg("failed to append chat message")
		}
	default:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("type", msg.Type).
			Msg("ignoring unknown client message type")
	}
}

func (h *Hub) broadcastPresence(workshopID uuid.UUID) {
	payload := map[string]any{
		"workshop_id": workshopID.String(),
		"online":      h.manager.OnlineUsers(workshopID),
	}
	event, err := NewRoomEvent(uuid.New().String(), workshopID.String(), events.TypeParticipantListUpdate, h.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build presence event")
		return
	}
	h.manager.BroadcastToWorkshop(workshopID, event)
}

// buildRoomSync assembles the full replay for one room.
func (h *Hub) buildRoomSync(ctx context.Context, workshopID uuid.UUID) (*RoomSyncPayload, error) {
	state, err := h.state.GetSessionState(ctx, workshopID)
	if err != nil {
		return nil, err
	}

	sync := &RoomSyncPayload{
		WorkshopID:   workshopID.String(),
		Status:       string(state.Workshop.Status),
		PhaseIndex:   state.Workshop.CurrentTaskIndex,
		RemainingSec: state.RemainingSec,
		IsPaused:     state.IsPaused,
		Online:       h.manager.OnlineUsers(workshopID),
	}

	if state.Task != nil {
		sync.Task = &TaskSnapshot{
			TaskID:      state.Task.ID.String(),
			TaskType:    state.Task.PhaseType,
			Title:       state.Task.Title,
			Payload:     state.Task.Payload,
			DurationSec: state.Task.DurationSec,
			StartedAt:   state.Task.StartedAt,
		}

		clusters, err := h.rooms.ListClustersByTask(ctx, state.Task.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range clusters {
			sync.Clusters = append(sync.Clusters, events.ClusterInfo{
				ClusterID:   c.ID.String(),
				Name:        c.Name,
				Description: c.Description,
			})
		}
		if len(clusters) > 0 {
			tallies, err := h.tallies.TallyByTask(ctx, state.Task.ID)
			if err != nil {
				return nil, err
			}
			sync.Tallies = make(map[string]int, len(tallies))
			for _, t := range tallies {
				sync.Tallies[t.ClusterID.String()] = t.Votes
			}
		}
	}

	participants, err := h.rooms.ListAcceptedParticipants(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	sync.Dots = make(map[string]int, len(participants))
	for _, p := range participants {
		sync.Dots[p.UserID.String()] = p.DotsRemaining
	}

	recent, err := h.chat.Recent(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []models.ChatMessage{}
	}
	sync.Chat = recent

	return sync, nil
}
