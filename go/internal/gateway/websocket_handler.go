package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/models"
)

// ParticipantReader verifies that a joining user belongs to the workshop.
type ParticipantReader interface {
	GetParticipant(ctx context.Context, workshopID, userID uuid.UUID) (*models.Participant, error)
}

// WebSocketHandler handles WebSocket upgrade requests for workshop rooms.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	participants      ParticipantReader
}

func NewWebSocketHandler(cm *ConnectionManager, participants ParticipantReader) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		participants:      participants,
	}
}

// HandleWorkshopConnection handles WebSocket connections for a workshop room.
func (h *WebSocketHandler) HandleWorkshopConnection(w http.ResponseWriter, r *http.Request) {
	workshopIDStr := r.URL.Query().Get("workshop_id")
	if workshopIDStr == "" {
		http.Error(w, "workshop_id is required", http.StatusBadRequest)
		return
	}
	workshopID, err := uuid.Parse(workshopIDStr)
	if err != nil {
		http.Error(w, "invalid workshop_id format", http.StatusBadRequest)
		return
	}

	// In production the user comes from the authenticated session, not a
	// query parameter.
	userIDStr := r.URL.Query().Get("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	participant, err := h.participants.GetParticipant(r.Context(), workshopID, userID)
	if err != nil {
		log.Warn().
			Str("workshop_id", workshopID.String()).
			Str("user_id", userIDStr).
			Msg("rejecting connection from non-participant")
		http.Error(w, "not a workshop participant", http.StatusForbidden)
		return
	}
	if participant.Status != models.ParticipantStatusAccepted {
		http.Error(w, "invitation not accepted", http.StatusForbidden)
		return
	}

	isOrganizer := participant.Role == models.RoleOrganizer
	if err := h.connectionManager.UpgradeConnection(w, r, userIDStr, participant.DisplayName, isOrganizer, workshopID); err != nil {
		log.Error().
			Err(err).
			Str("workshop_id", workshopID.String()).
			Str("user_id", userIDStr).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleLeaveBeacon accepts the best-effort beacon browsers fire on page
// unload and closes the user's connections right away. The read timeout
// remains the authoritative fallback when the beacon never arrives.
func (h *WebSocketHandler) HandleLeaveBeacon(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid workshop ID format", http.StatusBadRequest)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	closed := h.connectionManager.DisconnectUser(workshopID, userID)
	log.Debug().
		Str("workshop_id", workshopID.String()).
		Str("user_id", userID).
		Int("connections", closed).
		Msg("leave beacon processed")
	w.WriteHeader(http.StatusNoContent)
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/workshop", h.HandleWorkshopConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("POST /api/workshops/{id}/leave", h.HandleLeaveBeacon)
}
