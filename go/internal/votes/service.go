package votes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/workshop"
)

// Service exposes dot voting over HTTP JSON.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workshops/{id}/votes", s.handleToggle)
}

type toggleRequest struct {
	ClusterID uuid.UUID `json:"cluster_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (s *Service) handleToggle(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid workshop ID format", http.StatusBadRequest)
		return
	}
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.app.Toggle(r.Context(), VoteRequest{
		WorkshopID: workshopID,
		ClusterID:  req.ClusterID,
		UserID:     req.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error().Err(err).Msg("failed to encode vote response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workshop.ErrWorkshopNotFound), errors.Is(err, ErrClusterNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrVotingClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNoDotsRemaining):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Error().Err(err).Msg("internal error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
