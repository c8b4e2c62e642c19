package ideas

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/workshop"
)

// Service exposes idea submission over HTTP JSON.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workshops/{id}/ideas", s.handleSubmit)
	mux.HandleFunc("GET /api/tasks/{taskId}/ideas", s.handleList)
}

type submitRequest struct {
	TaskID  uuid.UUID `json:"task_id"`
	UserID  uuid.UUID `json:"user_id"`
	Content string    `json:"content"`
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	workshopID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid workshop ID format", http.StatusBadRequest)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	idea, err := s.app.SubmitIdea(r.Context(), SubmitIdeaRequest{
		WorkshopID: workshopID,
		TaskID:     req.TaskID,
		UserID:     req.UserID,
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(idea); err != nil {
		log.Error().Err(err).Msg("failed to encode idea response")
	}
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(r.PathValue("taskId"))
	if err != nil {
		http.Error(w, "Invalid task ID format", http.StatusBadRequest)
		return
	}
	list, err := s.app.ListIdeas(r.Context(), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		log.Error().Err(err).Msg("failed to encode ideas response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workshop.ErrWorkshopNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrStaleTask), errors.Is(err, ErrNotAccepting):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrTimeExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		log.Error().Err(err).Msg("internal error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
