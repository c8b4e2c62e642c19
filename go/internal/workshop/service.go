package workshop

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/generator"
	"github.com/brainstormlabs/brainstormx/go/internal/models"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

// Service exposes the workshop lifecycle over HTTP JSON.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the workshop routes on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workshops", s.handleCreate)
	mux.HandleFunc("GET /api/workshops/{id}", s.handleGet)
	mux.HandleFunc("GET /api/workshops/{id}/state", s.handleState)
	mux.HandleFunc("POST /api/workshops/{id}/start", s.lifecycle(s.app.Start))
	mux.HandleFunc("POST /api/workshops/{id}/pause", s.lifecycle(s.app.Pause))
	mux.HandleFunc("POST /api/workshops/{id}/resume", s.lifecycle(s.app.Resume))
	mux.HandleFunc("POST /api/workshops/{id}/stop", s.lifecycle(s.app.Stop))
	mux.HandleFunc("POST /api/workshops/{id}/cancel", s.lifecycle(s.app.Cancel))
	mux.HandleFunc("POST /api/workshops/{id}/restart", s.lifecycle(s.app.Restart))
	mux.HandleFunc("POST /api/workshops/{id}/advance", s.handleAdvance)
}

type createRequest struct {
	Title       string     `json:"title"`
	Objective   string     `json:"objective"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	DurationMin int        `json:"duration_min"`
	CreatedBy   uuid.UUID  `json:"created_by"`
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	ws, err := s.app.CreateWorkshop(r.Context(), CreateWorkshopRequest{
		Title:       req.Title,
		Objective:   req.Objective,
		ScheduledAt: req.ScheduledAt,
		DurationMin: req.DurationMin,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathWorkshopID(w, r)
	if !ok {
		return
	}
	ws, err := s.app.GetWorkshop(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// stateResponse is the HTTP form of a session snapshot.
type stateResponse struct {
	WorkshopID   string           `json:"workshop_id"`
	Status       string           `json:"status"`
	PhaseIndex   int              `json:"phase_index"`
	Task         *models.Task     `json:"task,omitempty"`
	RemainingSec int              `json:"remaining_seconds"`
	IsPaused     bool             `json:"is_paused"`
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathWorkshopID(w, r)
	if !ok {
		return
	}
	state, err := s.app.GetSessionState(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		WorkshopID:   state.Workshop.ID.String(),
		Status:       string(state.Workshop.Status),
		PhaseIndex:   state.Workshop.CurrentTaskIndex,
		Task:         state.Task,
		RemainingSec: state.RemainingSec,
		IsPaused:     state.IsPaused,
	})
}

// lifecycle adapts one App transition method into a handler. The acting user
// comes from the user_id query parameter; in production this is derived from
// the authenticated session instead.
func (s *Service) lifecycle(
	op func(ctx context.Context, workshopID, actorID uuid.UUID) (*models.Workshop, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathWorkshopID(w, r)
		if !ok {
			return
		}
		actorID, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		ws, err := op(r.Context(), id, actorID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ws)
	}
}

func (s *Service) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathWorkshopID(w, r)
	if !ok {
		return
	}
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	task, err := s.app.AdvancePhase(r.Context(), id, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func pathWorkshopID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid workshop ID format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actorID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return actorID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWorkshopNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotOrganizer):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSequenceExhausted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, phase.ErrInvalidPayload):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, generator.ErrGenerationFailed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		log.Error().Err(err).Msg("internal error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
