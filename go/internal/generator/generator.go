package generator

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

// ErrGenerationFailed reports that the content generator could not produce a
// usable payload for a phase. Callers must not advance the workshop when they
// see it; the session stays exactly where it was.
var ErrGenerationFailed = errors.New("task content generation failed")

// Request describes the phase content to generate.
type Request struct {
	WorkshopID uuid.UUID `json:"workshop_id"`
	Title      string    `json:"title"`
	Objective  string    `json:"objective"`
	Phase      phase.Type `json:"task_type"`
	PhaseIndex int       `json:"phase_index"`
	// Ideas carries the prior brainstorming output, in submission order, for
	// phases that build on it. ClusterSpec.IdeaIndices refer to positions in
	// this slice.
	Ideas []string `json:"ideas,omitempty"`
}

// Result is a validated generator response. Raw is the exact JSON stored on
// the task record; Payload is its parsed form.
type Result struct {
	Payload *phase.TaskPayload
	Raw     json.RawMessage
}

// ContentGenerator produces the content for one phase of a workshop.
type ContentGenerator interface {
	GenerateTask(ctx context.Context, req Request) (*Result, error)
}
