package workshop

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brainstormlabs/brainstormx/go/internal/generator"
	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrWorkshopNotFound, http.StatusNotFound},
		{"not organizer", ErrNotOrganizer, http.StatusForbidden},
		{"invalid transition", fmt.Errorf("%w: cannot pause from scheduled", ErrInvalidTransition), http.StatusConflict},
		{"sequence exhausted", ErrSequenceExhausted, http.StatusConflict},
		{"generation failed", fmt.Errorf("%w: status 500", generator.ErrGenerationFailed), http.StatusBadGateway},
		{"malformed payload", fmt.Errorf("%w: %w", generator.ErrGenerationFailed, phase.ErrInvalidPayload), http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}
