package generator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

func stubGenerator(t *testing.T, status int, body string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL)
}

func TestGenerateTaskMalformedDurationSurfacesPayloadError(t *testing.T) {
	c := stubGenerator(t, http.StatusOK,
		`{"title":"Brainstorm","task_type":"brainstorming","task_description":"d","task_duration":"180 seconds"}`)

	_, err := c.GenerateTask(context.Background(), Request{Phase: phase.TypeBrainstorming})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
	if !errors.Is(err, phase.ErrInvalidPayload) {
		t.Errorf("err = %v, want phase.ErrInvalidPayload to be detectable", err)
	}
}

func TestGenerateTaskServerErrorIsNotPayloadError(t *testing.T) {
	c := stubGenerator(t, http.StatusInternalServerError, "boom")

	_, err := c.GenerateTask(context.Background(), Request{Phase: phase.TypeBrainstorming})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
	if errors.Is(err, phase.ErrInvalidPayload) {
		t.Errorf("transport failure reported as payload error: %v", err)
	}
}

func TestGenerateTaskPhaseMismatch(t *testing.T) {
	c := stubGenerator(t, http.StatusOK,
		`{"title":"Brainstorm","task_type":"brainstorming","task_description":"d","task_duration":180}`)

	_, err := c.GenerateTask(context.Background(), Request{Phase: phase.TypeDiscussion})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
}
