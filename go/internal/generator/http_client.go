package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brainstormlabs/brainstormx/go/internal/phase"
)

// HTTPClient calls an external content generation service over HTTP JSON.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GenerateTask posts the request to the generation service and validates the
// response against the payload contract. Every failure wraps
// ErrGenerationFailed; contract violations additionally wrap
// phase.ErrInvalidPayload.
func (c *HTTPClient) GenerateTask(ctx context.Context, genReq Request) (*Result, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Str("workshopId", genReq.WorkshopID.String()).
			Str("taskType", string(genReq.Phase)).
			Int("status", resp.StatusCode).
			Msg("Generator returned non-success status")
		return nil, fmt.Errorf("%w: status %d", ErrGenerationFailed, resp.StatusCode)
	}

	payload, err := phase.Parse(raw)
	if err != nil {
		// Keep the payload-shape sentinel visible alongside the generation
		// failure so callers can tell malformed content from a dead service.
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if payload.Type != genReq.Phase {
		return nil, fmt.Errorf("%w: requested %s, got %s", ErrGenerationFailed, genReq.Phase, payload.Type)
	}

	return &Result{Payload: payload, Raw: raw}, nil
}
