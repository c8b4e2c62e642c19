package phase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidPayload reports that a generated task payload does not satisfy the
// generator output contract. The caller must treat the whole generation as
// failed; nothing from a rejected payload is persisted.
var ErrInvalidPayload = errors.New("invalid task payload shape")

// TaskPayload is the typed form of the content generator's output for one
// phase. Title, task_type and task_duration are common to every phase; the
// variant pointers carry phase-specific data and exactly the one matching the
// payload's Type is non-nil after a successful Parse.
type TaskPayload struct {
	Title        string `json:"title"`
	Type         Type   `json:"task_type"`
	Description  string `json:"task_description,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	DurationSec  int    `json:"task_duration"`

	Clustering  *ClusteringDetails  `json:"clustering,omitempty"`
	Feasibility *FeasibilityDetails `json:"feasibility,omitempty"`
	Discussion  *DiscussionDetails  `json:"discussion,omitempty"`
	Summary     *SummaryDetails     `json:"summary,omitempty"`
}

// ClusteringDetails carries the generated idea clusters for the voting phase.
type ClusteringDetails struct {
	Clusters []ClusterSpec `json:"clusters"`
}

// ClusterSpec is one generated cluster. IdeaIndices are 0-based positions in
// the idea list that was handed to the generator.
type ClusterSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IdeaIndices []int  `json:"idea_indices"`
}

// FeasibilityDetails carries the generated feasibility report.
type FeasibilityDetails struct {
	Report string `json:"feasibility_report"`
}

// DiscussionDetails carries the generated discussion prompts.
type DiscussionDetails struct {
	Points []string `json:"discussion_points"`
}

// SummaryDetails carries the generated workshop summary.
type SummaryDetails struct {
	Report string `json:"summary_report"`
}

// wirePayload mirrors TaskPayload but keeps task_duration raw so that the
// strict integer contract can be enforced: the generator must emit a JSON
// integer, not "180", not "180 seconds", not 180.5.
type wirePayload struct {
	Title        string              `json:"title"`
	Type         Type                `json:"task_type"`
	Description  string              `json:"task_description"`
	Instructions string              `json:"instructions"`
	DurationRaw  json.RawMessage     `json:"task_duration"`
	Clustering   *ClusteringDetails  `json:"clustering"`
	Feasibility  *FeasibilityDetails `json:"feasibility"`
	Discussion   *DiscussionDetails  `json:"discussion"`
	Summary      *SummaryDetails     `json:"summary"`
}

// Parse decodes and validates a generated payload. Every deviation from the
// contract is reported as ErrInvalidPayload.
func Parse(raw []byte) (*TaskPayload, error) {
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if w.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidPayload)
	}
	if !Known(w.Type) {
		return nil, fmt.Errorf("%w: unknown task_type %q", ErrInvalidPayload, w.Type)
	}

	duration, err := strictInt(w.DurationRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: task_duration %s", ErrInvalidPayload, w.DurationRaw)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: task_duration must be positive, got %d", ErrInvalidPayload, duration)
	}

	p := &TaskPayload{
		Title:        w.Title,
		Type:         w.Type,
		Description:  w.Description,
		Instructions: w.Instructions,
		DurationSec:  duration,
	}

	switch w.Type {
	case TypeBrainstorming:
		if w.Description == "" {
			return nil, fmt.Errorf("%w: brainstorming payload missing task_description", ErrInvalidPayload)
		}
	case TypeClusteringVoting:
		if w.Clustering == nil || len(w.Clustering.Clusters) == 0 {
			return nil, fmt.Errorf("%w: clustering payload has no clusters", ErrInvalidPayload)
		}
		for _, c := range w.Clustering.Clusters {
			if c.Name == "" {
				return nil, fmt.Errorf("%w: cluster missing name", ErrInvalidPayload)
			}
		}
		p.Clustering = w.Clustering
	case TypeResultsFeasibility:
		if w.Feasibility == nil || w.Feasibility.Report == "" {
			return nil, fmt.Errorf("%w: feasibility payload missing report", ErrInvalidPayload)
		}
		p.Feasibility = w.Feasibility
	case TypeDiscussion:
		p.Discussion = w.Discussion
		if p.Discussion == nil {
			p.Discussion = &DiscussionDetails{}
		}
	case TypeSummary:
		if w.Summary == nil || w.Summary.Report == "" {
			return nil, fmt.Errorf("%w: summary payload missing report", ErrInvalidPayload)
		}
		p.Summary = w.Summary
	}

	return p, nil
}

// strictInt accepts only a bare JSON integer token.
func strictInt(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, errors.New("missing")
	}
	return strconv.Atoi(string(trimmed))
}
