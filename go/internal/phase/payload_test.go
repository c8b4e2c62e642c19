package phase

import (
	"errors"
	"testing"
)

func TestParseBrainstorming(t *testing.T) {
	raw := []byte(`{
		"title": "Generate Ideas",
		"task_type": "brainstorming",
		"task_description": "Think of ways to reduce onboarding friction",
		"instructions": "One idea per submission",
		"task_duration": 300
	}`)

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Type != TypeBrainstorming {
		t.Errorf("Type = %s", p.Type)
	}
	if p.DurationSec != 300 {
		t.Errorf("DurationSec = %d, want 300", p.DurationSec)
	}
	if p.Clustering != nil || p.Feasibility != nil || p.Summary != nil {
		t.Error("unexpected variant set for brainstorming payload")
	}
}

func TestParseClustering(t *testing.T) {
	raw := []byte(`{
		"title": "Vote on Themes",
		"task_type": "clustering_voting",
		"task_duration": 180,
		"clustering": {
			"clusters": [
				{"name": "Automation", "idea_indices": [0, 2]},
				{"name": "Documentation", "description": "Docs work", "idea_indices": [1]}
			]
		}
	}`)

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Clustering == nil || len(p.Clustering.Clusters) != 2 {
		t.Fatal("clusters not parsed")
	}
	if got := p.Clustering.Clusters[0].IdeaIndices; len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("idea indices = %v", got)
	}
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `not json`},
		{"missing title", `{"task_type":"brainstorming","task_description":"x","task_duration":60}`},
		{"unknown type", `{"title":"t","task_type":"icebreaker","task_duration":60}`},
		{"string duration", `{"title":"t","task_type":"discussion","task_duration":"180"}`},
		{"float duration", `{"title":"t","task_type":"discussion","task_duration":180.5}`},
		{"zero duration", `{"title":"t","task_type":"discussion","task_duration":0}`},
		{"negative duration", `{"title":"t","task_type":"discussion","task_duration":-5}`},
		{"missing duration", `{"title":"t","task_type":"discussion"}`},
		{"brainstorming without description", `{"title":"t","task_type":"brainstorming","task_duration":60}`},
		{"clustering without clusters", `{"title":"t","task_type":"clustering_voting","task_duration":60,"clustering":{"clusters":[]}}`},
		{"cluster without name", `{"title":"t","task_type":"clustering_voting","task_duration":60,"clustering":{"clusters":[{"idea_indices":[0]}]}}`},
		{"feasibility without report", `{"title":"t","task_type":"results_feasibility","task_duration":60}`},
		{"summary without report", `{"title":"t","task_type":"summary","task_duration":60,"summary":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.raw)); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Parse = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestParseDiscussionDefaults(t *testing.T) {
	raw := []byte(`{"title":"Discuss","task_type":"discussion","task_duration":240}`)
	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Discussion == nil {
		t.Fatal("Discussion variant should be defaulted")
	}
}
