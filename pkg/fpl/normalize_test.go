package fpl

import (
	"encoding/json"
	"testing"
)

func TestNormalizePhases_NullBecomesZero(t *testing.T) {
	doc := json.RawMessage(`{
		"phases": [
			{"id": 1, "highest_score": 120},
			{"id": 2, "highest_score": null},
			{"id": 3, "highest_score": null}
		],
		"total_players": 9000000
	}`)

	fixed, err := normalizePhases(doc)
	if err != nil {
		t.Fatalf("normalizePhases() error = %v", err)
	}

	var decoded struct {
		Phases []struct {
			ID           int  `json:"id"`
			HighestScore *int `json:"highest_score"`
		} `json:"phases"`
		TotalPlayers int `json:"total_players"`
	}
	if err := json.Unmarshal(fixed, &decoded); err != nil {
		t.Fatalf("decode normalized document: %v", err)
	}

	for _, phase := range decoded.Phases {
		if phase.HighestScore == nil {
			t.Errorf("phase %d highest_score is still null", phase.ID)
		}
	}
	if *decoded.Phases[0].HighestScore != 120 {
		t.Errorf("phase 1 highest_score = %d, want 120 untouched", *decoded.Phases[0].HighestScore)
	}
	if *decoded.Phases[1].HighestScore != 0 {
		t.Errorf("phase 2 highest_score = %d, want 0", *decoded.Phases[1].HighestScore)
	}
	if decoded.TotalPlayers != 9000000 {
		t.Error("sibling fields should survive normalization")
	}
}

func TestNormalizePhases_NoPhasesPassesThrough(t *testing.T) {
	doc := json.RawMessage(`{"events": [{"id": 1}]}`)

	fixed, err := normalizePhases(doc)
	if err != nil {
		t.Fatalf("normalizePhases() error = %v", err)
	}
	if string(fixed) != string(doc) {
		t.Errorf("document without phases was modified: %s", fixed)
	}
}

func TestNormalizePhases_AllScoresPresentPassesThrough(t *testing.T) {
	doc := json.RawMessage(`{"phases": [{"id": 1, "highest_score": 55}]}`)

	fixed, err := normalizePhases(doc)
	if err != nil {
		t.Fatalf("normalizePhases() error = %v", err)
	}
	if string(fixed) != string(doc) {
		t.Errorf("fully-populated document was modified: %s", fixed)
	}
}

func TestNormalizePhases_RejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1, 2, 3]`},
		{"phases not an array", `{"phases": {"id": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := normalizePhases(json.RawMessage(tt.doc)); err == nil {
				t.Error("normalizePhases() error = nil, want decode failure")
			}
		})
	}
}
