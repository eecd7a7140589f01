package fpl

import (
	"encoding/json"
	"fmt"
)

// normalizePhases rewrites null phase highest_score values to 0.
// Upstream serves null for phases that have not started yet, while the
// published field type is integer; consumers get a uniform shape.
// Documents without a phases array pass through untouched.
func normalizePhases(doc json.RawMessage) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	rawPhases, ok := top["phases"]
	if !ok {
		return doc, nil
	}

	var phases []map[string]json.RawMessage
	if err := json.Unmarshal(rawPhases, &phases); err != nil {
		return nil, fmt.Errorf("decode phases: %w", err)
	}

	changed := false
	for _, phase := range phases {
		if score, ok := phase["highest_score"]; ok && string(score) == "null" {
			phase["highest_score"] = json.RawMessage(`0`)
			changed = true
		}
	}
	if !changed {
		return doc, nil
	}

	fixedPhases, err := json.Marshal(phases)
	if err != nil {
		return nil, fmt.Errorf("encode phases: %w", err)
	}
	top["phases"] = fixedPhases

	fixed, err := json.Marshal(top)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return fixed, nil
}
