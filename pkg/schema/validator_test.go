package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const testSchemaFile = `{
	"name": "player",
	"schema": {
		"type": "object",
		"required": ["id", "web_name"],
		"properties": {
			"id": {"type": "integer"},
			"web_name": {"type": "string"},
			"now_cost": {"type": "integer"}
		}
	}
}`

func TestValidate_PassingDocument(t *testing.T) {
	v, err := New("player", []byte(testSchemaFile))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !v.Enabled() {
		t.Fatal("validator should be enabled")
	}

	doc := json.RawMessage(`{"id": 1, "web_name": "Salah", "now_cost": 130}`)
	if !v.Validate(doc) {
		t.Error("Validate() = false for conforming document")
	}
}

func TestValidate_DriftingDocument(t *testing.T) {
	v, err := New("player", []byte(testSchemaFile))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		doc  string
	}{
		{"missing required field", `{"id": 1}`},
		{"wrong type", `{"id": "one", "web_name": "Salah"}`},
		{"not an object", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v.Validate(json.RawMessage(tt.doc)) {
				t.Errorf("Validate(%s) = true, want drift detected", tt.doc)
			}
		})
	}
}

func TestNew_RejectsBrokenSchemaFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not JSON", `{{{`},
		{"missing schema key", `{"name": "player"}`},
		{"invalid schema", `{"schema": {"type": "no-such-type"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("player", []byte(tt.data)); err == nil {
				t.Error("New() error = nil, want compile failure")
			}
		})
	}
}

func TestNewFromFile_MissingFileDisablesValidation(t *testing.T) {
	v := NewFromFile("player", filepath.Join(t.TempDir(), "absent.json"))
	if v.Enabled() {
		t.Error("validator should be disabled without a schema file")
	}

	// Disabled validators pass everything, even junk.
	if !v.Validate(json.RawMessage(`{"anything": true}`)) {
		t.Error("disabled validator should pass all documents")
	}
}

func TestNewFromFile_LoadsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.json")
	if err := os.WriteFile(path, []byte(testSchemaFile), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	v := NewFromFile("player", path)
	if !v.Enabled() {
		t.Fatal("validator should be enabled")
	}
	if v.Validate(json.RawMessage(`{"now_cost": 130}`)) {
		t.Error("loaded schema should reject documents missing required fields")
	}
}
