// Package schema provides advisory JSON-schema validation for upstream
// FPL documents. Validation failures signal schema drift; they are
// logged and counted but never block a response from being served.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var fplSchemaDriftTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpl_schema_drift_total",
	Help: "Total number of documents that failed advisory schema validation",
}, []string{"schema"})

// schemaFile is the on-disk document shape: the schema itself sits
// under a "schema" key next to extraction metadata.
type schemaFile struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

// Validator structurally checks documents against one compiled schema.
// A validator without a schema (missing or unreadable file) is
// disabled: every Validate call passes.
type Validator struct {
	name   string
	schema *jsonschema.Schema
	logger zerolog.Logger
}

// New compiles a validator from the raw schema-file bytes.
func New(name string, data []byte) (*Validator, error) {
	var file schemaFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if len(file.Schema) == 0 {
		return nil, fmt.Errorf("schema file has no %q key", "schema")
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(file.Schema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{
		name:   name,
		schema: compiled,
		logger: log.With().Str("component", "schema").Str("schema", name).Logger(),
	}, nil
}

// NewFromFile loads and compiles a validator from path. A missing or
// broken schema file yields a disabled validator with a warning, never
// an error: validation is advisory and its absence must not stop the
// service.
func NewFromFile(name, path string) *Validator {
	logger := log.With().Str("component", "schema").Str("schema", name).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("Could not load schema, validation disabled")
		return &Validator{name: name, logger: logger}
	}

	v, err := New(name, data)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("Could not compile schema, validation disabled")
		return &Validator{name: name, logger: logger}
	}

	logger.Info().Str("path", path).Msg("Loaded schema")
	return v
}

// Enabled reports whether a schema is loaded.
func (v *Validator) Enabled() bool {
	return v.schema != nil
}

// Validate structurally checks the document. It never fails the
// caller: drift is logged as a warning and counted, and a disabled
// validator always passes.
func (v *Validator) Validate(document json.RawMessage) bool {
	if v.schema == nil {
		return true
	}

	var decoded any
	if err := json.Unmarshal(document, &decoded); err != nil {
		v.logger.Warn().Err(err).Msg("Document is not valid JSON, skipping validation")
		return false
	}

	if err := v.schema.Validate(decoded); err != nil {
		fplSchemaDriftTotal.WithLabelValues(v.name).Inc()
		v.logger.Warn().Err(err).Msg("Schema validation failed, returning document anyway")
		return false
	}

	return true
}
